package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// service implements the Service interface
type service struct {
	registry ModelRegistry
	auditLog AuditLog
	logger   *slog.Logger
	observer Observer
}

// Observer receives pipeline outcomes, e.g. for metrics.
type Observer interface {
	PredictionObserved(domain Domain, outcome string)
	AuditAppendFailed(domain Domain)
}

// Prediction outcomes reported to an Observer.
const (
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "model_unavailable"
	OutcomeError       = "error"
)

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRegistry sets the model registry for the service
func WithRegistry(registry ModelRegistry) Option {
	return func(s *service) {
		s.registry = registry
	}
}

// WithAuditLog sets the audit log store for the service
func WithAuditLog(auditLog AuditLog) Option {
	return func(s *service) {
		s.auditLog = auditLog
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithObserver sets the outcome observer for the service
func WithObserver(observer Observer) Option {
	return func(s *service) {
		s.observer = observer
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger:   slog.Default(),
		observer: noopObserver{},
	}

	for _, option := range options {
		option(s)
	}

	if s.registry == nil {
		return nil, fmt.Errorf("model registry is required")
	}
	if s.auditLog == nil {
		return nil, fmt.Errorf("audit log is required")
	}

	return s, nil
}

func (s *service) Recommend(ctx context.Context, domain Domain, payload Payload) (*Recommendation, error) {
	spec, err := SpecFor(domain)
	if err != nil {
		return nil, err
	}

	if !s.registry.Available(domain) {
		s.observer.PredictionObserved(domain, OutcomeUnavailable)
		return s.failed(spec, ErrModelUnavailable, spec.UnavailableMessage()), nil
	}

	features, err := spec.Assemble(payload)
	if err != nil {
		s.observer.PredictionObserved(domain, OutcomeError)
		return s.failed(spec, err, spec.FailureMessage(err)), nil
	}

	pred, err := s.registry.Predict(ctx, domain, features)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			s.observer.PredictionObserved(domain, OutcomeUnavailable)
			return s.failed(spec, err, spec.UnavailableMessage()), nil
		}
		s.observer.PredictionObserved(domain, OutcomeError)
		return s.failed(spec, err, spec.FailureMessage(err)), nil
	}

	body, err := spec.Shape(payload, pred)
	if err != nil {
		s.observer.PredictionObserved(domain, OutcomeError)
		return s.failed(spec, err, spec.FailureMessage(err)), nil
	}

	s.observer.PredictionObserved(domain, OutcomeSuccess)
	return &Recommendation{Domain: domain, Body: body}, nil
}

func (s *service) failed(spec *DomainSpec, err error, message string) *Recommendation {
	s.logger.Warn("Recommendation failed", "domain", spec.Domain, "error", err)
	return &Recommendation{
		Domain: spec.Domain,
		Body:   &ErrorResult{Error: message},
		Err:    err,
	}
}

func (s *service) Record(ctx context.Context, domain Domain, payload Payload, body any) (*AuditRecord, error) {
	if !domain.IsValid() {
		return nil, ErrUnknownDomain
	}

	request, err := payload.Encode()
	if err != nil {
		return nil, &PersistenceError{Op: "encode_request", Err: err}
	}
	response, err := EncodeBody(body)
	if err != nil {
		return nil, &PersistenceError{Op: "encode_response", Err: err}
	}

	record, err := s.auditLog.Append(ctx, domain, request, response)
	if err != nil {
		s.observer.AuditAppendFailed(domain)
		s.logger.Error("Failed to append audit record", "domain", domain, "error", err)
		var pe *PersistenceError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "append", Err: err}
	}

	return record, nil
}

func (s *service) ListAudit(ctx context.Context, q AuditQuery) ([]*AuditRecord, error) {
	if q.Domain != "" && !q.Domain.IsValid() {
		return nil, ErrUnknownDomain
	}
	records, err := s.auditLog.Query(ctx, q)
	if err != nil {
		var pe *PersistenceError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "query", Err: err}
	}
	return records, nil
}

func (s *service) Models() []ModelStatus {
	return s.registry.Status()
}

type noopObserver struct{}

func (noopObserver) PredictionObserved(Domain, string) {}
func (noopObserver) AuditAppendFailed(Domain)          {}
