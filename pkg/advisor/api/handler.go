package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/agri-advisor/pkg/advisor"
)

// LogEntry is one audit record in a per-domain log listing
type LogEntry struct {
	ID        int64     `json:"id"`
	Input     any       `json:"input"`
	Result    any       `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// LogsResponse is the body of a per-domain log listing
type LogsResponse struct {
	Logs []LogEntry `json:"logs"`
}

// ModuleLogEntry is one audit record in the cross-domain listing
type ModuleLogEntry struct {
	ID        int64     `json:"id"`
	Module    string    `json:"module"`
	Input     any       `json:"input"`
	Result    any       `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// AllLogsResponse is the body of GET /api/logs
type AllLogsResponse struct {
	Logs  []ModuleLogEntry `json:"logs"`
	Count int              `json:"count"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the body of GET /ready
type ReadyResponse struct {
	Status string            `json:"status"`
	Models map[string]bool   `json:"models"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Handler serves the recommendation and audit endpoints
type Handler struct {
	service advisor.Service
	logger  *slog.Logger
}

// NewHandler creates a new handler over service
func NewHandler(service advisor.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Routes returns the /api routes. logsGuard wraps every log listing
// endpoint.
func (h *Handler) Routes(logsGuard ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, spec := range advisor.Specs() {
		r.Post(spec.Path, h.Recommend(spec))
		r.With(logsGuard...).Get(spec.Path, h.RecentLogs(spec))
	}
	r.With(logsGuard...).Get("/api/logs", h.ListLogs)

	return r
}

// Recommend runs one request through Receive, Validate, Invoke, Persist and
// Respond for the given domain.
func (h *Handler) Recommend(spec *advisor.DomainSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := RequestIDFromContext(ctx)

		payload, err := advisor.DecodePayload(r.Body)
		if err != nil {
			h.logger.Warn("Invalid request body", "request_id", requestID, "domain", spec.Domain, "error", err)
			writeError(w, r, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if err := spec.Validate(payload); err != nil {
			h.logger.Warn("Request validation failed", "request_id", requestID, "domain", spec.Domain, "error", err)
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		rec, err := h.service.Recommend(ctx, spec.Domain, payload)
		if err != nil {
			h.logger.Error("Failed to run recommendation", "request_id", requestID, "domain", spec.Domain, "error", err)
			writeError(w, r, http.StatusInternalServerError, spec.FailureMessage(err))
			return
		}

		record, err := h.service.Record(ctx, spec.Domain, payload, rec.Body)
		if err != nil {
			h.logger.Error("Failed to persist recommendation", "request_id", requestID, "domain", spec.Domain, "error", err)
			writeError(w, r, http.StatusInternalServerError, spec.FailureMessage(err))
			return
		}

		h.logger.Info("Recommendation served",
			"request_id", requestID,
			"domain", spec.Domain,
			"audit_id", record.ID,
			"failed", rec.Failed(),
		)
		render.JSON(w, r, rec.Body)
	}
}

// RecentLogs lists the newest audit records of one domain
func (h *Handler) RecentLogs(spec *advisor.DomainSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.service.ListAudit(r.Context(), advisor.AuditQuery{
			Domain: spec.Domain,
			Limit:  advisor.RecentLogLimit,
		})
		if err != nil {
			h.logger.Error("Failed to fetch logs", "request_id", RequestIDFromContext(r.Context()), "domain", spec.Domain, "error", err)
			writeError(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch logs: %v", err))
			return
		}

		resp := LogsResponse{Logs: make([]LogEntry, 0, len(records))}
		for _, rec := range records {
			resp.Logs = append(resp.Logs, LogEntry{
				ID:        rec.ID,
				Input:     rec.RequestPayload,
				Result:    rec.ResponsePayload,
				Timestamp: rec.CreatedAt,
			})
		}
		render.JSON(w, r, resp)
	}
}

// ListLogs lists audit records across domains, optionally filtered by
// ?module= and capped by ?limit=
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := advisor.AuditQuery{Limit: advisor.DefaultAuditLimit}

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			writeError(w, r, http.StatusBadRequest, "Invalid value for parameter: limit")
			return
		}
		q.Limit = limit
	}

	if s := r.URL.Query().Get("module"); s != "" {
		domain, err := advisor.ParseDomain(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid value for parameter: module")
			return
		}
		q.Domain = domain
	}

	records, err := h.service.ListAudit(r.Context(), q)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, advisor.ErrUnknownDomain) {
			status = http.StatusBadRequest
		}
		h.logger.Error("Failed to fetch logs", "request_id", RequestIDFromContext(r.Context()), "error", err)
		writeError(w, r, status, fmt.Sprintf("Failed to fetch logs: %v", err))
		return
	}

	resp := AllLogsResponse{Logs: make([]ModuleLogEntry, 0, len(records))}
	for _, rec := range records {
		resp.Logs = append(resp.Logs, ModuleLogEntry{
			ID:        rec.ID,
			Module:    string(rec.Domain),
			Input:     rec.RequestPayload,
			Result:    rec.ResponsePayload,
			Timestamp: rec.CreatedAt,
		})
	}
	resp.Count = len(resp.Logs)
	render.JSON(w, r, resp)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok"})
}

// Ready reports which models loaded. It answers 200 either way; a degraded
// service still serves error bodies for the missing domains.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		Status: "ready",
		Models: make(map[string]bool),
	}
	for _, st := range h.service.Models() {
		resp.Models[string(st.Domain)] = st.Available
		if !st.Available {
			resp.Status = "degraded"
			if st.Error != "" {
				if resp.Errors == nil {
					resp.Errors = make(map[string]string)
				}
				resp.Errors[string(st.Domain)] = st.Error
			}
		}
	}
	render.JSON(w, r, resp)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, advisor.ErrorResult{Error: message})
}
