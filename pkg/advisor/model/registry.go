package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/agri-advisor/pkg/advisor"
)

// entry is one domain's load outcome. Exactly one of predictor and err is set.
type entry struct {
	predictor advisor.Predictor
	kind      string
	err       error
}

// Registry implements advisor.ModelRegistry. It is immutable once built.
type Registry struct {
	entries map[advisor.Domain]entry
}

var _ advisor.ModelRegistry = (*Registry)(nil)

// DefaultKeys returns the artifact key used for each domain when none is
// configured, e.g. "crop.yaml".
func DefaultKeys() map[advisor.Domain]string {
	keys := make(map[advisor.Domain]string, len(advisor.Domains))
	for _, d := range advisor.Domains {
		keys[d] = string(d) + ".yaml"
	}
	return keys
}

// Load reads every domain's artifact from store. A domain whose artifact
// cannot be opened, decoded or built is marked unavailable; Load itself never
// fails. Domains missing from keys use DefaultKeys.
func Load(ctx context.Context, store advisor.ArtifactStore, keys map[advisor.Domain]string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultKeys()

	r := &Registry{entries: make(map[advisor.Domain]entry, len(advisor.Domains))}
	for _, d := range advisor.Domains {
		key := keys[d]
		if key == "" {
			key = defaults[d]
		}

		a, err := loadArtifact(ctx, store, key)
		if err == nil {
			err = a.Fits(d)
		}
		if err != nil {
			logger.Warn("Could not load model", "domain", d, "key", key, "error", err)
			r.entries[d] = entry{err: err}
			continue
		}

		p, err := a.Build()
		if err != nil {
			logger.Warn("Could not build model", "domain", d, "key", key, "error", err)
			r.entries[d] = entry{err: err}
			continue
		}

		logger.Info("Model loaded", "domain", d, "key", key, "kind", a.Kind, "inputs", a.Dimension())
		r.entries[d] = entry{predictor: p, kind: a.Kind}
	}
	return r
}

// New builds a registry from already constructed predictors. Domains absent
// from predictors are unavailable.
func New(predictors map[advisor.Domain]advisor.Predictor) *Registry {
	r := &Registry{entries: make(map[advisor.Domain]entry, len(advisor.Domains))}
	for _, d := range advisor.Domains {
		p, ok := predictors[d]
		if !ok || p == nil {
			r.entries[d] = entry{err: advisor.ErrModelUnavailable}
			continue
		}
		r.entries[d] = entry{predictor: p, kind: fmt.Sprintf("%T", p)}
	}
	return r
}

func loadArtifact(ctx context.Context, store advisor.ArtifactStore, key string) (*Artifact, error) {
	if store == nil {
		return nil, fmt.Errorf("no artifact store configured: %w", advisor.ErrArtifactNotFound)
	}
	rc, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Decode(key, rc)
}

// Available implements advisor.ModelRegistry.
func (r *Registry) Available(domain advisor.Domain) bool {
	e, ok := r.entries[domain]
	return ok && e.predictor != nil
}

// Predict implements advisor.ModelRegistry.
func (r *Registry) Predict(ctx context.Context, domain advisor.Domain, features advisor.FeatureVector) (advisor.Prediction, error) {
	e, ok := r.entries[domain]
	if !ok || e.predictor == nil {
		return advisor.Prediction{}, advisor.ErrModelUnavailable
	}

	pred, err := safePredict(ctx, e.predictor, features)
	if err != nil {
		return advisor.Prediction{}, &advisor.PredictionError{Domain: domain, Err: err}
	}
	return pred, nil
}

// safePredict converts a panicking predictor into an error.
func safePredict(ctx context.Context, p advisor.Predictor, features advisor.FeatureVector) (pred advisor.Prediction, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("model panicked: %v", v)
		}
	}()
	return p.Predict(ctx, features)
}

// Status implements advisor.ModelRegistry.
func (r *Registry) Status() []advisor.ModelStatus {
	out := make([]advisor.ModelStatus, 0, len(advisor.Domains))
	for _, d := range advisor.Domains {
		e := r.entries[d]
		st := advisor.ModelStatus{Domain: d, Available: e.predictor != nil, Kind: e.kind}
		if e.err != nil {
			st.Error = e.err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Err returns why domain's model is unavailable, or nil.
func (r *Registry) Err(domain advisor.Domain) error {
	e, ok := r.entries[domain]
	if !ok {
		return advisor.ErrUnknownDomain
	}
	if e.err != nil && !errors.Is(e.err, advisor.ErrModelUnavailable) {
		return fmt.Errorf("%w: %w", advisor.ErrModelUnavailable, e.err)
	}
	return e.err
}
