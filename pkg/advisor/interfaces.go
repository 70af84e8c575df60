package advisor

import (
	"context"
	"io"
)

// Predictor is an opaque pre-trained model. Implementations must be safe for
// concurrent use; nothing mutates a Predictor after it is loaded.
type Predictor interface {
	Predict(ctx context.Context, features FeatureVector) (Prediction, error)
}

// ModelRegistry maps domains to their loaded Predictors.
type ModelRegistry interface {
	// Available reports whether the domain's model loaded.
	Available(domain Domain) bool

	// Predict runs the domain's model. It fails with ErrModelUnavailable when
	// the model did not load and with *PredictionError when the model fails.
	Predict(ctx context.Context, domain Domain, features FeatureVector) (Prediction, error)

	// Status reports the load outcome for every domain.
	Status() []ModelStatus
}

// AuditLog is the append-only store of processed requests.
type AuditLog interface {
	// Append inserts one record and assigns its ID and CreatedAt. The insert
	// is all-or-nothing.
	Append(ctx context.Context, domain Domain, request, response []byte) (*AuditRecord, error)

	// Query returns records newest first.
	Query(ctx context.Context, q AuditQuery) ([]*AuditRecord, error)
}

// ArtifactStore reads model artifact documents.
type ArtifactStore interface {
	// Open returns the artifact stored under key. A missing key yields an
	// error wrapping ErrArtifactNotFound.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ArtifactWriter stores model artifact documents.
type ArtifactWriter interface {
	Put(ctx context.Context, key string, reader io.Reader) error
}
