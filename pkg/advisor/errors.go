package advisor

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrModelUnavailable indicates the domain's model did not load at start-up
	ErrModelUnavailable = errors.New("model not available")

	// ErrDivisionByZero indicates a per-hectare derivation with a zero area
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNonFiniteValue indicates a prediction or derived quantity that is NaN or infinite
	ErrNonFiniteValue = errors.New("non-finite value")

	// ErrUnknownDomain indicates a domain tag outside crop/fertilizer/dosage/yield
	ErrUnknownDomain = errors.New("unknown domain")

	// ErrArtifactNotFound indicates a model artifact is missing from its store
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrInvalidArtifact indicates a model artifact could not be decoded or is inconsistent
	ErrInvalidArtifact = errors.New("invalid model artifact")
)

// Validation reasons
const (
	ReasonMissing   = "missing"
	ReasonMalformed = "malformed"
)

// ValidationError reports a required field that is absent or not usable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == ReasonMalformed {
		return fmt.Sprintf("Invalid value for field: %s", e.Field)
	}
	return fmt.Sprintf("Missing required field: %s", e.Field)
}

// MissingField builds the ValidationError for an absent field.
func MissingField(field string) error {
	return &ValidationError{Field: field, Reason: ReasonMissing}
}

// MalformedField builds the ValidationError for a field of the wrong type.
func MalformedField(field string) error {
	return &ValidationError{Field: field, Reason: ReasonMalformed}
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PredictionError represents a failure raised by a model while predicting
type PredictionError struct {
	Domain Domain
	Err    error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed for %s model: %v", e.Domain, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// PersistenceError represents an error related to audit log operations
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("audit log operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ArtifactError represents an error related to loading a model artifact
type ArtifactError struct {
	Store string
	Key   string
	Op    string
	Err   error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact operation %s failed for key %s on store %s: %v", e.Op, e.Key, e.Store, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}
