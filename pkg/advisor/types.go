package advisor

import (
	"encoding/json"
	"time"
)

// Domain is one of the four prediction categories.
type Domain string

// Domain constants (typed).
const (
	DomainCrop       Domain = "crop"
	DomainFertilizer Domain = "fertilizer"
	DomainDosage     Domain = "dosage"
	DomainYield      Domain = "yield"
)

// Domains lists every domain in a stable order.
var Domains = []Domain{DomainCrop, DomainFertilizer, DomainDosage, DomainYield}

// IsValid reports whether d names a known domain.
func (d Domain) IsValid() bool {
	switch d {
	case DomainCrop, DomainFertilizer, DomainDosage, DomainYield:
		return true
	}
	return false
}

func (d Domain) String() string { return string(d) }

// ParseDomain converts s into a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if !d.IsValid() {
		return "", ErrUnknownDomain
	}
	return d, nil
}

// FeatureVector is the fixed-order numeric input a model consumes.
type FeatureVector []float64

// Prediction is the raw output of a model. Classifiers set Label, regressors
// set Value.
type Prediction struct {
	Label   string
	Value   float64
	IsLabel bool
}

// LabelPrediction builds a classifier output.
func LabelPrediction(label string) Prediction {
	return Prediction{Label: label, IsLabel: true}
}

// ValuePrediction builds a regressor output.
func ValuePrediction(v float64) Prediction {
	return Prediction{Value: v}
}

// AuditRecord is one persisted request/response pair. Records are immutable.
type AuditRecord struct {
	ID              int64           `json:"id"`
	Domain          Domain          `json:"module"`
	RequestPayload  json.RawMessage `json:"input"`
	ResponsePayload json.RawMessage `json:"result"`
	CreatedAt       time.Time       `json:"timestamp"`
}

// AuditQuery selects audit records, newest first.
type AuditQuery struct {
	// Domain filters by domain tag when non-empty.
	Domain Domain
	// Limit caps the number of records; zero means DefaultAuditLimit.
	Limit int
}

const (
	// DefaultAuditLimit is applied when AuditQuery.Limit is zero.
	DefaultAuditLimit = 50
	// MaxAuditLimit bounds a single query.
	MaxAuditLimit = 1000
	// RecentLogLimit is the size of the per-domain log listings.
	RecentLogLimit = 10
)

// EffectiveLimit returns the limit the store should apply.
func (q AuditQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultAuditLimit
	case q.Limit > MaxAuditLimit:
		return MaxAuditLimit
	}
	return q.Limit
}

// Recommendation is the outcome of running one request through the pipeline.
// Body is either a domain response or an ErrorResult.
type Recommendation struct {
	Domain Domain
	Body   any
	Err    error
}

// Failed reports whether the body is an error object.
func (r *Recommendation) Failed() bool { return r.Err != nil }

// ErrorResult is the body returned when the pipeline fails for a request.
type ErrorResult struct {
	Error string `json:"error"`
}

// ModelStatus describes the load outcome of one domain's model.
type ModelStatus struct {
	Domain    Domain `json:"domain"`
	Available bool   `json:"available"`
	Kind      string `json:"kind,omitempty"`
	Error     string `json:"error,omitempty"`
}
