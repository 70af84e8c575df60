// Package advisor turns agricultural sensor readings into crop, fertilizer,
// dosage and yield recommendations backed by pre-trained models.
//
// Every domain runs through the same pipeline: required-field validation,
// feature assembly into the model's training order, a registry lookup and
// prediction, and response shaping that echoes the normalized inputs next to
// the prediction. The per-domain differences (field order, categorical
// encoding tables, response shape) live in a DomainSpec; there is one Service
// implementation for all four domains.
//
// Models are opaque Predictors owned by a ModelRegistry that is built once at
// start-up and never mutated. Request/response pairs are written to an
// append-only AuditLog; implementations (memory, Postgres) live under repo/.
//
// Failures inside the pipeline are data: a missing model, a failing
// prediction or a zero area produce an ErrorResult body rather than a Go
// error, so the caller can still persist and return it.
package advisor
