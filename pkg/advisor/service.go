package advisor

import (
	"context"
)

// Service defines the recommendation pipeline shared by every domain
type Service interface {
	// Recommend assembles features, predicts and shapes the response for one
	// request. Callers validate the payload first with DomainSpec.Validate.
	// Pipeline failures come back as an ErrorResult body; the error return is
	// reserved for an unknown domain.
	Recommend(ctx context.Context, domain Domain, payload Payload) (*Recommendation, error)

	// Record appends the request/response pair to the audit log. Failures are
	// returned as *PersistenceError.
	Record(ctx context.Context, domain Domain, payload Payload, body any) (*AuditRecord, error)

	// ListAudit returns audit records newest first.
	ListAudit(ctx context.Context, q AuditQuery) ([]*AuditRecord, error)

	// Models reports the registry's per-domain load outcome.
	Models() []ModelStatus
}
