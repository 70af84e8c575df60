package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/agri-advisor/pkg/advisor"
)

// Repository implements advisor.AuditLog using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	records []*advisor.AuditRecord // insertion order == id order
	nextID  int64
	lastAt  time.Time
	now     func() time.Time
}

// New creates a new in-memory audit log
func New() *Repository {
	return &Repository{
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewWithClock creates an in-memory audit log that reads time from now
func NewWithClock(now func() time.Time) *Repository {
	r := New()
	r.now = now
	return r
}

// Append implements advisor.AuditLog
func (r *Repository) Append(ctx context.Context, domain advisor.Domain, request, response []byte) (*advisor.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &advisor.PersistenceError{Op: "append", Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Timestamps never go backwards within the process
	at := r.now()
	if !at.After(r.lastAt) {
		at = r.lastAt.Add(time.Microsecond)
	}
	r.lastAt = at

	record := &advisor.AuditRecord{
		ID:              r.nextID,
		Domain:          domain,
		RequestPayload:  append([]byte(nil), request...),
		ResponsePayload: append([]byte(nil), response...),
		CreatedAt:       at,
	}
	r.nextID++
	r.records = append(r.records, record)

	return copyRecord(record), nil
}

// Query implements advisor.AuditLog
func (r *Repository) Query(ctx context.Context, q advisor.AuditQuery) ([]*advisor.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &advisor.PersistenceError{Op: "query", Err: err}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := q.EffectiveLimit()
	result := make([]*advisor.AuditRecord, 0, min(limit, len(r.records)))

	// Newest first: walk backwards from the latest insert
	for i := len(r.records) - 1; i >= 0 && len(result) < limit; i-- {
		rec := r.records[i]
		if q.Domain != "" && rec.Domain != q.Domain {
			continue
		}
		result = append(result, copyRecord(rec))
	}

	return result, nil
}

// Len returns the number of stored records
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// copyRecord prevents callers from mutating stored payloads
func copyRecord(rec *advisor.AuditRecord) *advisor.AuditRecord {
	c := *rec
	c.RequestPayload = append([]byte(nil), rec.RequestPayload...)
	c.ResponsePayload = append([]byte(nil), rec.ResponsePayload...)
	return &c
}
