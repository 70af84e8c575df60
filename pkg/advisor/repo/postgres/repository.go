package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/agri-advisor/pkg/advisor"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Schema creates the audit table. Payloads are stored as text so they
// round-trip byte-for-byte.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS request_log (
		id          BIGSERIAL PRIMARY KEY,
		module      VARCHAR(50) NOT NULL,
		input_data  TEXT NOT NULL,
		result_data TEXT NOT NULL,
		timestamp   TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	)`,
	`CREATE INDEX IF NOT EXISTS request_log_module_timestamp_idx
		ON request_log (module, timestamp DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS request_log_timestamp_idx
		ON request_log (timestamp DESC, id DESC)`,
}

// Repository implements advisor.AuditLog using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL audit log
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL audit log with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate creates the audit table and indexes if they do not exist
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return r.handlePostgresError("migrate", err)
		}
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			err = fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			err = fmt.Errorf("table does not exist - database migration required")
		default:
			err = fmt.Errorf("database error: %s (code: %s)", pgErr.Message, pgErr.Code)
		}
	}

	return &advisor.PersistenceError{Op: operation, Err: err}
}

// Append implements advisor.AuditLog. The single INSERT is atomic.
func (r *Repository) Append(ctx context.Context, domain advisor.Domain, request, response []byte) (*advisor.AuditRecord, error) {
	query := `
		INSERT INTO request_log (module, input_data, result_data)
		VALUES ($1, $2, $3)
		RETURNING id, timestamp`

	record := &advisor.AuditRecord{
		Domain:          domain,
		RequestPayload:  append([]byte(nil), request...),
		ResponsePayload: append([]byte(nil), response...),
	}

	var createdAt time.Time
	err := r.db.QueryRow(ctx, query, string(domain), string(request), string(response)).
		Scan(&record.ID, &createdAt)
	if err != nil {
		return nil, r.handlePostgresError("append", err)
	}
	record.CreatedAt = createdAt.UTC()

	return record, nil
}

// Query implements advisor.AuditLog
func (r *Repository) Query(ctx context.Context, q advisor.AuditQuery) ([]*advisor.AuditRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if q.Domain != "" {
		rows, err = r.db.Query(ctx, `
			SELECT id, module, input_data, result_data, timestamp
			FROM request_log
			WHERE module = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2`, string(q.Domain), q.EffectiveLimit())
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT id, module, input_data, result_data, timestamp
			FROM request_log
			ORDER BY timestamp DESC, id DESC
			LIMIT $1`, q.EffectiveLimit())
	}
	if err != nil {
		return nil, r.handlePostgresError("query", err)
	}
	defer rows.Close()

	var records []*advisor.AuditRecord
	for rows.Next() {
		var (
			rec       advisor.AuditRecord
			module    string
			input     string
			result    string
			createdAt time.Time
		)
		if err := rows.Scan(&rec.ID, &module, &input, &result, &createdAt); err != nil {
			return nil, r.handlePostgresError("scan", err)
		}
		rec.Domain = advisor.Domain(module)
		rec.RequestPayload = []byte(input)
		rec.ResponsePayload = []byte(result)
		rec.CreatedAt = createdAt.UTC()
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("query", err)
	}

	return records, nil
}
