package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/agri-advisor/pkg/advisor"
)

func TestPostgresRepository_Migrate(t *testing.T) {
	RunTest(t, func(t *testing.T, db *TestDB) {
		// Migrations are idempotent
		require.NoError(t, NewWithPool(db.Pool).Migrate(context.Background()))
	})
}

func TestPostgresRepository_AppendAndQuery(t *testing.T) {
	RunTest(t, func(t *testing.T, db *TestDB) {
		repo := NewWithPool(db.Pool)
		ctx := context.Background()

		// Key order and number formatting survive storage
		request := []byte(`{"soil_n":90,"ph":6.50,"zeta":null}`)
		response := []byte(`{"recommended_crop":"rice"}`)

		first, err := repo.Append(ctx, advisor.DomainCrop, request, response)
		require.NoError(t, err)
		assert.Positive(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())

		second, err := repo.Append(ctx, advisor.DomainYield, []byte(`{"area":2}`), []byte(`{"error":"Yield model not available"}`))
		require.NoError(t, err)
		assert.Greater(t, second.ID, first.ID)
		assert.False(t, second.CreatedAt.Before(first.CreatedAt))

		all, err := repo.Query(ctx, advisor.AuditQuery{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.Equal(t, first.ID, all[1].ID)
		assert.Equal(t, string(request), string(all[1].RequestPayload))
		assert.Equal(t, string(response), string(all[1].ResponsePayload))
		assert.Equal(t, advisor.DomainCrop, all[1].Domain)

		crop, err := repo.Query(ctx, advisor.AuditQuery{Domain: advisor.DomainCrop})
		require.NoError(t, err)
		require.Len(t, crop, 1)
		assert.Equal(t, first.ID, crop[0].ID)

		limited, err := repo.Query(ctx, advisor.AuditQuery{Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, second.ID, limited[0].ID)

		none, err := repo.Query(ctx, advisor.AuditQuery{Domain: advisor.DomainDosage})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestPostgresRepository_MissingTable(t *testing.T) {
	RunTest(t, func(t *testing.T, db *TestDB) {
		ctx := context.Background()
		_, err := db.Pool.Exec(ctx, "DROP TABLE request_log")
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, NewWithPool(db.Pool).Migrate(context.Background()))
		})

		_, err = NewWithPool(db.Pool).Append(ctx, advisor.DomainCrop, []byte(`{}`), []byte(`{}`))
		require.Error(t, err)

		var pe *advisor.PersistenceError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "append", pe.Op)
		assert.Contains(t, err.Error(), "database migration required")
	})
}
