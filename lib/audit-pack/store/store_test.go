package auditpackstore

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

// failingDB отдаёт на каждую вставку ошибку драйвера cause, запрос к серверу не отправляется
func failingDB(t *testing.T, cause error) *gorm.DB {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=ledger dbname=ledger sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true, TranslateError: true})
	require.Nil(t, err)
	err = db.Callback().Create().Before("gorm:create").Register("test:driver_error", func(tx *gorm.DB) {
		tx.AddError(cause)
	})
	require.Nil(t, err)
	return db
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rec := dbmodels.AuditPackRequest{
		BaseOrgModel: dbmodels.BaseOrgModel{OrganizationID: "org-1"},
		EmployeeIDs:  []string{"e1"},
		From:         from,
		To:           from.Add(7 * 24 * time.Hour),
		ScopeHash:    "scope-1",
		Status:       models.AuditPackStatusPending,
	}

	t.Run(`unique violation of the active scope index is reported as an existing request`, func(t *testing.T) {
		store := NewInstance(failingDB(t, &pgconn.PgError{Code: "23505", ConstraintName: "idx_audit_pack_active_scope"}))
		_, err := store.Create(ctx, rec)
		require.ErrorIs(t, err, ErrActiveScopeExists)
	})

	t.Run(`other driver errors pass through`, func(t *testing.T) {
		cause := errors.New("connection reset by peer")
		store := NewInstance(failingDB(t, cause))
		_, err := store.Create(ctx, rec)
		require.ErrorIs(t, err, cause)
		require.False(t, errors.Is(err, ErrActiveScopeExists))
	})
}
