package approvalstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	dbmodels "timeledger-backend/models/db"
)

func TestScopeQuery(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=5432 user=ledger dbname=ledger sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	require.Nil(t, err)
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	t.Run(`entity is selected by request time or by a decision inside the range`, func(t *testing.T) {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return scopeQuery(tx, "org-1", []string{"e1", "e2"}, from, to).Find(&[]dbmodels.ApprovalRecord{})
		})
		require.Contains(t, sql, `organization_id = 'org-1'`)
		require.Contains(t, sql, `subject_employee_id in ('e1','e2')`)
		require.Contains(t, sql, `requested_at >= '2026-03-02 00:00:00' AND requested_at < '2026-03-09 00:00:00') OR EXISTS (`)
		require.Contains(t, sql, `d.approval_record_id = approval_records.id AND d.decided_at >= '2026-03-02 00:00:00' AND d.decided_at < '2026-03-09 00:00:00'`)
	})

	t.Run(`open range selects every entity of the employees`, func(t *testing.T) {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return scopeQuery(tx, "org-1", []string{"e1"}, time.Time{}, time.Time{}).Find(&[]dbmodels.ApprovalRecord{})
		})
		require.NotContains(t, sql, `requested_at`)
		require.NotContains(t, sql, `EXISTS`)
	})

	t.Run(`only the upper bound is applied when the range has no start`, func(t *testing.T) {
		sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return scopeQuery(tx, "org-1", []string{"e1"}, time.Time{}, to).Find(&[]dbmodels.ApprovalRecord{})
		})
		require.Contains(t, sql, `requested_at < '2026-03-09 00:00:00') OR EXISTS (`)
		require.NotContains(t, sql, `>=`)
	})
}
