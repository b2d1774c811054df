package auditpackhandler

import (
	"context"

	"github.com/pkg/errors"
	approvalstore "timeledger-backend/lib/approval/store"
	employeestore "timeledger-backend/lib/employee/store"
	"timeledger-backend/lib/evidence/approval"
	ledgerstore "timeledger-backend/lib/ledger/store"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

// DataSource - источник исходных данных для сборки пакета, только чтение
type DataSource interface {
	approval.IdentityLookup
	Snapshot(ctx context.Context, employeeID string, rng models.Range) (dbmodels.ChainSnapshot, error)
	ListEntriesByIDs(ctx context.Context, ids []string) ([]dbmodels.LedgerEntry, error)
	// ListTimelineEntries - записи сотрудника для хронологии, отобранные по LedgerEntry.PlacedAt
	ListTimelineEntries(ctx context.Context, employeeID string, rng models.Range) ([]dbmodels.LedgerEntry, error)
	ListApprovals(ctx context.Context, organizationID string, employeeIDs []string, rng models.Range) ([]dbmodels.ApprovalRecord, error)
}

// Uploader - объектное хранилище для готовых архивов
type Uploader interface {
	UploadAuditPack(ctx context.Context, organizationID, requestID string, data []byte) (ref string, err error)
}

func NewDataSource(ledger ledgerstore.Provider, approvals approvalstore.Provider, employees employeestore.Provider) DataSource {
	return &storeSource{
		ledger:    ledger,
		approvals: approvals,
		employees: employees,
	}
}

type storeSource struct {
	ledger    ledgerstore.Provider
	approvals approvalstore.Provider
	employees employeestore.Provider
}

func (s storeSource) GetByID(ctx context.Context, id string) (*dbmodels.Employee, error) {
	return s.employees.GetByID(ctx, id)
}

func (s storeSource) Snapshot(ctx context.Context, employeeID string, rng models.Range) (dbmodels.ChainSnapshot, error) {
	rng = rng.UTC()
	snapshot, err := s.ledger.Snapshot(ctx, employeeID, rng.From, rng.To)
	if err != nil {
		return dbmodels.ChainSnapshot{}, errors.Wrapf(err, "ошибка чтения журнала сотрудника %s", employeeID)
	}
	return snapshot, nil
}

func (s storeSource) ListEntriesByIDs(ctx context.Context, ids []string) ([]dbmodels.LedgerEntry, error) {
	if len(ids) == 0 {
		return []dbmodels.LedgerEntry{}, nil
	}
	return s.ledger.ListByIDs(ctx, ids)
}

func (s storeSource) ListTimelineEntries(ctx context.Context, employeeID string, rng models.Range) ([]dbmodels.LedgerEntry, error) {
	rng = rng.UTC()
	list, err := s.ledger.ListPlacedIn(ctx, employeeID, rng.From, rng.To)
	if err != nil {
		return nil, errors.Wrapf(err, "ошибка чтения хронологии сотрудника %s", employeeID)
	}
	return list, nil
}

func (s storeSource) ListApprovals(ctx context.Context, organizationID string, employeeIDs []string, rng models.Range) ([]dbmodels.ApprovalRecord, error) {
	rng = rng.UTC()
	return s.approvals.ListForScope(ctx, organizationID, employeeIDs, rng.From, rng.To)
}
