package approvalstore

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	dbmodels "timeledger-backend/models/db"
)

type Provider interface {
	Create(ctx context.Context, rec dbmodels.ApprovalRecord) (id string, err error)
	GetByEntity(ctx context.Context, entityType, entityID string) (*dbmodels.ApprovalRecord, error)
	// ListForScope - сущности сотрудников организации, запрошенные в периоде [from, to)
	// или получившие в нём хотя бы одно решение
	ListForScope(ctx context.Context, organizationID string, employeeIDs []string, from, to time.Time) ([]dbmodels.ApprovalRecord, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(ctx context.Context, rec dbmodels.ApprovalRecord) (id string, err error) {
	err = i.db.WithContext(ctx).
		Save(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByEntity(ctx context.Context, entityType, entityID string) (*dbmodels.ApprovalRecord, error) {
	rec := dbmodels.ApprovalRecord{}
	err := i.db.WithContext(ctx).
		Preload("Decisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("decided_at, seq")
		}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (i impl) ListForScope(ctx context.Context, organizationID string, employeeIDs []string, from, to time.Time) ([]dbmodels.ApprovalRecord, error) {
	list := []dbmodels.ApprovalRecord{}
	err := scopeQuery(i.db.WithContext(ctx), organizationID, employeeIDs, from, to).
		Preload("Decisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("decided_at, seq")
		}).
		Order("entity_type, entity_id").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// scopeQuery: решения попадают в хронологию по decided_at, поэтому сущность с решением
// в периоде отбирается, даже если запрошена раньше
func scopeQuery(tx *gorm.DB, organizationID string, employeeIDs []string, from, to time.Time) *gorm.DB {
	tx = tx.
		Where("organization_id = ?", organizationID).
		Where("subject_employee_id in (?)", employeeIDs)
	if from.IsZero() && to.IsZero() {
		return tx
	}
	requestedCond, args := bounded("requested_at", from, to)
	decidedCond, decidedArgs := bounded("d.decided_at", from, to)
	args = append(args, decidedArgs...)
	return tx.Where("(("+requestedCond+") OR EXISTS ("+
		"SELECT 1 FROM approval_decisions d WHERE d.approval_record_id = approval_records.id AND "+decidedCond+"))", args...)
}

func bounded(column string, from, to time.Time) (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	if !from.IsZero() {
		conds = append(conds, column+" >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		conds = append(conds, column+" < ?")
		args = append(args, to)
	}
	return strings.Join(conds, " AND "), args
}
