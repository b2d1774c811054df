package auditpackstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

// ErrActiveScopeExists - для области уже есть запрос в статусе pending или processing
var ErrActiveScopeExists = errors.New("для области выгрузки уже есть активный запрос")

type Provider interface {
	// Create возвращает ErrActiveScopeExists, если активный запрос с тем же хэшем области уже есть
	Create(ctx context.Context, rec dbmodels.AuditPackRequest) (id string, err error)
	GetByID(ctx context.Context, id string) (*dbmodels.AuditPackRequest, error)
	FindActiveByScope(ctx context.Context, organizationID, scopeHash string) (*dbmodels.AuditPackRequest, error)
	// Transition применяет mutate, только если текущий статус равен from. ok=false - статус уже другой.
	Transition(ctx context.Context, id string, from models.AuditPackStatus, mutate func(rec *dbmodels.AuditPackRequest)) (ok bool, err error)
	ListByStatus(ctx context.Context, status models.AuditPackStatus, limit int) ([]dbmodels.AuditPackRequest, error)
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]dbmodels.AuditPackRequest, error)
	ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]dbmodels.AuditPackRequest, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(ctx context.Context, rec dbmodels.AuditPackRequest) (id string, err error) {
	err = i.db.WithContext(ctx).
		Create(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrActiveScopeExists
		}
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(ctx context.Context, id string) (*dbmodels.AuditPackRequest, error) {
	rec := dbmodels.AuditPackRequest{}
	err := i.db.WithContext(ctx).
		Where("id = ?", id).
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

func (i impl) FindActiveByScope(ctx context.Context, organizationID, scopeHash string) (*dbmodels.AuditPackRequest, error) {
	rec := dbmodels.AuditPackRequest{}
	err := i.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Where("scope_hash = ?", scopeHash).
		Where("status in (?)", []models.AuditPackStatus{models.AuditPackStatusPending, models.AuditPackStatusProcessing}).
		Order("created_at").
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

func (i impl) Transition(ctx context.Context, id string, from models.AuditPackStatus, mutate func(rec *dbmodels.AuditPackRequest)) (ok bool, err error) {
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := dbmodels.AuditPackRequest{}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Where("status = ?", from).
			First(&rec).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		mutate(&rec)
		if err = tx.Save(&rec).Error; err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

func (i impl) ListByStatus(ctx context.Context, status models.AuditPackStatus, limit int) ([]dbmodels.AuditPackRequest, error) {
	list := []dbmodels.AuditPackRequest{}
	err := i.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at").
		Limit(limit).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]dbmodels.AuditPackRequest, error) {
	list := []dbmodels.AuditPackRequest{}
	err := i.db.WithContext(ctx).
		Where("status = ?", models.AuditPackStatusFailed).
		Where("retryable = ?", true).
		Where("attempt < ?", maxAttempts).
		Order("updated_at").
		Limit(limit).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (i impl) ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]dbmodels.AuditPackRequest, error) {
	list := []dbmodels.AuditPackRequest{}
	err := i.db.WithContext(ctx).
		Where("status = ?", models.AuditPackStatusProcessing).
		Where("started_at < ?", startedBefore).
		Order("started_at").
		Limit(limit).
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
