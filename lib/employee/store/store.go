package employeestore

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	dbmodels "timeledger-backend/models/db"
)

type Provider interface {
	Create(ctx context.Context, rec dbmodels.Employee) (id string, err error)
	// GetByID не возвращает удалённых сотрудников
	GetByID(ctx context.Context, id string) (*dbmodels.Employee, error)
	Delete(ctx context.Context, id string) error
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Create(ctx context.Context, rec dbmodels.Employee) (id string, err error) {
	err = i.db.WithContext(ctx).
		Save(&rec).
		Error
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (i impl) GetByID(ctx context.Context, id string) (*dbmodels.Employee, error) {
	rec := dbmodels.Employee{}
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

func (i impl) Delete(ctx context.Context, id string) error {
	tx := i.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&dbmodels.Employee{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return errors.New("запись не найдена")
	}
	return nil
}
