package ledgerstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	dbmodels "timeledger-backend/models/db"
)

// ErrTailMismatch - хвост цепочки изменился между чтением и записью
var ErrTailMismatch = errors.New("хвост цепочки изменён конкурентной записью")

type Provider interface {
	GetTail(ctx context.Context, employeeID string) (*dbmodels.ChainTail, error)
	// Append сохраняет запись, если хвост цепочки всё ещё равен expected (nil - цепочка пуста)
	Append(ctx context.Context, rec dbmodels.LedgerEntry, expected *dbmodels.ChainTail) error
	GetByID(ctx context.Context, id string) (*dbmodels.LedgerEntry, error)
	ListByIDs(ctx context.Context, ids []string) ([]dbmodels.LedgerEntry, error)
	Snapshot(ctx context.Context, employeeID string, from, to time.Time) (dbmodels.ChainSnapshot, error)
	// ListPlacedIn - записи, чей момент в хронологии (LedgerEntry.PlacedAt) попадает в [from, to)
	ListPlacedIn(ctx context.Context, employeeID string, from, to time.Time) ([]dbmodels.LedgerEntry, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) GetTail(ctx context.Context, employeeID string) (*dbmodels.ChainTail, error) {
	rec := dbmodels.ChainTail{}
	err := i.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
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

func (i impl) Append(ctx context.Context, rec dbmodels.LedgerEntry, expected *dbmodels.ChainTail) error {
	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if expected == nil {
			err = casResult(createTail(tx, rec))
		} else {
			err = casResult(advanceTail(tx, rec, *expected))
		}
		if err != nil {
			return err
		}
		return tx.Create(&rec).Error
	})
}

// createTail вставляет хвост новой цепочки; существующий хвост не перезаписывается
func createTail(tx *gorm.DB, rec dbmodels.LedgerEntry) *gorm.DB {
	tail := dbmodels.ChainTail{
		EmployeeID:    rec.EmployeeID,
		TailHash:      rec.IntegrityHash,
		TailEntryID:   rec.ID,
		TailCreatedAt: rec.CreatedAt,
		Length:        rec.Sequence,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tail)
}

// advanceTail переносит хвост на rec, только если в БД всё ещё лежит expected
func advanceTail(tx *gorm.DB, rec dbmodels.LedgerEntry, expected dbmodels.ChainTail) *gorm.DB {
	updMap := map[string]interface{}{
		"tail_hash":       rec.IntegrityHash,
		"tail_entry_id":   rec.ID,
		"tail_created_at": rec.CreatedAt,
		"length":          rec.Sequence,
	}
	return tx.Model(&dbmodels.ChainTail{}).
		Where("employee_id = ?", rec.EmployeeID).
		Where("tail_hash = ?", expected.TailHash).
		Updates(updMap)
}

// casResult: ни одной затронутой строки - хвост уже не тот, что был прочитан
func casResult(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTailMismatch
	}
	return nil
}

func (i impl) GetByID(ctx context.Context, id string) (*dbmodels.LedgerEntry, error) {
	rec := dbmodels.LedgerEntry{}
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

func (i impl) ListByIDs(ctx context.Context, ids []string) ([]dbmodels.LedgerEntry, error) {
	list := []dbmodels.LedgerEntry{}
	if len(ids) == 0 {
		return list, nil
	}
	err := i.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("employee_id ASC, sequence ASC").
		Find(&list).
		Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Snapshot читает якорь и записи диапазона в одной read-only транзакции repeatable read,
// поэтому результат не зависит от параллельных добавлений
func (i impl) Snapshot(ctx context.Context, employeeID string, from, to time.Time) (dbmodels.ChainSnapshot, error) {
	result := dbmodels.ChainSnapshot{EmployeeID: employeeID}
	txOpts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !from.IsZero() {
			anchor := dbmodels.LedgerEntry{}
			err := anchorQuery(tx, employeeID, from).First(&anchor).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrap(err, "ошибка получения якорной записи")
			}
			if err == nil {
				result.Anchor = &anchor
			}
		}
		list := []dbmodels.LedgerEntry{}
		if err := createdInRange(tx, employeeID, from, to).Order("sequence ASC").Find(&list).Error; err != nil {
			return errors.Wrap(err, "ошибка получения записей журнала")
		}
		result.Entries = list
		return nil
	}, txOpts)
	if err != nil {
		return dbmodels.ChainSnapshot{}, err
	}
	return result, nil
}

func (i impl) ListPlacedIn(ctx context.Context, employeeID string, from, to time.Time) ([]dbmodels.LedgerEntry, error) {
	list := []dbmodels.LedgerEntry{}
	err := placedInRange(i.db.WithContext(ctx), employeeID, from, to).
		Order("sequence ASC").
		Find(&list).
		Error
	if err != nil {
		return nil, errors.Wrap(err, "ошибка получения записей хронологии")
	}
	return list, nil
}

// anchorQuery - последняя запись, созданная до начала диапазона
func anchorQuery(tx *gorm.DB, employeeID string, from time.Time) *gorm.DB {
	return tx.
		Where("employee_id = ?", employeeID).
		Where("created_at < ?", from).
		Order("sequence DESC")
}

func createdInRange(tx *gorm.DB, employeeID string, from, to time.Time) *gorm.DB {
	cond, args := boundedBy("created_at", from, to)
	return tx.Where("employee_id = ?", employeeID).Where(cond, args...)
}

// placedInRange повторяет LedgerEntry.PlacedAt: отметка отбирается по timestamp, корректировка по created_at
func placedInRange(tx *gorm.DB, employeeID string, from, to time.Time) *gorm.DB {
	entryCond, args := boundedBy(`"timestamp"`, from, to)
	correctionCond, correctionArgs := boundedBy("created_at", from, to)
	args = append(args, correctionArgs...)
	cond := "((COALESCE(corrects_entry_id, '') = '' AND " + entryCond + ") OR " +
		"(COALESCE(corrects_entry_id, '') <> '' AND " + correctionCond + "))"
	return tx.Where("employee_id = ?", employeeID).Where(cond, args...)
}

// boundedBy строит условие полуоткрытого интервала; нулевая граница не ограничивает
func boundedBy(column string, from, to time.Time) (string, []interface{}) {
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
	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}
