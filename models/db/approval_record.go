package dbmodels

import (
	"time"
	"timeledger-backend/models"
)

// ApprovalRecord - сущность, требующая согласования (заявка на отсутствие, спорная корректировка)
type ApprovalRecord struct {
	BaseOrgModel
	EntityType        models.ApprovalEntityType `gorm:"type:varchar(64);not null;uniqueIndex:idx_approval_entity,priority:1"`
	EntityID          string                    `gorm:"type:varchar(36);not null;uniqueIndex:idx_approval_entity,priority:2"`
	SubjectEmployeeID string                    `gorm:"type:varchar(36);index"`
	RequesterID       string                    `gorm:"type:varchar(36)"`
	RequestedAt       time.Time
	FinalState        models.ApprovalState `gorm:"type:varchar(32)"`
	Decisions         []ApprovalDecision   `gorm:"foreignKey:ApprovalRecordID"`
}

// TouchesRange - запрос или хотя бы одно решение попадают в период
func (r ApprovalRecord) TouchesRange(rng models.Range) bool {
	if rng.Contains(r.RequestedAt) {
		return true
	}
	for _, decision := range r.Decisions {
		if rng.Contains(decision.DecidedAt) {
			return true
		}
	}
	return false
}

type ApprovalDecision struct {
	BaseModel
	ApprovalRecordID string `gorm:"type:varchar(36);index"`
	Seq              int
	ActorID          string `gorm:"type:varchar(36)"`
	// ActorNameSnapshot - имя согласующего на момент решения, учётная запись может быть удалена позже
	ActorNameSnapshot string                `gorm:"type:varchar(300)"`
	Action            models.ApprovalAction `gorm:"type:varchar(32)"`
	DecidedAt         time.Time
	Note              string
}
