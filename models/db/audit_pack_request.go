package dbmodels

import (
	"time"
	"timeledger-backend/models"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// AuditPackRequest - задача формирования пакета доказательств для аудита.
// Единственное состояние, которым владеет ядро; после завершения не изменяется.
type AuditPackRequest struct {
	BaseOrgModel
	EmployeeIDs       pq.StringArray         `gorm:"type:text[]"`
	PrimaryEmployeeID string                 `gorm:"type:varchar(36)"`
	From              time.Time              `gorm:"not null"`
	To                time.Time              `gorm:"not null"`
	ScopeHash         string                 `gorm:"type:varchar(64);index"`
	RequestedBy       string                 `gorm:"type:varchar(36)"`
	Status            models.AuditPackStatus `gorm:"type:varchar(32);index"`
	Attempt           int
	FailureStep       models.AuditPackStep `gorm:"type:varchar(64)"`
	FailureCode       string               `gorm:"type:varchar(64)"`
	FailureReason     string
	Retryable         bool
	ArtifactRef       string
	ArtifactDigest    string `gorm:"type:varchar(64)"`
	StartedAt         *time.Time
	FinishedAt        *time.Time
}

func (r AuditPackRequest) Validate() error {
	if err := r.BaseOrgModel.Validate(); err != nil {
		return err
	}
	if len(r.EmployeeIDs) == 0 {
		return errors.New("не указаны сотрудники")
	}
	if r.ScopeHash == "" {
		return errors.New("отсутствует хэш области выгрузки")
	}
	return nil
}

// PrimarySubject - основной субъект проверки: явно указанный или единственный сотрудник области
func (r AuditPackRequest) PrimarySubject() string {
	if r.PrimaryEmployeeID != "" {
		return r.PrimaryEmployeeID
	}
	if len(r.EmployeeIDs) == 1 {
		return r.EmployeeIDs[0]
	}
	return ""
}
