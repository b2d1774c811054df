package dbmodels

import (
	"time"
	"timeledger-backend/models"
)

// LedgerEntry - неизменяемая запись журнала отметок. После создания не обновляется и не удаляется.
type LedgerEntry struct {
	ID              string             `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrganizationID  string             `gorm:"type:varchar(36);index" json:"organization_id"`
	EmployeeID      string             `gorm:"type:varchar(36);not null;uniqueIndex:idx_ledger_employee_seq,priority:1;index:idx_ledger_employee_created,priority:1" json:"employee_id"`
	Sequence        int64              `gorm:"not null;uniqueIndex:idx_ledger_employee_seq,priority:2" json:"sequence"`
	Kind            models.EntryKind   `gorm:"type:varchar(32);not null" json:"kind"`
	Timestamp       time.Time          `gorm:"not null" json:"timestamp"`
	IntegrityHash   string             `gorm:"type:varchar(64);not null" json:"integrity_hash"`
	PreviousHash    string             `gorm:"type:varchar(64);not null" json:"previous_hash"`
	CorrectsEntryID *string            `gorm:"type:varchar(36);index" json:"corrects_entry_id,omitempty"`
	Origin          models.EntryOrigin `gorm:"type:varchar(32);not null" json:"origin"`
	CreatedBy       string             `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt       time.Time          `gorm:"not null;index:idx_ledger_employee_created,priority:2" json:"created_at"`
	DeviceID        string             `gorm:"type:varchar(128)" json:"device_id,omitempty"`
	Latitude        *float64           `json:"latitude,omitempty"`
	Longitude       *float64           `json:"longitude,omitempty"`
}

func (e LedgerEntry) IsCorrection() bool {
	return e.CorrectsEntryID != nil && *e.CorrectsEntryID != ""
}

func (e LedgerEntry) CorrectsID() string {
	if e.CorrectsEntryID == nil {
		return ""
	}
	return *e.CorrectsEntryID
}

// PlacedAt - момент, которым запись представлена в хронологии: отметка по своему времени,
// корректировка по времени создания
func (e LedgerEntry) PlacedAt() time.Time {
	if e.IsCorrection() {
		return e.CreatedAt.UTC()
	}
	return e.Timestamp.UTC()
}

// ChainTail - указатель на последнюю запись цепочки сотрудника, меняется только через compare-and-swap
type ChainTail struct {
	EmployeeID    string    `gorm:"primaryKey;type:varchar(36)"`
	TailHash      string    `gorm:"type:varchar(64);not null"`
	TailEntryID   string    `gorm:"type:varchar(36);not null"`
	TailCreatedAt time.Time `gorm:"not null"`
	Length        int64     `gorm:"not null"`
	UpdatedAt     time.Time
}

// ChainSnapshot - согласованный срез цепочки: записи диапазона и последняя запись перед ним (якорь)
type ChainSnapshot struct {
	EmployeeID string
	Anchor     *LedgerEntry
	Entries    []LedgerEntry
}

func (s ChainSnapshot) AnchorHash() string {
	if s.Anchor == nil {
		return models.ChainStartHash
	}
	return s.Anchor.IntegrityHash
}
