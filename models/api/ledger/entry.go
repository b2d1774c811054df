package ledgerapimodels

import (
	"time"
	"timeledger-backend/models"

	"github.com/pkg/errors"
)

type AppendEntryData struct {
	OrganizationID  string             `json:"-"`
	EmployeeID      string             `json:"-"`
	Kind            models.EntryKind   `json:"kind"`
	Timestamp       time.Time          `json:"timestamp"`
	CorrectsEntryID *string            `json:"corrects_entry_id,omitempty"`
	Origin          models.EntryOrigin `json:"origin"`
	CreatedBy       string             `json:"created_by"`
	DeviceID        string             `json:"device_id,omitempty"`
	Latitude        *float64           `json:"latitude,omitempty"`
	Longitude       *float64           `json:"longitude,omitempty"`
}

func (a AppendEntryData) Validate() error {
	if a.EmployeeID == "" {
		return errors.New("отсутствует идентификатор сотрудника")
	}
	if !a.Kind.IsValid() {
		return errors.Errorf("неизвестный тип отметки: %v", a.Kind)
	}
	if a.Timestamp.IsZero() {
		return errors.New("не указано время отметки")
	}
	if a.Origin != "" && !a.Origin.IsValid() {
		return errors.Errorf("неизвестный источник отметки: %v", a.Origin)
	}
	hasTarget := a.CorrectsEntryID != nil && *a.CorrectsEntryID != ""
	if a.Kind == models.EntryKindCorrection && !hasTarget {
		return errors.New("для корректировки необходимо указать исправляемую запись")
	}
	if a.Kind != models.EntryKindCorrection && hasTarget {
		return errors.New("ссылка на исправляемую запись допустима только для корректировки")
	}
	if (a.Latitude == nil) != (a.Longitude == nil) {
		return errors.New("геопозиция должна содержать широту и долготу")
	}
	return nil
}

type AppendBreakData struct {
	OrganizationID string             `json:"-"`
	EmployeeID     string             `json:"-"`
	BreakStart     time.Time          `json:"break_start"`
	ResumeAt       time.Time          `json:"resume_at"`
	Origin         models.EntryOrigin `json:"origin"`
	CreatedBy      string             `json:"created_by"`
	DeviceID       string             `json:"device_id,omitempty"`
}

func (a AppendBreakData) Validate() error {
	if a.EmployeeID == "" {
		return errors.New("отсутствует идентификатор сотрудника")
	}
	if a.BreakStart.IsZero() || a.ResumeAt.IsZero() {
		return errors.New("не указано время перерыва")
	}
	if a.ResumeAt.Before(a.BreakStart) {
		return errors.New("время возобновления раньше начала перерыва")
	}
	return nil
}

type EntryView struct {
	ID              string             `json:"id"`
	EmployeeID      string             `json:"employee_id"`
	Sequence        int64              `json:"sequence"`
	Kind            models.EntryKind   `json:"kind"`
	Timestamp       time.Time          `json:"timestamp"`
	IntegrityHash   string             `json:"integrity_hash"`
	PreviousHash    string             `json:"previous_hash"`
	CorrectsEntryID *string            `json:"corrects_entry_id,omitempty"`
	Origin          models.EntryOrigin `json:"origin"`
	CreatedAt       time.Time          `json:"created_at"`
}

type ClockStatusView struct {
	EmployeeID       string     `json:"employee_id"`
	IsClockedIn      bool       `json:"is_clocked_in"`
	ActiveSince      *time.Time `json:"active_since,omitempty"`
	LastEffectiveID  string     `json:"last_effective_id,omitempty"`
	UnresolvedGroups int        `json:"unresolved_groups"`
}

// RangeQuery - период в параметрах запроса, границы в RFC3339, обе необязательны
type RangeQuery struct {
	From string `query:"from"`
	To   string `query:"to"`
}

func (q RangeQuery) Range() (models.Range, error) {
	rng := models.Range{}
	var err error
	if q.From != "" {
		if rng.From, err = time.Parse(time.RFC3339Nano, q.From); err != nil {
			return rng, errors.New("некорректная дата начала периода")
		}
	}
	if q.To != "" {
		if rng.To, err = time.Parse(time.RFC3339Nano, q.To); err != nil {
			return rng, errors.New("некорректная дата окончания периода")
		}
	}
	if !rng.From.IsZero() && !rng.To.IsZero() && rng.To.Before(rng.From) {
		return rng, errors.New("окончание периода раньше начала")
	}
	return rng.UTC(), nil
}

// QueuedView - отметка принята, но пока лежит в офлайн-очереди
type QueuedView struct {
	QueueID int64 `json:"queue_id"`
}
