// Package evidencemodels - сериализуемое представление доказательств, попадающих в аудиторский пакет.
// Порядок полей структур фиксирован, что делает JSON воспроизводимым.
package evidencemodels

import (
	"time"
	"timeledger-backend/models"
)

type Verdict struct {
	Status  models.VerdictStatus `json:"status"`
	EntryID string               `json:"entry_id,omitempty"`
	Index   int                  `json:"index"`
	Checked int                  `json:"checked"`
}

func (v Verdict) IsOK() bool {
	return v.Status == models.VerdictOK
}

type EntryEvidence struct {
	ID              string             `json:"id"`
	Sequence        int64              `json:"sequence"`
	Kind            models.EntryKind   `json:"kind"`
	Timestamp       string             `json:"timestamp"`
	CreatedAt       string             `json:"created_at"`
	IntegrityHash   string             `json:"integrity_hash"`
	PreviousHash    string             `json:"previous_hash"`
	CorrectsEntryID string             `json:"corrects_entry_id,omitempty"`
	Origin          models.EntryOrigin `json:"origin"`
	CreatedBy       string             `json:"created_by"`
	DeviceID        string             `json:"device_id,omitempty"`
	Latitude        string             `json:"latitude,omitempty"`
	Longitude       string             `json:"longitude,omitempty"`
}

type EntryChainEvidence struct {
	EmployeeID string          `json:"employee_id"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	AnchorHash string          `json:"anchor_hash"`
	Verdict    Verdict         `json:"verdict"`
	Entries    []EntryEvidence `json:"entries"`
}

type LogicalRecord struct {
	RootEntryID       string                 `json:"root_entry_id"`
	Root              *EntryEvidence         `json:"root,omitempty"`
	CorrectionHistory []EntryEvidence        `json:"correction_history"`
	EffectiveEntry    *EntryEvidence         `json:"effective_entry,omitempty"`
	Resolved          bool                   `json:"resolved"`
	ConflictReason    models.LineageConflict `json:"conflict_reason,omitempty"`
	ConflictEntryIDs  []string               `json:"conflict_entry_ids,omitempty"`
}

type CorrectionClosure struct {
	EmployeeID string          `json:"employee_id"`
	Records    []LogicalRecord `json:"records"`
}

type ApprovalDecision struct {
	Seq          int                   `json:"seq"`
	ActorID      string                `json:"actor_id"`
	ActorName    string                `json:"actor_name"`
	ActorRemoved bool                  `json:"actor_removed"`
	Action       models.ApprovalAction `json:"action"`
	DecidedAt    string                `json:"decided_at"`
	Note         string                `json:"note,omitempty"`
}

type ApprovalEntityEvidence struct {
	EntityType         models.ApprovalEntityType `json:"entity_type"`
	EntityID           string                    `json:"entity_id"`
	SubjectEmployeeID  string                    `json:"subject_employee_id,omitempty"`
	RequesterID        string                    `json:"requester_id"`
	RequesterName      string                    `json:"requester_name"`
	RequestedAt        string                    `json:"requested_at"`
	Decisions          []ApprovalDecision        `json:"decisions"`
	FinalState         models.ApprovalState      `json:"final_state"`
	StoredFinalState   models.ApprovalState      `json:"stored_final_state,omitempty"`
	FinalStateMismatch bool                      `json:"final_state_mismatch,omitempty"`
}

// Gap - сущность, исключённая из пакета, с причиной
type Gap struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

type ApprovalEvidence struct {
	Entities []ApprovalEntityEvidence `json:"entities"`
	Gaps     []Gap                    `json:"gaps"`
}

// FormatTime - единый формат времени во всех файлах пакета
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
