package timeline

import (
	"time"

	"timeledger-backend/models"
)

type SourceType string

const (
	SourceLedgerEntry      SourceType = "ledger_entry"
	SourceCorrection       SourceType = "correction"
	SourceApprovalDecision SourceType = "approval_decision"
)

// priority - порядок типов событий при совпадении времени
var priority = map[SourceType]int{
	SourceLedgerEntry:      0,
	SourceCorrection:       1,
	SourceApprovalDecision: 2,
}

type EntryRef struct {
	EntryID       string             `json:"entry_id"`
	EmployeeID    string             `json:"employee_id"`
	Kind          models.EntryKind   `json:"kind"`
	Origin        models.EntryOrigin `json:"origin"`
	IntegrityHash string             `json:"integrity_hash"`
}

type CorrectionRef struct {
	EntryID            string `json:"entry_id"`
	EmployeeID         string `json:"employee_id"`
	CorrectsEntryID    string `json:"corrects_entry_id"`
	CorrectedTimestamp string `json:"corrected_timestamp"`
	IntegrityHash      string `json:"integrity_hash"`
}

type DecisionRef struct {
	EntityType   models.ApprovalEntityType `json:"entity_type"`
	EntityID     string                    `json:"entity_id"`
	Seq          int                       `json:"seq"`
	Action       models.ApprovalAction     `json:"action"`
	ActorName    string                    `json:"actor_name"`
	ActorRemoved bool                      `json:"actor_removed"`
}

// Payload - вариант, размеченный Kind: заполнено ровно одно поле, соответствующее типу источника
type Payload struct {
	Kind       SourceType     `json:"kind"`
	Entry      *EntryRef      `json:"entry,omitempty"`
	Correction *CorrectionRef `json:"correction,omitempty"`
	Decision   *DecisionRef   `json:"decision,omitempty"`
}

type Event struct {
	Timestamp   time.Time  `json:"timestamp"`
	SourceType  SourceType `json:"source_type"`
	SourceID    string     `json:"source_id"`
	ActorID     string     `json:"actor_id"`
	Description string     `json:"description"`
	Payload     Payload    `json:"payload"`
}

func (e Event) key() string {
	return string(e.SourceType) + "/" + e.SourceID
}

func less(a, b Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	if priority[a.SourceType] != priority[b.SourceType] {
		return priority[a.SourceType] < priority[b.SourceType]
	}
	return a.SourceID < b.SourceID
}
