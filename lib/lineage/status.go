package lineage

import (
	"time"

	"timeledger-backend/models"
	ledgerapimodels "timeledger-backend/models/api/ledger"
	evidencemodels "timeledger-backend/models/evidence"
)

// EffectiveEvent - действующее состояние логической записи: тип корня и время последней корректировки
type EffectiveEvent struct {
	RootEntryID      string
	EffectiveEntryID string
	Kind             models.EntryKind
	Timestamp        time.Time
}

func EffectiveEvents(closure evidencemodels.CorrectionClosure) []EffectiveEvent {
	result := []EffectiveEvent{}
	for _, record := range closure.Records {
		if !record.Resolved || record.Root == nil || record.EffectiveEntry == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, record.EffectiveEntry.Timestamp)
		if err != nil {
			continue
		}
		result = append(result, EffectiveEvent{
			RootEntryID:      record.RootEntryID,
			EffectiveEntryID: record.EffectiveEntry.ID,
			Kind:             record.Root.Kind,
			Timestamp:        ts,
		})
	}
	return result
}

// ClockStatus - сотрудник на работе, если последнее действующее событие является началом работы
func ClockStatus(closure evidencemodels.CorrectionClosure) ledgerapimodels.ClockStatusView {
	view := ledgerapimodels.ClockStatusView{EmployeeID: closure.EmployeeID}
	var last *EffectiveEvent
	events := EffectiveEvents(closure)
	for idx := range events {
		if last == nil || !events[idx].Timestamp.Before(last.Timestamp) {
			last = &events[idx]
		}
	}
	for _, record := range closure.Records {
		if !record.Resolved {
			view.UnresolvedGroups++
		}
	}
	if last == nil {
		return view
	}
	view.LastEffectiveID = last.EffectiveEntryID
	if last.Kind == models.EntryKindClockIn {
		view.IsClockedIn = true
		since := last.Timestamp
		view.ActiveSince = &since
	}
	return view
}
