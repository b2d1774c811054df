package timeline

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
	evidencemodels "timeledger-backend/models/evidence"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func weekOfEntries() []dbmodels.LedgerEntry {
	list := []dbmodels.LedgerEntry{}
	for day := 0; day < 5; day++ {
		in := monday.Add(time.Duration(day)*24*time.Hour + 9*time.Hour)
		out := in.Add(8 * time.Hour)
		list = append(list,
			dbmodels.LedgerEntry{ID: fmt.Sprintf("in-%d", day), EmployeeID: "e1", Kind: models.EntryKindClockIn, Timestamp: in, CreatedAt: in, CreatedBy: "e1"},
			dbmodels.LedgerEntry{ID: fmt.Sprintf("out-%d", day), EmployeeID: "e1", Kind: models.EntryKindClockOut, Timestamp: out, CreatedAt: out, CreatedBy: "e1"},
		)
	}
	target := "out-1"
	list = append(list, dbmodels.LedgerEntry{
		ID: "fix-1", EmployeeID: "e1", Kind: models.EntryKindCorrection, CorrectsEntryID: &target,
		Timestamp: monday.Add(24*time.Hour + 16*time.Hour),
		CreatedAt: monday.Add(2*24*time.Hour + 9*time.Hour),
		CreatedBy: "mgr",
	})
	return list
}

func weekOfApprovals() evidencemodels.ApprovalEvidence {
	return evidencemodels.ApprovalEvidence{
		Entities: []evidencemodels.ApprovalEntityEvidence{{
			EntityType: models.ApprovalEntityDisputedCorrection,
			EntityID:   "fix-1",
			Decisions: []evidencemodels.ApprovalDecision{
				// в одно время с отметкой начала работы в среду
				{Seq: 1, ActorID: "mgr", ActorName: "Олег Петров", Action: models.ApprovalActionEscalate, DecidedAt: evidencemodels.FormatTime(monday.Add(2*24*time.Hour + 9*time.Hour))},
				{Seq: 2, ActorID: "head", ActorName: "Ирина Козлова", Action: models.ApprovalActionApprove, DecidedAt: evidencemodels.FormatTime(monday.Add(3*24*time.Hour + 11*time.Hour))},
			},
		}},
		Gaps: []evidencemodels.Gap{},
	}
}

func TestBuild(t *testing.T) {
	t.Run(`week of mixed events is ascending with deterministic ties`, func(t *testing.T) {
		events, err := Build(weekOfEntries(), weekOfApprovals(), models.Range{})
		require.Nil(t, err)
		require.Len(t, events, 13)
		for idx := 1; idx < len(events); idx++ {
			require.True(t, less(events[idx-1], events[idx]), "позиция %d", idx)
		}
		wednesday := monday.Add(2*24*time.Hour + 9*time.Hour)
		tied := []Event{}
		for _, event := range events {
			if event.Timestamp.Equal(wednesday) {
				tied = append(tied, event)
			}
		}
		require.Len(t, tied, 3)
		require.Equal(t, SourceLedgerEntry, tied[0].SourceType)
		require.Equal(t, SourceCorrection, tied[1].SourceType)
		require.Equal(t, SourceApprovalDecision, tied[2].SourceType)
		require.Equal(t, "disputed_correction:fix-1:0001", tied[2].SourceID)
	})

	t.Run(`payload carries exactly the member of its kind`, func(t *testing.T) {
		events, err := Build(weekOfEntries(), weekOfApprovals(), models.Range{})
		require.Nil(t, err)
		for _, event := range events {
			require.Equal(t, event.SourceType, event.Payload.Kind)
			switch event.Payload.Kind {
			case SourceLedgerEntry:
				require.NotNil(t, event.Payload.Entry)
				require.Nil(t, event.Payload.Correction)
				require.Nil(t, event.Payload.Decision)
			case SourceCorrection:
				require.NotNil(t, event.Payload.Correction)
				require.Nil(t, event.Payload.Entry)
				require.Nil(t, event.Payload.Decision)
			case SourceApprovalDecision:
				require.NotNil(t, event.Payload.Decision)
				require.Nil(t, event.Payload.Entry)
				require.Nil(t, event.Payload.Correction)
			}
		}
	})

	t.Run(`split ranges merge to the whole range`, func(t *testing.T) {
		a, b, c := monday, monday.Add(2*24*time.Hour+9*time.Hour), monday.Add(7*24*time.Hour)
		entries := append(weekOfEntries(), dbmodels.LedgerEntry{
			// офлайн-отметка вторника, синхронизированная в четверг
			ID: "offline-1", EmployeeID: "e1", Kind: models.EntryKindClockIn, Origin: models.EntryOriginOfflineReplayed,
			Timestamp: monday.Add(24*time.Hour + 12*time.Hour),
			CreatedAt: monday.Add(3*24*time.Hour + 10*time.Hour),
			CreatedBy: "e1",
		})
		approvals := weekOfApprovals()
		approvals.Entities = append(approvals.Entities, evidencemodels.ApprovalEntityEvidence{
			EntityType:  models.ApprovalEntityAbsenceRequest,
			EntityID:    "abs-1",
			RequestedAt: evidencemodels.FormatTime(monday.Add(12 * time.Hour)),
			Decisions: []evidencemodels.ApprovalDecision{
				{Seq: 1, ActorID: "mgr", ActorName: "Олег Петров", Action: models.ApprovalActionApprove, DecidedAt: evidencemodels.FormatTime(monday.Add(3*24*time.Hour + 12*time.Hour))},
			},
		})

		build := func(rng models.Range) []Event {
			fetchedEntries, fetchedApprovals := fetchedFor(t, entries, approvals, rng)
			events, err := Build(fetchedEntries, fetchedApprovals, rng)
			require.Nil(t, err)
			return events
		}
		left := build(models.Range{From: a, To: b})
		right := build(models.Range{From: b, To: c})
		whole := build(models.Range{From: a, To: c})
		require.Len(t, whole, 15)
		require.Equal(t, whole, Merge(left, right))
		require.Equal(t, whole, Merge(right, left))

		var offline *Event
		for idx := range left {
			if left[idx].SourceID == "offline-1" {
				offline = &left[idx]
			}
		}
		require.NotNil(t, offline)
		require.True(t, offline.Timestamp.Equal(monday.Add(24*time.Hour+12*time.Hour)))
		require.Contains(t, sourceIDs(right), "absence_request:abs-1:0001")
	})

	t.Run(`merge is idempotent and associative`, func(t *testing.T) {
		events, err := Build(weekOfEntries(), weekOfApprovals(), models.Range{})
		require.Nil(t, err)
		x, y, z := events[:4], events[3:9], events[8:]
		require.Equal(t, events, Merge(events, events))
		require.Equal(t, Merge(Merge(x, y), z), Merge(x, Merge(y, z)))

		first, err := json.Marshal(Merge(x, y, z))
		require.Nil(t, err)
		second, err := json.Marshal(Merge(z, x, y))
		require.Nil(t, err)
		require.Equal(t, string(first), string(second))
	})

	t.Run(`corrections are placed at creation time`, func(t *testing.T) {
		events := FromEntries(weekOfEntries())
		for _, event := range events {
			if event.SourceID == "fix-1" {
				require.Equal(t, SourceCorrection, event.SourceType)
				require.True(t, event.Timestamp.Equal(monday.Add(2*24*time.Hour+9*time.Hour)))
				require.Equal(t, "out-1", event.Payload.Correction.CorrectsEntryID)
			}
		}
	})

	t.Run(`malformed decision time is an error`, func(t *testing.T) {
		approvals := weekOfApprovals()
		approvals.Entities[0].Decisions[0].DecidedAt = "вчера"
		_, err := Build(nil, approvals, models.Range{})
		require.NotNil(t, err)
	})
}

// fetchedFor отбирает то, что вернут хранилища для периода: записи по PlacedAt,
// сущности согласования, запрошенные в периоде или получившие в нём решение
func fetchedFor(t *testing.T, entries []dbmodels.LedgerEntry, approvals evidencemodels.ApprovalEvidence, rng models.Range) ([]dbmodels.LedgerEntry, evidencemodels.ApprovalEvidence) {
	fetchedEntries := []dbmodels.LedgerEntry{}
	for _, rec := range entries {
		if rng.Contains(rec.PlacedAt()) {
			fetchedEntries = append(fetchedEntries, rec)
		}
	}
	fetched := evidencemodels.ApprovalEvidence{Entities: []evidencemodels.ApprovalEntityEvidence{}, Gaps: approvals.Gaps}
	for _, entity := range approvals.Entities {
		times := []string{entity.RequestedAt}
		for _, decision := range entity.Decisions {
			times = append(times, decision.DecidedAt)
		}
		for _, value := range times {
			if value == "" {
				continue
			}
			moment, err := time.Parse(time.RFC3339Nano, value)
			require.Nil(t, err)
			if rng.Contains(moment) {
				fetched.Entities = append(fetched.Entities, entity)
				break
			}
		}
	}
	return fetchedEntries, fetched
}

func sourceIDs(events []Event) []string {
	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.SourceID)
	}
	return ids
}
