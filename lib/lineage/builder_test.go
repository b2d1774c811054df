package lineage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func entry(id string, kind models.EntryKind, minute int, corrects string) dbmodels.LedgerEntry {
	rec := dbmodels.LedgerEntry{
		ID:         id,
		EmployeeID: "e1",
		Kind:       kind,
		Timestamp:  baseTime.Add(time.Duration(minute) * time.Minute),
		CreatedAt:  baseTime.Add(time.Duration(minute) * time.Minute),
		Origin:     models.EntryOriginInteractive,
	}
	if corrects != "" {
		target := corrects
		rec.CorrectsEntryID = &target
	}
	return rec
}

func TestBuild(t *testing.T) {
	t.Run(`clock out corrected twice resolves to the second correction`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("c2", models.EntryKindCorrection, 30, "c1"),
			entry("out", models.EntryKindClockOut, 10, ""),
			entry("c1", models.EntryKindCorrection, 20, "out"),
		})
		require.Len(t, closure.Records, 1)
		record := closure.Records[0]
		require.True(t, record.Resolved)
		require.Equal(t, "out", record.RootEntryID)
		require.Len(t, record.CorrectionHistory, 2)
		require.Equal(t, "c1", record.CorrectionHistory[0].ID)
		require.Equal(t, "c2", record.EffectiveEntry.ID)
		require.Empty(t, Conflicts(closure))
	})

	t.Run(`uncorrected entries are their own effective entry`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("in", models.EntryKindClockIn, 0, ""),
			entry("out", models.EntryKindClockOut, 480, ""),
		})
		require.Len(t, closure.Records, 2)
		require.Equal(t, "in", closure.Records[0].RootEntryID)
		require.Equal(t, "in", closure.Records[0].EffectiveEntry.ID)
		require.Empty(t, closure.Records[0].CorrectionHistory)
	})

	t.Run(`two corrections of the same entry form a fork`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("out", models.EntryKindClockOut, 10, ""),
			entry("a", models.EntryKindCorrection, 20, "out"),
			entry("b", models.EntryKindCorrection, 25, "out"),
		})
		require.Len(t, closure.Records, 1)
		record := closure.Records[0]
		require.False(t, record.Resolved)
		require.Nil(t, record.EffectiveEntry)
		require.Equal(t, models.LineageConflictFork, record.ConflictReason)
		require.Equal(t, []string{"a", "b"}, record.ConflictEntryIDs)
		require.Len(t, record.CorrectionHistory, 2)

		conflicts := Conflicts(closure)
		require.Len(t, conflicts, 1)
		require.Equal(t, "out", conflicts[0].RootEntryID)
	})

	t.Run(`entries correcting each other form a cycle`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("x", models.EntryKindCorrection, 10, "y"),
			entry("y", models.EntryKindCorrection, 20, "x"),
			entry("z", models.EntryKindCorrection, 30, "y"),
		})
		require.Len(t, closure.Records, 1)
		record := closure.Records[0]
		require.False(t, record.Resolved)
		require.Equal(t, models.LineageConflictCycle, record.ConflictReason)
		require.Equal(t, "x", record.RootEntryID)
		require.Equal(t, []string{"x", "y"}, record.ConflictEntryIDs)
		require.Len(t, record.CorrectionHistory, 3)
	})

	t.Run(`correction of an absent entry is missing_root`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("in", models.EntryKindClockIn, 0, ""),
			entry("fix", models.EntryKindCorrection, 40, "gone"),
		})
		require.Len(t, closure.Records, 2)
		record := closure.Records[1]
		require.Equal(t, "gone", record.RootEntryID)
		require.Equal(t, models.LineageConflictMissingRoot, record.ConflictReason)
		require.Equal(t, []string{"fix"}, record.ConflictEntryIDs)
		require.Equal(t, []string{"gone"}, MissingTargets([]dbmodels.LedgerEntry{
			entry("fix", models.EntryKindCorrection, 40, "gone"),
		}))
	})

	t.Run(`correction created before its target is out_of_order`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("out", models.EntryKindClockOut, 30, ""),
			entry("early", models.EntryKindCorrection, 5, "out"),
		})
		require.Len(t, closure.Records, 1)
		require.Equal(t, models.LineageConflictOutOfOrder, closure.Records[0].ConflictReason)
		require.Equal(t, []string{"early"}, closure.Records[0].ConflictEntryIDs)
	})

	t.Run(`output does not depend on input order`, func(t *testing.T) {
		list := []dbmodels.LedgerEntry{
			entry("in", models.EntryKindClockIn, 0, ""),
			entry("out", models.EntryKindClockOut, 10, ""),
			entry("c1", models.EntryKindCorrection, 20, "out"),
			entry("a", models.EntryKindCorrection, 21, "in"),
			entry("b", models.EntryKindCorrection, 22, "in"),
		}
		reversed := make([]dbmodels.LedgerEntry, 0, len(list))
		for idx := len(list) - 1; idx >= 0; idx-- {
			reversed = append(reversed, list[idx])
		}
		require.Equal(t, Build("e1", list), Build("e1", reversed))
	})
}

func TestClockStatus(t *testing.T) {
	t.Run(`clocked in after corrected clock out`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("in1", models.EntryKindClockIn, 0, ""),
			entry("out1", models.EntryKindClockOut, 240, ""),
			entry("fix", models.EntryKindCorrection, 250, "out1"),
			entry("in2", models.EntryKindClockIn, 300, ""),
		})
		status := ClockStatus(closure)
		require.True(t, status.IsClockedIn)
		require.Equal(t, "in2", status.LastEffectiveID)
		require.True(t, baseTime.Add(300*time.Minute).Equal(*status.ActiveSince))
	})

	t.Run(`unresolved groups are counted but ignored`, func(t *testing.T) {
		closure := Build("e1", []dbmodels.LedgerEntry{
			entry("in", models.EntryKindClockIn, 0, ""),
			entry("out", models.EntryKindClockOut, 60, ""),
			entry("a", models.EntryKindCorrection, 70, "out"),
			entry("b", models.EntryKindCorrection, 71, "out"),
		})
		status := ClockStatus(closure)
		require.True(t, status.IsClockedIn)
		require.Equal(t, 1, status.UnresolvedGroups)
	})
}
