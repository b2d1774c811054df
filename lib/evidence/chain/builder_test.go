package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"timeledger-backend/lib/ledger"
	ledgerstore "timeledger-backend/lib/ledger/store"
	"timeledger-backend/models"
	ledgerapimodels "timeledger-backend/models/api/ledger"
	dbmodels "timeledger-backend/models/db"
)

func TestBuild(t *testing.T) {
	store := ledgerstore.NewMemoryStore()
	l := ledger.NewInstance(store, 3)
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	lat, lon := 55.7558, 37.6173
	first, err := l.AppendEntry(context.TODO(), ledgerapimodels.AppendEntryData{
		EmployeeID: "e1",
		Kind:       models.EntryKindClockIn,
		Timestamp:  start,
		DeviceID:   "kiosk-1",
		Latitude:   &lat,
		Longitude:  &lon,
	})
	require.Nil(t, err)
	_, err = l.AppendEntry(context.TODO(), ledgerapimodels.AppendEntryData{
		EmployeeID: "e1",
		Kind:       models.EntryKindClockOut,
		Timestamp:  start.Add(8 * time.Hour),
		Origin:     models.EntryOriginAutomated,
	})
	require.Nil(t, err)

	t.Run(`packages entry metadata with OK verdict`, func(t *testing.T) {
		snapshot, err := l.Snapshot(context.TODO(), "e1", models.Range{})
		require.Nil(t, err)
		evidence := Build(snapshot, models.Range{})
		require.Equal(t, models.VerdictOK, evidence.Verdict.Status)
		require.Equal(t, models.ChainStartHash, evidence.AnchorHash)
		require.Len(t, evidence.Entries, 2)
		require.Equal(t, "55.755800", evidence.Entries[0].Latitude)
		require.Equal(t, "37.617300", evidence.Entries[0].Longitude)
		require.Equal(t, "kiosk-1", evidence.Entries[0].DeviceID)
		require.Equal(t, models.EntryOriginAutomated, evidence.Entries[1].Origin)
		require.Empty(t, evidence.Entries[1].Latitude)
	})

	t.Run(`sub range carries the anchor hash`, func(t *testing.T) {
		snapshot, err := l.Snapshot(context.TODO(), "e1", models.Range{From: first.CreatedAt.Add(time.Nanosecond)})
		require.Nil(t, err)
		evidence := Build(snapshot, models.Range{From: first.CreatedAt.Add(time.Nanosecond)})
		require.Equal(t, first.IntegrityHash, evidence.AnchorHash)
		require.Len(t, evidence.Entries, 1)
		require.True(t, evidence.Verdict.IsOK())
	})

	t.Run(`tampered snapshot is reported in the evidence`, func(t *testing.T) {
		snapshot, err := l.Snapshot(context.TODO(), "e1", models.Range{})
		require.Nil(t, err)
		entries := append([]dbmodels.LedgerEntry{}, snapshot.Entries...)
		entries[1].Kind = models.EntryKindClockIn
		snapshot.Entries = entries
		evidence := Build(snapshot, models.Range{})
		require.Equal(t, models.VerdictTampered, evidence.Verdict.Status)
		require.Equal(t, entries[1].ID, evidence.Verdict.EntryID)
	})
}
