package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	ledgerstore "timeledger-backend/lib/ledger/store"
	"timeledger-backend/models"
	dbmodels "timeledger-backend/models/db"
)

func seedChain(t *testing.T, count int) (*ledgerstore.MemoryStore, *impl, []dbmodels.LedgerEntry) {
	store := ledgerstore.NewMemoryStore()
	l := newTestLedger(store, 3)
	list := make([]dbmodels.LedgerEntry, 0, count)
	for n := 0; n < count; n++ {
		kind := models.EntryKindClockIn
		if n%2 == 1 {
			kind = models.EntryKindClockOut
		}
		list = append(list, appendKind(t, l, "e1", kind, baseTime.Add(time.Duration(n)*time.Hour)))
	}
	return store, l, list
}

func TestVerifyChain(t *testing.T) {
	t.Run(`three legitimate entries verify OK`, func(t *testing.T) {
		_, l, _ := seedChain(t, 3)
		verdict, err := l.VerifyChain(context.TODO(), "e1", models.Range{})
		require.Nil(t, err)
		require.True(t, verdict.IsOK())
	})

	t.Run(`altered timestamp is TAMPERED at that entry`, func(t *testing.T) {
		store, l, list := seedChain(t, 3)
		require.True(t, store.Mutate(list[1].ID, func(rec *dbmodels.LedgerEntry) {
			rec.Timestamp = rec.Timestamp.Add(-2 * time.Hour)
		}))
		for n := 0; n < 3; n++ {
			verdict, err := l.VerifyChain(context.TODO(), "e1", models.Range{})
			require.Nil(t, err)
			require.Equal(t, models.VerdictTampered, verdict.Status)
			require.Equal(t, list[1].ID, verdict.EntryID)
			require.Equal(t, 1, verdict.Index)
		}
	})

	t.Run(`altered kind is TAMPERED`, func(t *testing.T) {
		store, l, list := seedChain(t, 4)
		store.Mutate(list[2].ID, func(rec *dbmodels.LedgerEntry) {
			rec.Kind = models.EntryKindClockOut
		})
		verdict, err := l.VerifyChain(context.TODO(), "e1", models.Range{})
		require.Nil(t, err)
		require.Equal(t, models.VerdictTampered, verdict.Status)
		require.Equal(t, 2, verdict.Index)
	})

	t.Run(`rehashed forgery breaks the next link`, func(t *testing.T) {
		store, l, list := seedChain(t, 3)
		store.Mutate(list[1].ID, func(rec *dbmodels.LedgerEntry) {
			rec.Timestamp = rec.Timestamp.Add(time.Hour)
			rec.IntegrityHash = EntryHash(*rec)
		})
		verdict, err := l.VerifyChain(context.TODO(), "e1", models.Range{})
		require.Nil(t, err)
		require.Equal(t, models.VerdictBrokenLink, verdict.Status)
		require.Equal(t, list[2].ID, verdict.EntryID)
	})

	t.Run(`non monotonic created_at is OUT_OF_ORDER`, func(t *testing.T) {
		store, l, list := seedChain(t, 3)
		store.Mutate(list[2].ID, func(rec *dbmodels.LedgerEntry) {
			rec.CreatedAt = list[0].CreatedAt
		})
		verdict := VerifyEntries(nil, mustSnapshot(t, l).Entries)
		require.Equal(t, models.VerdictOutOfOrder, verdict.Status)
		require.Equal(t, list[2].ID, verdict.EntryID)
	})

	t.Run(`every sub range of an untampered chain is OK`, func(t *testing.T) {
		_, l, list := seedChain(t, 6)
		for from := 0; from < len(list); from++ {
			for to := from + 1; to <= len(list); to++ {
				rng := models.Range{From: list[from].CreatedAt}
				if to < len(list) {
					rng.To = list[to].CreatedAt
				}
				snapshot, err := l.Snapshot(context.TODO(), "e1", rng)
				require.Nil(t, err)
				require.Len(t, snapshot.Entries, to-from)
				verdict := VerifySnapshot(snapshot)
				require.True(t, verdict.IsOK(), "range %d..%d: %+v", from, to, verdict)
			}
		}
	})

	t.Run(`deleted entry inside range is a broken link`, func(t *testing.T) {
		_, l, _ := seedChain(t, 4)
		snapshot := mustSnapshot(t, l)
		entries := append([]dbmodels.LedgerEntry{}, snapshot.Entries[:1]...)
		entries = append(entries, snapshot.Entries[2:]...)
		verdict := VerifyEntries(nil, entries)
		require.Equal(t, models.VerdictBrokenLink, verdict.Status)
		require.Equal(t, snapshot.Entries[2].ID, verdict.EntryID)
	})
}

func mustSnapshot(t *testing.T, l *impl) dbmodels.ChainSnapshot {
	snapshot, err := l.Snapshot(context.TODO(), "e1", models.Range{})
	require.Nil(t, err)
	return snapshot
}
