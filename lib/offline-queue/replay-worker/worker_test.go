package offlinequeueworker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"timeledger-backend/lib/ledger"
	ledgerstore "timeledger-backend/lib/ledger/store"
	offlinequeue "timeledger-backend/lib/offline-queue"
	"timeledger-backend/models"
	ledgerapimodels "timeledger-backend/models/api/ledger"
	dbmodels "timeledger-backend/models/db"
)

var clockTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type unavailableStore struct {
	*ledgerstore.MemoryStore
}

func (u unavailableStore) GetTail(context.Context, string) (*dbmodels.ChainTail, error) {
	return nil, errors.New("connection refused")
}

func openQueue(t *testing.T) *offlinequeue.Queue {
	q, err := offlinequeue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.Nil(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func enqueue(t *testing.T, q *offlinequeue.Queue, payload offlinequeue.Payload) {
	_, err := q.Enqueue(context.TODO(), payload)
	require.Nil(t, err)
}

func clockIn(employeeID string, ts time.Time) offlinequeue.Payload {
	return offlinequeue.Payload{
		OrganizationID: "org",
		EmployeeID:     employeeID,
		Entry:          &ledgerapimodels.AppendEntryData{Kind: models.EntryKindClockIn, Timestamp: ts, CreatedBy: employeeID},
	}
}

func TestHandle(t *testing.T) {
	t.Run(`queued actions are replayed with offline origin`, func(t *testing.T) {
		q := openQueue(t)
		enqueue(t, q, clockIn("e1", clockTime))
		enqueue(t, q, offlinequeue.Payload{
			OrganizationID: "org",
			EmployeeID:     "e1",
			Break: &ledgerapimodels.AppendBreakData{
				BreakStart: clockTime.Add(3 * time.Hour),
				ResumeAt:   clockTime.Add(4 * time.Hour),
			},
		})
		store := ledgerstore.NewMemoryStore()
		l := ledger.NewInstance(store, 3)
		newInstance(q, l, Config{Batch: 10, Interval: time.Minute}).handle(context.TODO())

		count, err := q.Count(context.TODO())
		require.Nil(t, err)
		require.Equal(t, int64(0), count)
		snapshot, err := l.Snapshot(context.TODO(), "e1", models.Range{})
		require.Nil(t, err)
		require.Len(t, snapshot.Entries, 3)
		for _, rec := range snapshot.Entries {
			require.Equal(t, models.EntryOriginOfflineReplayed, rec.Origin)
			require.Equal(t, "org", rec.OrganizationID)
		}
		require.True(t, clockTime.Equal(snapshot.Entries[0].Timestamp))
		require.Equal(t, models.VerdictOK, ledger.VerifySnapshot(snapshot).Status)
	})

	t.Run(`unavailable ledger leaves the queue untouched`, func(t *testing.T) {
		q := openQueue(t)
		enqueue(t, q, clockIn("e1", clockTime))
		l := ledger.NewInstance(unavailableStore{ledgerstore.NewMemoryStore()}, 3)
		newInstance(q, l, Config{Batch: 10, Interval: time.Minute}).handle(context.TODO())

		list, err := q.Pending(context.TODO(), 5, 0)
		require.Nil(t, err)
		require.Len(t, list, 1)
		require.Equal(t, 0, list[0].RetryCount)
	})

	t.Run(`rejected actions count retries and are skipped after the limit`, func(t *testing.T) {
		q := openQueue(t)
		missing := "missing"
		enqueue(t, q, offlinequeue.Payload{
			OrganizationID: "org",
			EmployeeID:     "e1",
			Entry: &ledgerapimodels.AppendEntryData{
				Kind:            models.EntryKindCorrection,
				Timestamp:       clockTime,
				CorrectsEntryID: &missing,
			},
		})
		enqueue(t, q, clockIn("e2", clockTime))
		store := ledgerstore.NewMemoryStore()
		w := newInstance(q, ledger.NewInstance(store, 3), Config{MaxRetries: 2, Batch: 10, Interval: time.Minute})
		for n := 0; n < 3; n++ {
			w.handle(context.TODO())
		}
		list, err := q.Pending(context.TODO(), 2, 0)
		require.Nil(t, err)
		require.Empty(t, list)
		count, err := q.Count(context.TODO())
		require.Nil(t, err)
		require.Equal(t, int64(1), count)
		tail, err := store.GetTail(context.TODO(), "e2")
		require.Nil(t, err)
		require.Equal(t, int64(1), tail.Length)
	})
}
