package auditpackworker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	auditpackhandler "timeledger-backend/lib/audit-pack"
	auditpackstore "timeledger-backend/lib/audit-pack/store"
	"timeledger-backend/models"
	auditpackapimodels "timeledger-backend/models/api/auditpack"
	dbmodels "timeledger-backend/models/db"
)

type handlerMock struct {
	mu        sync.Mutex
	processed map[string]int
	running   int32
	peak      int32
}

func (h *handlerMock) Submit(context.Context, auditpackapimodels.SubmitData) (*dbmodels.AuditPackRequest, bool, error) {
	return nil, false, nil
}

func (h *handlerMock) Process(_ context.Context, id string) error {
	current := atomic.AddInt32(&h.running, 1)
	defer atomic.AddInt32(&h.running, -1)
	for {
		peak := atomic.LoadInt32(&h.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&h.peak, peak, current) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processed[id]++
	if h.processed[id] > 1 {
		return auditpackhandler.ErrNotInState
	}
	return nil
}

func (h *handlerMock) Retry(context.Context, string) (*dbmodels.AuditPackRequest, error) {
	return nil, nil
}

func (h *handlerMock) FailStale(context.Context, string) error {
	return nil
}

func (h *handlerMock) Get(context.Context, string) (*dbmodels.AuditPackRequest, error) {
	return nil, nil
}

func TestHandle(t *testing.T) {
	store := auditpackstore.NewMemoryStore()
	for n := 0; n < 6; n++ {
		rec := dbmodels.AuditPackRequest{
			EmployeeIDs: []string{"e1"},
			ScopeHash:   fmt.Sprintf("scope-%d", n),
			Status:      models.AuditPackStatusPending,
		}
		rec.OrganizationID = "org"
		_, err := store.Create(context.TODO(), rec)
		require.Nil(t, err)
	}
	done := dbmodels.AuditPackRequest{EmployeeIDs: []string{"e1"}, ScopeHash: "done", Status: models.AuditPackStatusUploaded}
	done.OrganizationID = "org"
	doneID, err := store.Create(context.TODO(), done)
	require.Nil(t, err)

	handler := &handlerMock{processed: map[string]int{}}
	w := newInstance(store, handler, Config{Workers: 2, Batch: 10, Interval: time.Minute})

	t.Run(`pending requests are dispatched to a bounded pool`, func(t *testing.T) {
		w.handle(context.TODO())
		require.Len(t, handler.processed, 6)
		require.NotContains(t, handler.processed, doneID)
		require.LessOrEqual(t, atomic.LoadInt32(&handler.peak), int32(2))
	})

	t.Run(`repeated delivery is harmless`, func(t *testing.T) {
		w.handle(context.TODO())
		for _, count := range handler.processed {
			require.Equal(t, 2, count)
		}
	})
}
