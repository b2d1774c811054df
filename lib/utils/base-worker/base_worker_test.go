package baseworker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run(`panic in one run does not stop the worker`, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		var runs int32
		w := NewInstance("TestWorker", time.Millisecond, 5*time.Millisecond)
		done := make(chan struct{})
		go func() {
			w.Run(ctx, func(ctx context.Context) {
				if atomic.AddInt32(&runs, 1) == 1 {
					panic("первый запуск")
				}
			})
			close(done)
		}()
		require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
		cancel()
		require.Eventually(t, func() bool {
			select {
			case <-done:
				return true
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})
}
