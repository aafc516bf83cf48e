package dbqueue

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/lastword/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *Queue {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(nil, logger)
}

func TestDo_ReturnsOperationError(t *testing.T) {
	q := newTestQueue()
	defer q.Close()

	want := errors.New("boom")
	err := q.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
		return want
	})
	assert.ErrorIs(t, err, want)
}

func TestDo_ConcurrentOpsRunExactlyOnceWithoutOverlap(t *testing.T) {
	q := newTestQueue()
	defer q.Close()

	const n = 64

	var inFlight int32
	var executed int32
	// Written only from inside queue ops; the queue itself is the mutex.
	seen := make(map[int]bool)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := q.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
				if !atomic.CompareAndSwapInt32(&inFlight, 0, 1) {
					t.Error("two operations executing at once")
				}
				if seen[i] {
					t.Errorf("operation %d executed twice", i)
				}
				seen[i] = true
				atomic.AddInt32(&executed, 1)
				atomic.StoreInt32(&inFlight, 0)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(n), atomic.LoadInt32(&executed))
	assert.Len(t, seen, n)
}

func TestDo_FIFOFromSingleSubmitter(t *testing.T) {
	q := newTestQueue()
	defer q.Close()

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, q.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
			order = append(order, i)
			return nil
		}))
	}

	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestDo_PanicIsIsolatedToSubmitter(t *testing.T) {
	q := newTestQueue()
	defer q.Close()

	err := q.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	// Drain loop must still be alive.
	err = q.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestDo_ContextCancelledBeforePickup(t *testing.T) {
	q := newTestQueue()
	defer q.Close()

	release := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
			<-release
			return nil
		})
	}()

	// Give the blocker time to occupy the drain goroutine.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		t.Error("cancelled operation must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
}

func TestDo_AfterCloseReturnsErrClosed(t *testing.T) {
	q := newTestQueue()
	q.Close()

	err := q.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrClosed)
}
