package uploadqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_NeverExceedsLimit(t *testing.T) {
	q := New(5, nil)

	var current, peak, finished int32
	release := make(chan struct{})
	for i := 0; i < 12; i++ {
		q.Enqueue(fmt.Sprintf("u%d", i), func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&current, -1)
			return nil
		}, func(Result) { atomic.AddInt32(&finished, 1) })
	}

	assert.Eventually(t, func() bool { return q.Running() == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 7, q.Waiting())

	close(release)
	q.Wait()

	assert.EqualValues(t, 12, atomic.LoadInt32(&finished))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(5))
	assert.Equal(t, 0, q.Running())
	assert.Equal(t, 0, q.Waiting())
}

func TestQueue_CancelWaitingNeverRuns(t *testing.T) {
	q := New(1, nil)

	block := make(chan struct{})
	q.Enqueue("first", func(ctx context.Context) error {
		<-block
		return nil
	}, nil)

	var ran atomic.Bool
	var doneCalled atomic.Bool
	q.Enqueue("second", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}, func(Result) { doneCalled.Store(true) })

	require.True(t, q.Cancel("second"))
	assert.Equal(t, 0, q.Waiting())

	close(block)
	q.Wait()
	assert.False(t, ran.Load())
	assert.False(t, doneCalled.Load())
}

func TestQueue_CancelRunningAborts(t *testing.T) {
	q := New(2, nil)

	started := make(chan struct{})
	var result Result
	var mu sync.Mutex
	q.Enqueue("up", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, func(r Result) {
		mu.Lock()
		result = r
		mu.Unlock()
	})

	<-started
	require.True(t, q.Cancel("up"))
	q.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, result.Cancelled)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 0, q.Running())
	assert.False(t, q.Cancel("up"))
}

func TestQueue_FailureContinuesQueue(t *testing.T) {
	q := New(1, nil)

	var order []string
	var mu sync.Mutex
	record := func(id string, err error) Task {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return err
		}
	}

	q.Enqueue("a", record("a", assert.AnError), nil)
	q.Enqueue("b", record("b", nil), nil)
	q.Enqueue("c", record("c", nil), nil)
	q.Wait()

	assert.Equal(t, []string{"a", "b", "c"}, order)
}
