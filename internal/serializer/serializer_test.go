package serializer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockLane occupies the worker until the returned function is called.
func blockLane(t *testing.T, s *Serializer) func() {
	t.Helper()
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = s.Submit(context.Background(), "gate", func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var once sync.Once
	return func() { once.Do(func() { close(release) }) }
}

func TestSubmitRunsInSubmissionOrder(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Close()

	release := blockLane(t, s)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Submit(context.Background(), "append", func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
		require.Eventually(t, func() bool { return len(s.jobs) == i+1 }, time.Second, time.Millisecond)
	}

	release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestSubmitNeverOverlapsOperations(t *testing.T) {
	s := New(zap.NewNop(), WithQueueSize(4))
	defer s.Close()

	var active, maxActive, total int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Submit(context.Background(), "count", func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(100 * time.Microsecond)
				atomic.AddInt32(&total, 1)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Equal(t, int32(50), total)
}

func TestFailuresDoNotBlockTheLane(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Close()

	boom := errors.New("boom")
	err := s.Submit(context.Background(), "fails", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = s.Submit(context.Background(), "panics", func(ctx context.Context) error { panic("bad state") })
	assert.ErrorIs(t, err, ErrPanic)
	assert.ErrorContains(t, err, "bad state")

	ran := false
	err = s.Submit(context.Background(), "after", func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestQueuedOperationIsSkippedWhenCallerGivesUp(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Close()

	release := blockLane(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var ran atomic.Bool
	err := s.Submit(ctx, "late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	require.NoError(t, s.Submit(context.Background(), "sync", func(ctx context.Context) error { return nil }))
	assert.False(t, ran.Load())
}

func TestRunningOperationIsNotCancelled(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	cancelled := make(chan struct{})

	var seen error
	go func() {
		<-started
		cancel()
		close(cancelled)
	}()

	err := s.Submit(ctx, "long", func(opCtx context.Context) error {
		close(started)
		<-cancelled
		seen = opCtx.Err()
		return nil
	})

	assert.NoError(t, err)
	assert.NoError(t, seen)
}

func TestDoReturnsValue(t *testing.T) {
	s := New(zap.NewNop())
	defer s.Close()

	v, err := Do(context.Background(), s, "answer", func(ctx context.Context) (int, error) { return 42, nil })
	assert.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = Do(context.Background(), s, "nothing", func(ctx context.Context) (string, error) {
		return "ignored", errors.New("nope")
	})
	assert.EqualError(t, err, "nope")
}

func TestCloseDrainsQueueAndRejectsNewWork(t *testing.T) {
	s := New(zap.NewNop())
	release := blockLane(t, s)

	var done atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Submit(context.Background(), "queued", func(ctx context.Context) error {
				done.Add(1)
				return nil
			})
		}()
	}
	require.Eventually(t, func() bool { return len(s.jobs) == 3 }, time.Second, time.Millisecond)

	release()
	s.Close()
	wg.Wait()

	assert.Equal(t, int32(3), done.Load())
	assert.ErrorIs(t, s.Submit(context.Background(), "too late", func(ctx context.Context) error { return nil }), ErrClosed)
}

func TestMetricsAreRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(zap.NewNop(), WithRegisterer(reg))
	defer s.Close()

	_ = s.Submit(context.Background(), "use_vial", func(ctx context.Context) error { return nil })
	_ = s.Submit(context.Background(), "use_vial", func(ctx context.Context) error { return errors.New("conflict") })

	assert.Equal(t, 1.0, testutil.ToFloat64(s.outcomes.WithLabelValues("use_vial", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.outcomes.WithLabelValues("use_vial", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.depth))

	count, err := testutil.GatherAndCount(reg, "vials_write_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQueueDepthCountsOnlyAdmittedWork(t *testing.T) {
	s := New(zap.NewNop(), WithQueueSize(1))
	defer s.Close()

	release := blockLane(t, s)
	defer release()

	queued := make(chan error, 1)
	go func() {
		queued <- s.Submit(context.Background(), "queued", func(ctx context.Context) error { return nil })
	}()
	require.Eventually(t, func() bool { return len(s.jobs) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.depth))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Submit(ctx, "rejected", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.depth))

	release()
	require.NoError(t, <-queued)
	assert.Equal(t, 0.0, testutil.ToFloat64(s.depth))
}
