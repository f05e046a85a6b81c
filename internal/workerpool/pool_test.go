package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelscraper/pkg/logger"
)

func TestRunPreservesOrder(t *testing.T) {
	jobs := []int{1, 2, 3, 4, 5, 6, 7, 8}

	results := Run(context.Background(), 4, jobs, func(ctx context.Context, workerID int, job int) int {
		time.Sleep(time.Duration(8-job) * time.Millisecond)
		return job * job
	}, logger.NewNopLogger())

	require.Len(t, results, len(jobs))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.NoError(t, r.Err)
		assert.Equal(t, jobs[i]*jobs[i], r.Value)
	}
}

func TestRunSingleWorkerIsSequential(t *testing.T) {
	var mu sync.Mutex
	var order []string
	var running, maxRunning int32

	jobs := []string{"a", "b", "c", "d"}
	Run(context.Background(), 1, jobs, func(ctx context.Context, workerID int, job string) struct{} {
		n := atomic.AddInt32(&running, 1)
		if n > atomic.LoadInt32(&maxRunning) {
			atomic.StoreInt32(&maxRunning, n)
		}
		mu.Lock()
		order = append(order, job)
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return struct{}{}
	}, logger.NewNopLogger())

	assert.Equal(t, jobs, order)
	assert.Equal(t, int32(1), maxRunning)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var running, maxRunning int32
	jobs := make([]int, 20)

	Run(context.Background(), 3, jobs, func(ctx context.Context, workerID int, job int) int {
		n := atomic.AddInt32(&running, 1)
		for {
			m := atomic.LoadInt32(&maxRunning)
			if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return 0
	}, logger.NewNopLogger())

	assert.LessOrEqual(t, maxRunning, int32(3))
	assert.Greater(t, maxRunning, int32(1))
}

func TestRunEmpty(t *testing.T) {
	results := Run(context.Background(), 2, []int(nil), func(ctx context.Context, workerID int, job int) int {
		t.Error("handler must not be called")
		return 0
	}, nil)
	assert.Empty(t, results)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	jobs := []int{0, 1, 2, 3, 4, 5}

	results := Run(ctx, 1, jobs, func(ctx context.Context, workerID int, job int) int {
		if job == 1 {
			cancel()
		}
		return job
	}, logger.NewNopLogger())

	require.Len(t, results, len(jobs))
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 0, results[0].Value)

	var skipped int
	for _, r := range results {
		if r.Err != nil {
			skipped++
			assert.ErrorIs(t, r.Err, context.Canceled)
		}
	}
	assert.Greater(t, skipped, 0)
}

func TestRunKeepsResultOfJobFinishingAfterCancel(t *testing.T) {
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		jobs := []int{0, 1, 2}

		results := Run(ctx, 1, jobs, func(ctx context.Context, workerID int, job int) int {
			if job == 1 {
				cancel()
			}
			return job * 10
		}, logger.NewNopLogger())

		if results[1].Err != nil {
			t.Fatalf("iteration %d: job that ran was reported as skipped: %v", i, results[1].Err)
		}
		if results[1].Value != 10 {
			t.Errorf("iteration %d: Value = %d, want 10", i, results[1].Value)
		}
		assert.ErrorIs(t, results[2].Err, context.Canceled)
	}
}

func TestPoolSubmitAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(ctx, 1, func(ctx context.Context, workerID int, job int) int { return job }, logger.NewNopLogger())
	cancel()

	// workers never started: at most the queue capacity can be accepted
	var failed int
	for i := 0; i < 10; i++ {
		if _, err := p.Submit(i); err != nil {
			failed++
		}
	}
	assert.GreaterOrEqual(t, failed, 8)
}
