// Package workerpool runs jobs on a fixed number of goroutines and hands
// each job's result back to a single collector.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reelscraper/pkg/logger"
)

// Handler processes one job. Results are returned, never shared, so
// handlers need no locking of their own.
type Handler[J, R any] func(ctx context.Context, workerID int, job J) R

// Result is the outcome of one submitted job. Err is set only when the
// job never ran because the pool was cancelled.
type Result[R any] struct {
	Index    int
	Value    R
	Err      error
	Duration time.Duration
}

type queued[J any] struct {
	index int
	job   J
}

// Pool manages concurrent workers
type Pool[J, R any] struct {
	numWorkers  int
	jobQueue    chan queued[J]
	resultQueue chan Result[R]
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	handle      Handler[J, R]
	logger      logger.Logger

	mu        sync.Mutex
	submitted int
}

// New creates a pool of numWorkers (minimum 1) bound to ctx.
func New[J, R any](ctx context.Context, numWorkers int, handle Handler[J, R], log logger.Logger) *Pool[J, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool[J, R]{
		numWorkers:  numWorkers,
		jobQueue:    make(chan queued[J], numWorkers*2),
		resultQueue: make(chan Result[R], numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		handle:      handle,
		logger:      log,
	}
}

// Start launches the workers
func (p *Pool[J, R]) Start() {
	p.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results.
func (p *Pool[J, R]) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Debug("Worker pool stopped")
}

// Submit queues a job and returns its submission index.
func (p *Pool[J, R]) Submit(job J) (int, error) {
	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case p.jobQueue <- queued[J]{index: index, job: job}:
		return index, nil
	case <-p.ctx.Done():
		return index, fmt.Errorf("worker pool is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the result channel. It is closed by Stop.
func (p *Pool[J, R]) Results() <-chan Result[R] {
	return p.resultQueue
}

func (p *Pool[J, R]) worker(id int) {
	defer p.wg.Done()

	for q := range p.jobQueue {
		select {
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		start := time.Now()
		value := p.handle(p.ctx, id, q.job)
		// a job that ran always reports, even after cancellation; the
		// collector drains resultQueue until Stop closes it
		p.resultQueue <- Result[R]{Index: q.index, Value: value, Duration: time.Since(start)}
	}
}

// Run processes jobs on numWorkers workers and returns one result per job
// in submission order. With one worker, jobs run sequentially in order.
// Jobs left unprocessed after ctx is cancelled carry ctx's error.
func Run[J, R any](ctx context.Context, numWorkers int, jobs []J, handle Handler[J, R], log logger.Logger) []Result[R] {
	results := make([]Result[R], len(jobs))
	done := make([]bool, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	pool := New(ctx, numWorkers, handle, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for _, job := range jobs {
			if _, err := pool.Submit(job); err != nil {
				return
			}
		}
	}()

	for r := range pool.Results() {
		results[r.Index] = r
		done[r.Index] = true
	}

	for i := range results {
		if !done[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = Result[R]{Index: i, Err: err}
		}
	}
	return results
}
