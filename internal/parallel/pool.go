package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of one submitted job.
type Result struct {
	Key      string
	Error    error
	Duration time.Duration
}

// WorkerPool runs jobs with bounded concurrency.
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	results    []Result
	errors     []error
	failFast   bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a worker pool. maxWorkers <= 0 means unlimited.
// With failFast the pool's context is cancelled on the first error.
func NewWorkerPool(ctx context.Context, maxWorkers int, failFast bool) *WorkerPool {
	if maxWorkers < 0 {
		maxWorkers = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
		failFast:   failFast,
		ctx:        ctx,
		cancel:     cancel,
		results:    make([]Result, 0),
	}
}

// Submit schedules fn under key. Jobs submitted after the pool is cancelled
// are dropped. fn receives the pool's context.
func (p *WorkerPool) Submit(key string, fn func(ctx context.Context) error) {
	select {
	case <-p.ctx.Done():
		return
	default:
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if p.maxWorkers > 0 {
			select {
			case p.semaphore <- struct{}{}:
				defer func() { <-p.semaphore }()
			case <-p.ctx.Done():
				return
			}
		}

		// re-check: fail-fast may have fired while waiting for a slot
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		start := time.Now()
		err := fn(p.ctx)
		result := Result{Key: key, Error: err, Duration: time.Since(start)}

		p.mu.Lock()
		defer p.mu.Unlock()

		p.results = append(p.results, result)
		if err != nil {
			p.errors = append(p.errors, fmt.Errorf("%s: %w", key, err))
			if p.failFast {
				p.cancel()
			}
		}
	}()
}

// Wait blocks until every submitted job has finished or been dropped and
// returns the results and errors.
func (p *WorkerPool) Wait() ([]Result, []error) {
	p.wg.Wait()
	p.cancel()
	return p.Results(), p.Errors()
}

// Results returns a snapshot of the results so far.
func (p *WorkerPool) Results() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]Result, len(p.results))
	copy(results, p.results)
	return results
}

// Errors returns a snapshot of the errors so far.
func (p *WorkerPool) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()

	errs := make([]error, len(p.errors))
	copy(errs, p.errors)
	return errs
}

// Cancel cancels all pending work in the pool.
func (p *WorkerPool) Cancel() {
	p.cancel()
}
