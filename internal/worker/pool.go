package worker

import (
	"context"
	"fmt"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicResult is returned in place of the result of a job that panicked
type PanicResult struct {
	Value any
}

// GetError returns the recovered panic as an error
func (r *PanicResult) GetError() error {
	return fmt.Errorf("job panicked: %v", r.Value)
}

// queued pairs a job with its submission index
type queued struct {
	index int
	job   Job
}

// indexed pairs a result with the submission index of its job
type indexed struct {
	index  int
	result Result
}

// Pool manages a fixed number of workers that execute jobs concurrently.
// Results are returned in submission order, whatever order the jobs finish in.
type Pool struct {
	workers     int
	jobQueue    chan queued
	results     chan indexed
	submitted   int
	collected   []indexed
	collectDone chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancelFunc  context.CancelFunc
	closeOnce   sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a worker pool whose jobs receive a context
// derived from parent. Cancelling parent stops the pool like Shutdown.
func NewPoolWithContext(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:     workers,
		jobQueue:    make(chan queued, workers*2),
		results:     make(chan indexed, workers*2),
		collectDone: make(chan struct{}),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Workers returns the pool size
func (p *Pool) Workers() int {
	return p.workers
}

// Start starts the worker pool and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results as they arrive so workers never block on a full
// results channel while jobs are still being submitted
func (p *Pool) collect() {
	defer close(p.collectDone)
	for r := range p.results {
		p.collected = append(p.collected, r)
	}
}

// worker is the worker goroutine that processes jobs
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := p.execute(q.job)
			select {
			case p.results <- indexed{index: q.index, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// execute runs one job; a panic becomes a PanicResult instead of killing the worker
func (p *Pool) execute(job Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &PanicResult{Value: r}
		}
	}()
	return job.Execute(p.ctx)
}

// Submit submits a job to the pool for execution.
// Submit must be called from a single goroutine.
func (p *Pool) Submit(job Job) {
	q := queued{index: p.submitted, job: job}
	p.submitted++

	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- q:
	}
}

// Wait waits for all jobs to complete and returns the results. Start must
// have been called. Slot i holds the result of the i-th submitted job; jobs dropped by
// Shutdown leave a nil slot.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone

	results := make([]Result, p.submitted)
	for _, r := range p.collected {
		results[r.index] = r.result
	}

	return results
}

// Shutdown shuts down the worker pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
