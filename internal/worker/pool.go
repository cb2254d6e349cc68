package worker

import (
	"context"
	"sync"
)

// Job is one unit of work, typically the evaluation of a single claim
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is whatever a Job produces; failures are carried, not returned
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines and streams their results
// in completion order.
//
// The lifecycle is Start, any number of Submit calls, then Close. Results is
// closed after the last queued job finishes. Shutdown abandons queued jobs.
type Pool struct {
	size    int
	jobs    chan Job
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc

	running      sync.WaitGroup
	jobsClosed   sync.Once
	resultsClose sync.Once
}

// NewPool creates a pool of size workers; size below one means one
func NewPool(size int) *Pool {
	return NewPoolWithContext(context.Background(), size)
}

// NewPoolWithContext creates a pool whose jobs see a context derived from parent
func NewPoolWithContext(parent context.Context, size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		size:    size,
		jobs:    make(chan Job, size),
		results: make(chan Result, size),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.running.Add(p.size)
	for i := 0; i < p.size; i++ {
		go p.run()
	}
}

func (p *Pool) run() {
	defer p.running.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if !p.deliver(job.Execute(p.ctx)) {
				return
			}
		}
	}
}

func (p *Pool) deliver(r Result) bool {
	select {
	case p.results <- r:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Submit queues a job. It blocks while the queue is full and drops the job
// once the pool is shut down.
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Close stops intake. Submit must not be called afterwards.
func (p *Pool) Close() {
	p.jobsClosed.Do(func() {
		close(p.jobs)
		go func() {
			p.running.Wait()
			p.closeResults()
		}()
	})
}

// Results streams results until every queued job has finished
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Wait closes the pool and collects every result. Only safe when the number
// of submitted jobs fits in the buffers; otherwise drain Results while
// submitting.
func (p *Pool) Wait() []Result {
	p.Close()
	var out []Result
	for r := range p.results {
		out = append(out, r)
	}
	return out
}

// Shutdown cancels running jobs, drops queued ones and closes Results
func (p *Pool) Shutdown() {
	p.cancel()
	p.running.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.resultsClose.Do(func() { close(p.results) })
}
