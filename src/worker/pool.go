package worker

import (
	"context"
	"errors"
	"log"
	"sync"

	"screen-table-scanner/src/pipeline"
)

// ErrBusy is returned when the single-slot queue is already occupied.
var ErrBusy = errors.New("busy, please retry")

// ResultCallback is invoked exactly once per accepted job, from a worker
// goroutine. Callers that own a UI or event loop should post the result
// back into it rather than touch shared state here.
type ResultCallback func(res pipeline.Result, err error)

// RunFunc executes one pipeline invocation.
type RunFunc func(ctx context.Context, in pipeline.Input, opts pipeline.Options) (pipeline.Result, error)

// Pool runs pipeline jobs off the caller's goroutine with a 1-slot input
// queue (strict back-pressure).
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
	run  RunFunc

	mu     sync.Mutex
	closed bool
}

type job struct {
	ctx  context.Context
	in   pipeline.Input
	opts pipeline.Options
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0: one
// extraction per user action, never two against the same state.
func New(size int) *Pool {
	return NewWithRunner(size, pipeline.Run)
}

// NewWithRunner is New with a substitute run function.
func NewWithRunner(size int, run RunFunc) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, 1), run: run}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: starting extraction")
				res, err := p.run(j.ctx, j.in, j.opts)
				log.Printf("Worker: extraction completed, rows=%d, err=%v", res.Table.Len(), err)
				j.cb(res, err)
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. It returns
// ErrBusy without invoking cb when the job is dropped.
func (p *Pool) Submit(ctx context.Context, in pipeline.Input, opts pipeline.Options, cb ResultCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrBusy
	}
	select {
	case p.jobs <- job{ctx: ctx, in: in, opts: opts, cb: cb}:
		return nil
	default:
		return ErrBusy
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Do submits one job and waits for its callback; it is the
// synchronous convenience used by one-shot callers such as the CLI.
func (p *Pool) Do(ctx context.Context, in pipeline.Input, opts pipeline.Options) (pipeline.Result, error) {
	type outcome struct {
		res pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	if err := p.Submit(ctx, in, opts, func(res pipeline.Result, err error) {
		done <- outcome{res, err}
	}); err != nil {
		return pipeline.Result{}, err
	}
	o := <-done
	return o.res, o.err
}
