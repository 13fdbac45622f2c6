package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrWorkerStopped is returned by Do after Stop.
var ErrWorkerStopped = errors.New("server: compile worker stopped")

// compileRequest represents a unit of work to be executed by a worker
// goroutine.
type compileRequest struct {
	fn   func() (any, error)
	done chan compileResult
}

// compileResult holds the return value from a job.
type compileResult struct {
	value any
	err   error
}

// CompileWorker runs compile jobs on a fixed set of goroutines. A compile
// is a pure function of its source, so jobs need no shared state; the
// worker exists to bound concurrency, to recover panics and to give every
// job a deadline.
type CompileWorker struct {
	requests chan compileRequest
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCompileWorker creates a CompileWorker with n goroutines (at least one)
// and starts them.
func NewCompileWorker(n int) *CompileWorker {
	if n < 1 {
		n = 1
	}
	w := &CompileWorker{
		requests: make(chan compileRequest, 64),
		quit:     make(chan struct{}),
	}
	w.wg.Add(n)
	for i := 0; i < n; i++ {
		go w.loop()
	}
	return w
}

// loop processes requests sequentially on one goroutine.
func (w *CompileWorker) loop() {
	defer w.wg.Done()
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a job, recovering from panics.
func (w *CompileWorker) execute(fn func() (any, error)) (result compileResult) {
	defer func() {
		if r := recover(); r != nil {
			result = compileResult{err: fmt.Errorf("server: compile job panicked: %v", r)}
		}
	}()
	v, err := fn()
	return compileResult{value: v, err: err}
}

// Do submits fn and blocks until it completes or ctx is done. When ctx
// expires first, Do returns ctx.Err() (context.DeadlineExceeded for a
// timeout); the job still runs to completion and its result is dropped.
func (w *CompileWorker) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	req := compileRequest{
		fn:   fn,
		done: make(chan compileResult, 1),
	}

	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts down the worker goroutines once the jobs they are running
// finish. It is safe to call more than once.
func (w *CompileWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	w.wg.Wait()
}
