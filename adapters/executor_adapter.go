// File: adapters/executor_adapter.go
// Package adapters provides glue between the io context and the control layer.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ExecutorAdapter runs an IOContext on a fixed pool of worker goroutines.
// A work guard keeps the workers alive while no operation is outstanding.

package adapters

import (
	"context"
	"sync"

	"github.com/momentics/hioload-io/core/concurrency"
)

// ExecutorAdapter owns the goroutines that dispatch one IOContext.
type ExecutorAdapter struct {
	ctx     *concurrency.IOContext
	guard   *concurrency.WorkGuard
	workers int
	cancel  context.CancelFunc
	done    chan error

	mu     sync.Mutex
	closed bool
	err    error
}

// NewExecutorAdapter starts workers goroutines running ctx.
func NewExecutorAdapter(ctx *concurrency.IOContext, workers int) (*ExecutorAdapter, error) {
	if workers <= 0 {
		return nil, concurrency.ErrInvalidWorkerCount
	}
	ea := &ExecutorAdapter{
		ctx:     ctx,
		guard:   concurrency.MakeWorkGuard(ctx.Executor()),
		workers: workers,
		done:    make(chan error, 1),
	}
	ctx.Restart()
	runCtx, cancel := context.WithCancel(context.Background())
	ea.cancel = cancel
	go func() { ea.done <- ctx.RunN(runCtx, workers) }()
	return ea, nil
}

// Submit posts task to the context.
func (ea *ExecutorAdapter) Submit(task func()) error {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	if ea.closed {
		return concurrency.ErrContextStopped
	}
	ea.ctx.Post(task)
	return nil
}

// Executor returns the executor of the dispatched context.
func (ea *ExecutorAdapter) Executor() concurrency.Executor { return ea.ctx.Executor() }

// NumWorkers returns the number of dispatching goroutines.
func (ea *ExecutorAdapter) NumWorkers() int { return ea.workers }

// Close releases the work guard and waits until every outstanding
// operation has completed and its handler has run. Objects with pending
// operations must be closed first or Close blocks until they complete.
func (ea *ExecutorAdapter) Close() error {
	ea.mu.Lock()
	if ea.closed {
		ea.mu.Unlock()
		return ea.err
	}
	ea.closed = true
	ea.mu.Unlock()

	ea.guard.Reset()
	err := <-ea.done
	ea.cancel()

	ea.mu.Lock()
	ea.err = err
	ea.mu.Unlock()
	return err
}

// Stop makes the workers return at once without draining queued handlers.
func (ea *ExecutorAdapter) Stop() error {
	ea.cancel()
	return ea.Close()
}
