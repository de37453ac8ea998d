// File: core/concurrency/iocontext.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IOContext is the execution context shared by I/O objects. It owns a FIFO
// task queue of posted completions and an outstanding-work counter; Run
// dispatches queued tasks until the context is stopped or runs out of work.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TaskFunc is a posted completion.
type TaskFunc func()

// IOContext dispatches posted tasks on the goroutines that call Run.
type IOContext struct {
	mu          sync.Mutex
	cond        *sync.Cond
	tasks       *queue.Queue // TaskFunc, guarded by mu
	outstanding int64        // queued tasks + started work, guarded by mu
	stopped     bool
	shutdown    bool

	services servicesRegistry
	log      zerolog.Logger

	executed atomic.Uint64
	posted   atomic.Uint64
	panics   atomic.Uint64
}

// Option configures an IOContext.
type Option func(*IOContext)

// WithLogger sets the logger used for handler panics and service events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *IOContext) { c.log = l }
}

// NewIOContext creates a context with an empty task queue.
func NewIOContext(opts ...Option) *IOContext {
	c := &IOContext{
		tasks: queue.New(),
		log:   zerolog.Nop(),
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	c.services.init()
	return c
}

// Logger returns the context logger.
func (c *IOContext) Logger() zerolog.Logger { return c.log }

// Executor returns a handle for posting work to this context.
func (c *IOContext) Executor() Executor { return Executor{ctx: c} }

// Post queues fn. It is never invoked before Post returns, and tasks posted
// to a stopped context run after Restart.
func (c *IOContext) Post(fn TaskFunc) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.tasks.Add(fn)
	c.outstanding++
	c.mu.Unlock()
	c.posted.Add(1)
	c.cond.Signal()
}

// workStarted records outstanding work that is not a queued task.
func (c *IOContext) workStarted() {
	c.mu.Lock()
	c.outstanding++
	c.mu.Unlock()
}

// workFinished releases one unit of outstanding work.
func (c *IOContext) workFinished() {
	c.mu.Lock()
	c.outstanding--
	if c.outstanding <= 0 {
		c.outstanding = 0
		c.stopped = true
		c.mu.Unlock()
		c.cond.Broadcast()
		return
	}
	c.mu.Unlock()
}

// Run dispatches tasks until the context is stopped or has no outstanding
// work. It returns the number of tasks executed.
func (c *IOContext) Run() int {
	n := 0
	for c.runOne(true) {
		n++
	}
	return n
}

// RunOne dispatches at most one task, blocking until one is available.
func (c *IOContext) RunOne() int {
	if c.runOne(true) {
		return 1
	}
	return 0
}

// Poll dispatches every ready task without blocking.
func (c *IOContext) Poll() int {
	n := 0
	for c.runOne(false) {
		n++
	}
	return n
}

// PollOne dispatches at most one ready task without blocking.
func (c *IOContext) PollOne() int {
	if c.runOne(false) {
		return 1
	}
	return 0
}

func (c *IOContext) runOne(block bool) bool {
	c.mu.Lock()
	for {
		if c.stopped {
			c.mu.Unlock()
			return false
		}
		if c.tasks.Length() > 0 {
			task := c.tasks.Remove().(TaskFunc)
			c.mu.Unlock()
			c.execute(task)
			c.workFinished()
			return true
		}
		if c.outstanding == 0 {
			c.stopped = true
			c.mu.Unlock()
			c.cond.Broadcast()
			return false
		}
		if !block {
			c.mu.Unlock()
			return false
		}
		c.cond.Wait()
	}
}

func (c *IOContext) execute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			c.panics.Add(1)
			c.log.Error().Interface("panic", r).Msg("io context handler panicked")
		}
	}()
	task()
	c.executed.Add(1)
}

// Stop makes every Run/RunOne call return as soon as possible.
func (c *IOContext) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Stopped reports whether the context is stopped.
func (c *IOContext) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Restart clears the stopped flag so Run may be called again.
func (c *IOContext) Restart() {
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
}

// RunN runs the context on n goroutines until it stops or ctx is done.
// Cancelling ctx stops the context.
func (c *IOContext) RunN(ctx context.Context, n int) error {
	if n <= 0 {
		n = 1
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-done:
		}
	}()
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			c.Run()
			return nil
		})
	}
	err := g.Wait()
	close(done)
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Shutdown stops the context, shuts down registered services in reverse
// registration order and discards queued tasks without invoking them.
func (c *IOContext) Shutdown() {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()
	c.cond.Broadcast()

	c.services.shutdownAll()

	c.mu.Lock()
	c.shutdown = true
	dropped := c.tasks.Length()
	c.tasks = queue.New()
	c.outstanding = 0
	c.mu.Unlock()
	if dropped > 0 {
		c.log.Debug().Int("dropped", dropped).Msg("io context shutdown discarded queued handlers")
	}
}

// Stats is a snapshot of dispatch counters.
type Stats struct {
	Posted      uint64
	Executed    uint64
	Panics      uint64
	Queued      int
	Outstanding int64
}

// Stats returns the current counters.
func (c *IOContext) Stats() Stats {
	c.mu.Lock()
	queued, outstanding := c.tasks.Length(), c.outstanding
	c.mu.Unlock()
	return Stats{
		Posted:      c.posted.Load(),
		Executed:    c.executed.Load(),
		Panics:      c.panics.Load(),
		Queued:      queued,
		Outstanding: outstanding,
	}
}
