// File: core/concurrency/executor.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor is the lightweight handle I/O objects and services use to hand
// completions to their IOContext.

package concurrency

import "github.com/momentics/hioload-io/api"

var _ api.Executor = Executor{}

// Executor posts tasks to one IOContext. The zero value is unusable.
type Executor struct {
	ctx *IOContext
}

// Context returns the owning IOContext.
func (e Executor) Context() *IOContext { return e.ctx }

// Post queues fn on the context.
func (e Executor) Post(fn func()) { e.ctx.Post(fn) }

// Defer is Post; the context keeps no per-goroutine continuation queue.
func (e Executor) Defer(fn func()) { e.ctx.Post(fn) }

// OnWorkStarted records outstanding work on the context.
func (e Executor) OnWorkStarted() { e.ctx.workStarted() }

// OnWorkFinished releases outstanding work on the context.
func (e Executor) OnWorkFinished() { e.ctx.workFinished() }

// Equal reports whether both executors target the same context.
func (e Executor) Equal(o Executor) bool { return e.ctx == o.ctx }
