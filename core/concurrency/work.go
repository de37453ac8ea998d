// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "sync/atomic"

// WorkGuard keeps an IOContext's Run from returning for lack of work.
type WorkGuard struct {
	ex    Executor
	owned atomic.Bool
}

// MakeWorkGuard records one unit of outstanding work on ex.
func MakeWorkGuard(ex Executor) *WorkGuard {
	g := &WorkGuard{ex: ex}
	g.owned.Store(true)
	ex.OnWorkStarted()
	return g
}

// Executor returns the guarded executor.
func (g *WorkGuard) Executor() Executor { return g.ex }

// OwnsWork reports whether Reset has not been called yet.
func (g *WorkGuard) OwnsWork() bool { return g.owned.Load() }

// Reset releases the work. Further calls do nothing.
func (g *WorkGuard) Reset() {
	if g.owned.CompareAndSwap(true, false) {
		g.ex.OnWorkFinished()
	}
}
