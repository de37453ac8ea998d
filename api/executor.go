// Package api
// Author: momentics
//
// Executor contract for deferred completion delivery.

package api

// Executor schedules completions on an execution context.
type Executor interface {
	// Post queues fn for later invocation. fn is never run before Post
	// returns.
	Post(fn func())

	// OnWorkStarted records one unit of outstanding work, keeping the
	// context's run loop alive while no task is queued.
	OnWorkStarted()

	// OnWorkFinished releases a unit recorded by OnWorkStarted.
	OnWorkFinished()
}
