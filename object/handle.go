// Package object wraps an opaque waitable OS object: any handle that can be
// waited on until it becomes signalled. On linux this is a pollable file
// descriptor (eventfd, timerfd, pidfd) which counts as signalled while it is
// readable; on windows it is any waitable HANDLE.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package object

import (
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/momentics/hioload-io/core/ioobject"
	"github.com/momentics/hioload-io/internal/backend"
)

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Handle is a waitable object. It is not safe for concurrent use.
type Handle struct {
	noCopy noCopy
	impl   *ioobject.Impl[api.ObjectImplementation]
}

// NewHandle returns an unopened handle bound to ctx.
func NewHandle(ctx *concurrency.IOContext) *Handle {
	svc := concurrency.UseService(ctx, backend.NewObjectService)
	return &Handle{impl: ioobject.New(ctx, svc)}
}

// AssignHandle returns a handle bound to ctx that takes ownership of h.
func AssignHandle(ctx *concurrency.IOContext, h api.NativeHandle) (*Handle, error) {
	o := NewHandle(ctx)
	if err := o.Assign(h); err != nil {
		return nil, api.NewOpError("assign", err)
	}
	return o, nil
}

// MustAssignHandle is like AssignHandle but panics on failure.
func MustAssignHandle(ctx *concurrency.IOContext, h api.NativeHandle) *Handle {
	o := NewHandle(ctx)
	o.MustAssign(h)
	return o
}

func (o *Handle) state() api.ObjectImplementation { return o.impl.Implementation() }

func (o *Handle) Executor() concurrency.Executor  { return o.impl.Executor() }
func (o *Handle) Context() *concurrency.IOContext { return o.impl.Context() }
func (o *Handle) LowestLayer() *Handle            { return o }
func (o *Handle) IsOpen() bool                    { return o.state().IsOpen() }
func (o *Handle) State() api.State                { return o.state().State() }
func (o *Handle) NativeHandle() api.NativeHandle  { return o.state().NativeHandle() }

// Move transfers o's state and context to a new Handle, leaving o unopened.
func (o *Handle) Move() *Handle {
	return &Handle{impl: ioobject.Move(o.impl)}
}

// MoveFrom releases o's state and takes over src's state and context.
func (o *Handle) MoveFrom(src *Handle) { o.impl.MoveFrom(src.impl) }

// Destroy aborts a pending wait and closes the handle.
func (o *Handle) Destroy() { o.impl.Destroy() }

// Assign takes ownership of h.
func (o *Handle) Assign(h api.NativeHandle) error { return o.state().Assign(h) }

func (o *Handle) MustAssign(h api.NativeHandle) { api.ThrowError(o.Assign(h), "assign") }

// Close aborts pending waits and closes the handle.
func (o *Handle) Close() error { return o.state().Close() }

func (o *Handle) MustClose() { api.ThrowError(o.Close(), "close") }

// Cancel aborts pending waits with api.ErrOperationAborted.
func (o *Handle) Cancel() error { return o.state().Cancel() }

func (o *Handle) MustCancel() { api.ThrowError(o.Cancel(), "cancel") }

// Wait blocks until the object is signalled.
func (o *Handle) Wait() error { return o.state().Wait() }

func (o *Handle) MustWait() { api.ThrowError(o.Wait(), "wait") }

// AsyncWait posts h to the handle's context once the object is signalled or
// the wait is aborted.
func (o *Handle) AsyncWait(h api.WaitHandler) { o.state().AsyncWait(h) }
