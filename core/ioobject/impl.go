// Package ioobject holds the state shared by every I/O object wrapper: the
// execution context it is bound to, the backend service of that context, and
// the implementation state it exclusively owns.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package ioobject

import (
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
)

// Impl owns one implementation state of type I. It is not safe for
// concurrent use.
type Impl[I api.Implementation] struct {
	ctx  *concurrency.IOContext
	svc  api.Service[I]
	impl I
}

// New binds a fresh unopened state from svc to ctx.
func New[I api.Implementation](ctx *concurrency.IOContext, svc api.Service[I]) *Impl[I] {
	return &Impl[I]{ctx: ctx, svc: svc, impl: svc.Construct()}
}

// Move transfers src's state and context to a new Impl. src is left holding
// a fresh unopened state on its original context.
func Move[I api.Implementation](src *Impl[I]) *Impl[I] {
	dst := &Impl[I]{ctx: src.ctx, svc: src.svc, impl: src.impl}
	src.impl = src.svc.Construct()
	return dst
}

// MoveFrom destroys the current state and takes over src's state and
// context. src is left holding a fresh unopened state on its original
// context. Moving from itself does nothing.
func (o *Impl[I]) MoveFrom(src *Impl[I]) {
	if o == src {
		return
	}
	o.impl.Destroy()
	o.ctx, o.svc, o.impl = src.ctx, src.svc, src.impl
	src.impl = src.svc.Construct()
}

// Destroy cancels outstanding operations and releases the native handle.
// The holder is left with a fresh unopened state.
func (o *Impl[I]) Destroy() {
	o.impl.Destroy()
	o.impl = o.svc.Construct()
}

// Implementation returns the owned state.
func (o *Impl[I]) Implementation() I { return o.impl }

// Service returns the backend service of the bound context.
func (o *Impl[I]) Service() api.Service[I] { return o.svc }

// Context returns the bound execution context.
func (o *Impl[I]) Context() *concurrency.IOContext { return o.ctx }

// Executor returns the executor of the bound context.
func (o *Impl[I]) Executor() concurrency.Executor { return o.ctx.Executor() }
