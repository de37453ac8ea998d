//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Waitable object service. Each asynchronous wait parks a goroutine in
// WaitForMultipleObjects on the object and a private cancel event.

package backend

import (
	"sync"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

type objectService struct {
	ex  concurrency.Executor
	log zerolog.Logger
}

// NewObjectService returns the waitable object backend for ctx.
func NewObjectService(ctx *concurrency.IOContext) api.ObjectService {
	return &objectService{
		ex:  ctx.Executor(),
		log: ctx.Logger().With().Str("component", "object").Logger(),
	}
}

func (s *objectService) Construct() api.ObjectImplementation {
	return &objectHandle{svc: s, h: windows.InvalidHandle, waits: make(map[*waitOp]struct{})}
}

type waitOp struct {
	cancel windows.Handle
	h      api.WaitHandler
}

type objectHandle struct {
	svc *objectService

	mu    sync.Mutex
	h     windows.Handle
	state api.State
	waits map[*waitOp]struct{}
}

func (o *objectHandle) Assign(h api.NativeHandle) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == api.StateOpen {
		return api.ErrAlreadyOpen
	}
	if h == api.InvalidHandle || h == 0 {
		return api.ErrInvalidArgument
	}
	o.h, o.state = windows.Handle(h), api.StateOpen
	return nil
}

func (o *objectHandle) IsOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == api.StateOpen
}

func (o *objectHandle) State() api.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *objectHandle) NativeHandle() api.NativeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != api.StateOpen {
		return api.InvalidHandle
	}
	return api.NativeHandle(o.h)
}

// abortLocked detaches every pending wait and wakes its goroutine.
func (o *objectHandle) abortLocked() []*waitOp {
	ops := make([]*waitOp, 0, len(o.waits))
	for op := range o.waits {
		ops = append(ops, op)
		_ = windows.SetEvent(op.cancel)
	}
	o.waits = make(map[*waitOp]struct{})
	return ops
}

func (o *objectHandle) Cancel() error {
	o.mu.Lock()
	if o.state != api.StateOpen {
		o.mu.Unlock()
		return api.ErrNotOpen
	}
	ops := o.abortLocked()
	o.mu.Unlock()
	for _, op := range ops {
		o.complete(op.h, api.ErrOperationAborted)
	}
	return nil
}

func (o *objectHandle) Close() error {
	o.mu.Lock()
	if o.state != api.StateOpen {
		o.mu.Unlock()
		return nil
	}
	ops := o.abortLocked()
	err := windows.CloseHandle(o.h)
	o.h, o.state = windows.InvalidHandle, api.StateClosed
	o.mu.Unlock()
	for _, op := range ops {
		o.complete(op.h, api.ErrOperationAborted)
	}
	return err
}

func (o *objectHandle) Destroy() {
	if err := o.Close(); err != nil {
		o.svc.log.Warn().Err(err).Msg("close on destroy failed")
	}
}

func (o *objectHandle) Wait() error {
	o.mu.Lock()
	if o.state != api.StateOpen {
		o.mu.Unlock()
		return api.ErrNotOpen
	}
	h := o.h
	o.mu.Unlock()
	_, err := windows.WaitForSingleObject(h, windows.INFINITE)
	return err
}

func (o *objectHandle) AsyncWait(h api.WaitHandler) {
	o.svc.ex.OnWorkStarted()
	o.mu.Lock()
	if o.state != api.StateOpen {
		o.mu.Unlock()
		o.complete(h, api.ErrNotOpen)
		return
	}
	cancel, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		o.mu.Unlock()
		o.complete(h, err)
		return
	}
	op := &waitOp{cancel: cancel, h: h}
	o.waits[op] = struct{}{}
	handle := o.h
	o.mu.Unlock()
	go o.await(handle, op)
}

func (o *objectHandle) await(handle windows.Handle, op *waitOp) {
	idx, err := windows.WaitForMultipleObjects([]windows.Handle{handle, op.cancel}, false, windows.INFINITE)
	o.mu.Lock()
	_, pending := o.waits[op]
	delete(o.waits, op)
	o.mu.Unlock()
	_ = windows.CloseHandle(op.cancel)
	if !pending {
		return
	}
	switch {
	case err != nil:
		o.complete(op.h, err)
	case idx == windows.WAIT_OBJECT_0:
		o.complete(op.h, nil)
	default:
		o.complete(op.h, api.ErrOperationAborted)
	}
}

func (o *objectHandle) complete(h api.WaitHandler, err error) {
	o.svc.ex.Post(func() { h(err) })
	o.svc.ex.OnWorkFinished()
}
