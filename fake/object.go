// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
)

// ObjectService is an in-memory api.ObjectService of manual-reset events.
type ObjectService struct {
	ex api.Executor

	mu      sync.Mutex
	cond    *sync.Cond
	objects map[api.NativeHandle]*Object
	next    api.NativeHandle
}

var _ api.ObjectService = (*ObjectService)(nil)

// NewObjectService returns a service posting completions to ctx.
func NewObjectService(ctx *concurrency.IOContext) *ObjectService {
	s := &ObjectService{
		ex:      ctx.Executor(),
		objects: make(map[api.NativeHandle]*Object),
		next:    1000,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// InstallObjects registers a new service as the object service of ctx.
func InstallObjects(ctx *concurrency.IOContext) (*ObjectService, error) {
	s := NewObjectService(ctx)
	if err := concurrency.AddService[api.ObjectService](ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// NewObject creates an unsignalled object.
func (s *ObjectService) NewObject() *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &Object{svc: s, handle: s.next}
	s.next++
	s.objects[o.handle] = o
	return o
}

func (s *ObjectService) Construct() api.ObjectImplementation {
	return &objectHandle{svc: s}
}

// Object is a manual-reset event.
type Object struct {
	svc       *ObjectService
	handle    api.NativeHandle
	signalled bool
	owner     *objectHandle
}

func (o *Object) Handle() api.NativeHandle { return o.handle }

// Signal sets the object and completes every pending wait.
func (o *Object) Signal() {
	o.svc.mu.Lock()
	o.signalled = true
	var done []api.WaitHandler
	if o.owner != nil {
		done, o.owner.waits = o.owner.waits, nil
	}
	o.svc.mu.Unlock()
	o.svc.cond.Broadcast()
	o.svc.post(done, nil)
}

// Reset clears the signalled state.
func (o *Object) Reset() {
	o.svc.mu.Lock()
	o.signalled = false
	o.svc.mu.Unlock()
}

func (s *ObjectService) post(hs []api.WaitHandler, err error) {
	for _, h := range hs {
		h := h
		s.ex.Post(func() { h(err) })
		s.ex.OnWorkFinished()
	}
}

type objectHandle struct {
	svc   *ObjectService
	obj   *Object
	state api.State
	waits []api.WaitHandler
	epoch uint64
}

func (h *objectHandle) lock() func() { h.svc.mu.Lock(); return h.svc.mu.Unlock }

func (h *objectHandle) Assign(nh api.NativeHandle) error {
	defer h.lock()()
	if h.state == api.StateOpen {
		return api.ErrAlreadyOpen
	}
	o := h.svc.objects[nh]
	if o == nil {
		return api.ErrInvalidArgument
	}
	if o.owner != nil {
		return ErrBusy
	}
	o.owner, h.obj, h.state = h, o, api.StateOpen
	return nil
}

func (h *objectHandle) IsOpen() bool     { defer h.lock()(); return h.state == api.StateOpen }
func (h *objectHandle) State() api.State { defer h.lock()(); return h.state }

func (h *objectHandle) NativeHandle() api.NativeHandle {
	defer h.lock()()
	if h.state != api.StateOpen {
		return api.InvalidHandle
	}
	return h.obj.handle
}

func (h *objectHandle) Cancel() error {
	h.svc.mu.Lock()
	if h.state != api.StateOpen {
		h.svc.mu.Unlock()
		return api.ErrNotOpen
	}
	aborted := h.waits
	h.waits = nil
	h.epoch++
	h.svc.mu.Unlock()
	h.svc.cond.Broadcast()
	h.svc.post(aborted, api.ErrOperationAborted)
	return nil
}

func (h *objectHandle) Close() error {
	h.svc.mu.Lock()
	if h.state != api.StateOpen {
		h.svc.mu.Unlock()
		return nil
	}
	aborted := h.waits
	h.waits = nil
	h.epoch++
	h.obj.owner, h.obj, h.state = nil, nil, api.StateClosed
	h.svc.mu.Unlock()
	h.svc.cond.Broadcast()
	h.svc.post(aborted, api.ErrOperationAborted)
	return nil
}

func (h *objectHandle) Destroy() { _ = h.Close() }

func (h *objectHandle) Wait() error {
	defer h.lock()()
	if h.state != api.StateOpen {
		return api.ErrNotOpen
	}
	epoch := h.epoch
	for !h.obj.signalled {
		h.svc.cond.Wait()
		if h.state != api.StateOpen || h.epoch != epoch {
			return api.ErrOperationAborted
		}
	}
	return nil
}

func (h *objectHandle) AsyncWait(wh api.WaitHandler) {
	h.svc.ex.OnWorkStarted()
	h.svc.mu.Lock()
	switch {
	case h.state != api.StateOpen:
		h.svc.mu.Unlock()
		h.svc.post([]api.WaitHandler{wh}, api.ErrNotOpen)
	case h.obj.signalled:
		h.svc.mu.Unlock()
		h.svc.post([]api.WaitHandler{wh}, nil)
	default:
		h.waits = append(h.waits, wh)
		h.svc.mu.Unlock()
	}
}
