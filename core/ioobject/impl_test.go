package ioobject

import (
	"testing"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/stretchr/testify/assert"
)

type stubService struct {
	constructed int
	destroyed   int
}

func (s *stubService) Construct() api.ObjectImplementation {
	s.constructed++
	return &stubState{svc: s, id: s.constructed}
}

type stubState struct {
	svc   *stubService
	id    int
	state api.State
}

func (st *stubState) Assign(api.NativeHandle) error { st.state = api.StateOpen; return nil }
func (st *stubState) IsOpen() bool                  { return st.state == api.StateOpen }
func (st *stubState) State() api.State              { return st.state }
func (st *stubState) Close() error                  { st.state = api.StateClosed; return nil }
func (st *stubState) Cancel() error                 { return nil }
func (st *stubState) NativeHandle() api.NativeHandle {
	return api.NativeHandle(st.id)
}
func (st *stubState) Destroy()                  { st.svc.destroyed++; st.state = api.StateClosed }
func (st *stubState) Wait() error               { return nil }
func (st *stubState) AsyncWait(api.WaitHandler) {}

func TestMoveLeavesFreshState(t *testing.T) {
	ctx := concurrency.NewIOContext()
	svc := &stubService{}
	src := New[api.ObjectImplementation](ctx, svc)
	_ = src.Implementation().Assign(1)
	first := src.Implementation()

	dst := Move(src)
	assert.Same(t, first, dst.Implementation())
	assert.NotSame(t, first, src.Implementation())
	assert.False(t, src.Implementation().IsOpen())
	assert.Same(t, ctx, src.Context())
	assert.Same(t, ctx, dst.Context())
	assert.Equal(t, 0, svc.destroyed)
}

func TestMoveFromDestroysTarget(t *testing.T) {
	svc := &stubService{}
	ctxA, ctxB := concurrency.NewIOContext(), concurrency.NewIOContext()
	a := New[api.ObjectImplementation](ctxA, svc)
	b := New[api.ObjectImplementation](ctxB, svc)
	moved := a.Implementation()

	b.MoveFrom(a)
	assert.Equal(t, 1, svc.destroyed)
	assert.Same(t, moved, b.Implementation())
	assert.Same(t, ctxA, b.Context())
	assert.True(t, b.Executor().Equal(ctxA.Executor()))

	b.MoveFrom(b)
	assert.Equal(t, 1, svc.destroyed)
	assert.Same(t, moved, b.Implementation())
}

func TestDestroyReplacesState(t *testing.T) {
	svc := &stubService{}
	o := New[api.ObjectImplementation](concurrency.NewIOContext(), svc)
	_ = o.Implementation().Assign(1)
	o.Destroy()
	assert.Equal(t, 1, svc.destroyed)
	assert.Equal(t, api.StateUnopened, o.Implementation().State())
	assert.Same(t, api.Service[api.ObjectImplementation](svc), o.Service())
}
