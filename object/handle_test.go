package object_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/momentics/hioload-io/fake"
	"github.com/momentics/hioload-io/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*concurrency.IOContext, *fake.ObjectService) {
	t.Helper()
	ctx := concurrency.NewIOContext()
	svc, err := fake.InstallObjects(ctx)
	require.NoError(t, err)
	t.Cleanup(ctx.Shutdown)
	return ctx, svc
}

func drain(ctx *concurrency.IOContext) {
	ctx.Run()
	ctx.Restart()
}

func TestWaitRequiresOpen(t *testing.T) {
	ctx, _ := newFixture(t)
	h := object.NewHandle(ctx)

	assert.ErrorIs(t, h.Wait(), api.ErrNotOpen)
	assert.ErrorIs(t, h.Cancel(), api.ErrNotOpen)
	assert.NoError(t, h.Close())
	assert.Panics(t, h.MustWait)

	var got []error
	h.AsyncWait(func(err error) { got = append(got, err) })
	assert.Empty(t, got)
	drain(ctx)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], api.ErrNotOpen)
}

func TestAsyncWaitSignalled(t *testing.T) {
	ctx, svc := newFixture(t)
	obj := svc.NewObject()
	h := object.MustAssignHandle(ctx, obj.Handle())

	var got []error
	h.AsyncWait(func(err error) { got = append(got, err) })
	h.AsyncWait(func(err error) { got = append(got, err) })
	obj.Signal()
	assert.Empty(t, got)
	drain(ctx)
	assert.Equal(t, []error{nil, nil}, got)

	// manual reset: still signalled
	require.NoError(t, h.Wait())
	obj.Reset()
	h.AsyncWait(func(err error) { got = append(got, err) })
	require.NoError(t, h.Close())
	drain(ctx)
	require.Len(t, got, 3)
	assert.ErrorIs(t, got[2], api.ErrOperationAborted)
}

func TestBlockingWaitAbortedByCancel(t *testing.T) {
	ctx, svc := newFixture(t)
	obj := svc.NewObject()
	h, err := object.AssignHandle(ctx, obj.Handle())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()
	// Cancel only releases waiters that are already blocked; keep trying
	// until the waiter observes it.
	for {
		require.NoError(t, h.Cancel())
		select {
		case err := <-done:
			assert.ErrorIs(t, err, api.ErrOperationAborted)
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func TestDestroyAndMove(t *testing.T) {
	ctx, svc := newFixture(t)
	obj := svc.NewObject()
	h := object.MustAssignHandle(ctx, obj.Handle())

	var got []error
	h.AsyncWait(func(err error) { got = append(got, err) })
	moved := h.Move()
	assert.False(t, h.IsOpen())
	assert.True(t, moved.IsOpen())
	assert.Equal(t, obj.Handle(), moved.NativeHandle())

	moved.Destroy()
	assert.False(t, moved.IsOpen())
	drain(ctx)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], api.ErrOperationAborted)

	_, err := object.AssignHandle(ctx, api.NativeHandle(42))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}
