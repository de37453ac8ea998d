package serial_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/momentics/hioload-io/fake"
	"github.com/momentics/hioload-io/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devName = "/dev/ttyFAKE0"

func newFixture(t *testing.T) (*concurrency.IOContext, *fake.Device) {
	t.Helper()
	ctx := concurrency.NewIOContext()
	svc, err := fake.Install(ctx)
	require.NoError(t, err)
	t.Cleanup(ctx.Shutdown)
	return ctx, svc.AddDevice(devName)
}

// drain runs ctx until it runs out of work and re-arms it.
func drain(ctx *concurrency.IOContext) int {
	n := ctx.Run()
	ctx.Restart()
	return n
}

type ioResult struct {
	n   int
	err error
}

func recorder(out *[]ioResult) api.IOHandler {
	return func(n int, err error) { *out = append(*out, ioResult{n, err}) }
}

func requireOpError(t *testing.T, op string, code api.ErrorCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		var oe *api.OpError
		require.True(t, errors.As(r.(error), &oe))
		assert.Equal(t, op, oe.Op)
		assert.Equal(t, code, oe.Code)
	}()
	fn()
}

func TestNotOpenPrecondition(t *testing.T) {
	ctx, _ := newFixture(t)
	p := serial.NewPort(ctx)

	assert.False(t, p.IsOpen())
	assert.Equal(t, api.StateUnopened, p.State())
	assert.Equal(t, api.InvalidHandle, p.NativeHandle())

	_, err := p.ReadSome(api.Buffer(make([]byte, 4)))
	assert.ErrorIs(t, err, api.ErrNotOpen)
	_, err = p.WriteSome(api.Buffer([]byte("x")))
	assert.ErrorIs(t, err, api.ErrNotOpen)
	assert.ErrorIs(t, p.SendBreak(), api.ErrNotOpen)
	assert.ErrorIs(t, p.Cancel(), api.ErrNotOpen)
	assert.NoError(t, p.Close())

	requireOpError(t, "read_some", api.ErrCodeNotOpen, func() { p.MustReadSome(api.Buffer(make([]byte, 1))) })
	requireOpError(t, "send_break", api.ErrCodeNotOpen, p.MustSendBreak)

	var got []ioResult
	p.AsyncReadSome(api.Buffer(make([]byte, 4)), recorder(&got))
	assert.Empty(t, got, "handler ran inside the initiating call")
	assert.Equal(t, 1, drain(ctx))
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].err, api.ErrNotOpen)
}

func TestOpenDeviceNotFound(t *testing.T) {
	ctx, _ := newFixture(t)
	p := serial.NewPort(ctx)

	err := p.Open("device-X")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, api.ErrCodeNotFound, api.CodeOf(err))
	assert.False(t, p.IsOpen())

	requireOpError(t, "open", api.ErrCodeNotFound, func() { p.MustOpen("device-X") })

	_, err = serial.OpenPort(ctx, "device-X")
	var oe *api.OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "open", oe.Op)
	assert.Equal(t, "device-X", oe.Context["device"])
}

func TestOpenTwiceAndBusy(t *testing.T) {
	ctx, _ := newFixture(t)
	p, err := serial.OpenPort(ctx, devName)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Open(devName), api.ErrAlreadyOpen)

	q := serial.NewPort(ctx)
	assert.ErrorIs(t, q.Open(devName), fake.ErrBusy)
}

func TestInjectedOpenFailure(t *testing.T) {
	ctx, dev := newFixture(t)
	boom := errors.New("permission denied")
	dev.FailOpen(boom)
	p := serial.NewPort(ctx)
	assert.Same(t, boom, p.Open(devName))
	requireOpError(t, "open", api.ErrCodeInternal, func() { p.MustOpen(devName) })
}

func TestAsyncReadThenCloseAborts(t *testing.T) {
	ctx, _ := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)

	var got []ioResult
	p.AsyncReadSome(api.Buffer(make([]byte, 8)), recorder(&got))
	require.NoError(t, p.Close())
	assert.False(t, p.IsOpen())
	assert.Equal(t, api.StateClosed, p.State())
	assert.Empty(t, got)

	drain(ctx)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].err, api.ErrOperationAborted)
	assert.Zero(t, got[0].n)
}

func TestCancelAbortsAllQueuedReads(t *testing.T) {
	ctx, _ := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)

	var got []ioResult
	for i := 0; i < 3; i++ {
		p.AsyncReadSome(api.Buffer(make([]byte, 8)), recorder(&got))
	}
	p.MustCancel()
	assert.True(t, p.IsOpen())
	drain(ctx)
	require.Len(t, got, 3)
	for _, r := range got {
		assert.ErrorIs(t, r.err, api.ErrOperationAborted)
	}
}

func TestDestroyAbortsAndResets(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)

	var got []ioResult
	p.AsyncReadSome(api.Buffer(make([]byte, 8)), recorder(&got))
	p.Destroy()
	assert.False(t, p.IsOpen())
	assert.Equal(t, api.StateUnopened, p.State())
	drain(ctx)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].err, api.ErrOperationAborted)

	// the device is free again and the port usable
	require.NoError(t, p.Assign(dev.Handle()))
	assert.Equal(t, dev.Handle(), p.NativeHandle())
}

func TestQueuedReadsCompleteInOrder(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)

	a, b := make([]byte, 1), make([]byte, 1)
	var order []string
	p.AsyncReadSome(api.Buffer(a), func(n int, err error) {
		require.NoError(t, err)
		order = append(order, "first:"+string(a[:n]))
	})
	p.AsyncReadSome(api.Buffer(b), func(n int, err error) {
		require.NoError(t, err)
		order = append(order, "second:"+string(b[:n]))
	})
	dev.Feed([]byte("xy"))
	drain(ctx)
	assert.Equal(t, []string{"first:x", "second:y"}, order)
}

func TestReadEOF(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)
	dev.Feed([]byte("ok"))
	dev.Hangup()

	data, err := io.ReadAll(p)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))

	var got []ioResult
	p.AsyncReadSome(api.Buffer(make([]byte, 4)), recorder(&got))
	drain(ctx)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].err, io.EOF)
	assert.Equal(t, api.ErrCodeEOF, api.CodeOf(got[0].err))
}

func TestHalfAcceptingWrites(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)
	payload := []byte("0123456789")
	dev.SetMaxWrite(len(payload) / 2)

	n1, err := p.WriteSome(api.Buffer(payload))
	require.NoError(t, err)
	n2 := p.MustWriteSome(api.Buffer(payload[n1:]))
	assert.Equal(t, 5, n1)
	assert.Equal(t, len(payload), n1+n2)
	assert.Equal(t, payload, dev.Written())
}

func TestWriteLoopsOverPartialWrites(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)
	dev.SetMaxWrite(3)

	payload := bytes.Repeat([]byte("ab"), 10)
	n, err := p.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, dev.Written())
}

func TestDualFormsAgree(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)
	dev.Feed([]byte("hello"))

	buf := make([]byte, 2)
	n, err := p.ReadSome(api.Buffer(buf))
	require.NoError(t, err)
	m := p.MustReadSome(api.Buffer(buf))
	assert.Equal(t, n, m)

	boom := errors.New("line fault")
	dev.FailWrites(boom)
	_, err = p.WriteSome(api.Buffer([]byte("x")))
	assert.Same(t, boom, err)
	requireOpError(t, "write_some", api.ErrCodeInternal, func() { p.MustWriteSome(api.Buffer([]byte("x"))) })
}

func TestAsyncWrite(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)

	var got []ioResult
	p.AsyncWriteSome(api.Buffers{[]byte("ab"), []byte("cd")}, recorder(&got))
	assert.Empty(t, got)
	drain(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].n)
	assert.Equal(t, "abcd", string(dev.Written()))
}

func TestMoveTransfersState(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)

	var got []ioResult
	p.AsyncReadSome(api.Buffer(make([]byte, 4)), recorder(&got))

	q := p.Move()
	assert.True(t, q.IsOpen())
	assert.False(t, p.IsOpen())
	assert.Same(t, ctx, p.Context())
	assert.Same(t, ctx, q.Context())
	assert.Equal(t, dev.Handle(), q.NativeHandle())

	// the pending read travels with the state
	dev.Feed([]byte("z"))
	drain(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].n)
}

func TestMoveFromAcrossContexts(t *testing.T) {
	ctx1, dev := newFixture(t)
	ctx2, _ := newFixture(t)

	src := serial.MustOpenPort(ctx1, devName)
	dst := serial.NewPort(ctx2)
	dst.MoveFrom(src)

	assert.True(t, dst.IsOpen())
	assert.Same(t, ctx1, dst.Context())
	assert.False(t, src.IsOpen())
	assert.Same(t, ctx1, src.Context())
	assert.Equal(t, dev.Handle(), dst.NativeHandle())

	dst.MoveFrom(dst)
	assert.True(t, dst.IsOpen())
}

func TestSendBreakAndAssign(t *testing.T) {
	ctx, dev := newFixture(t)
	p, err := serial.AssignPort(ctx, dev.Handle())
	require.NoError(t, err)
	require.NoError(t, p.SendBreak())
	assert.Equal(t, 1, dev.Breaks())

	_, err = serial.AssignPort(ctx, api.InvalidHandle)
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	assert.Panics(t, func() { serial.MustAssignPort(ctx, api.InvalidHandle) })
}

func TestCloseErrorStillCloses(t *testing.T) {
	ctx, dev := newFixture(t)
	p := serial.MustOpenPort(ctx, devName)
	boom := errors.New("flush failed")
	dev.FailClose(boom)
	assert.Same(t, boom, p.Close())
	assert.False(t, p.IsOpen())
	assert.NoError(t, p.Close())
}
