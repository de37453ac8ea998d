// File: serial/port.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package serial

import (
	"io"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/momentics/hioload-io/core/ioobject"
	"github.com/momentics/hioload-io/internal/backend"
)

// noCopy flags accidental copies under go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Port is a serial line.
type Port struct {
	noCopy noCopy
	impl   *ioobject.Impl[api.SerialImplementation]
}

var (
	_ io.Reader = (*Port)(nil)
	_ io.Writer = (*Port)(nil)
)

// NewPort returns an unopened port bound to ctx. The serial service of ctx
// is created on first use.
func NewPort(ctx *concurrency.IOContext) *Port {
	svc := concurrency.UseService(ctx, backend.NewSerialService)
	return &Port{impl: ioobject.New(ctx, svc)}
}

// OpenPort returns a port bound to ctx and opened on device.
func OpenPort(ctx *concurrency.IOContext, device string) (*Port, error) {
	p := NewPort(ctx)
	if err := p.Open(device); err != nil {
		return nil, api.NewOpError("open", err).WithContext("device", device)
	}
	return p, nil
}

// AssignPort returns a port bound to ctx that takes ownership of h.
func AssignPort(ctx *concurrency.IOContext, h api.NativeHandle) (*Port, error) {
	p := NewPort(ctx)
	if err := p.Assign(h); err != nil {
		return nil, api.NewOpError("assign", err)
	}
	return p, nil
}

// MustOpenPort is like OpenPort but panics on failure.
func MustOpenPort(ctx *concurrency.IOContext, device string) *Port {
	p := NewPort(ctx)
	p.MustOpen(device)
	return p
}

// MustAssignPort is like AssignPort but panics on failure.
func MustAssignPort(ctx *concurrency.IOContext, h api.NativeHandle) *Port {
	p := NewPort(ctx)
	p.MustAssign(h)
	return p
}

// Executor returns the executor of the bound context.
func (p *Port) Executor() concurrency.Executor { return p.impl.Executor() }

// Context returns the bound context.
func (p *Port) Context() *concurrency.IOContext { return p.impl.Context() }

// LowestLayer returns p; a serial port is not layered.
func (p *Port) LowestLayer() *Port { return p }

// Move transfers p's state and context to a new Port. p is left unopened
// on its own context.
func (p *Port) Move() *Port {
	return &Port{impl: ioobject.Move(p.impl)}
}

// MoveFrom releases p's current state, as Destroy does, and takes over
// src's state and context. src is left unopened on its own context.
func (p *Port) MoveFrom(src *Port) {
	p.impl.MoveFrom(src.impl)
}

// Destroy aborts outstanding operations and closes the line. The port may
// be reopened afterwards.
func (p *Port) Destroy() { p.impl.Destroy() }

func (p *Port) state() api.SerialImplementation { return p.impl.Implementation() }

// IsOpen reports whether the port holds an open line.
func (p *Port) IsOpen() bool { return p.state().IsOpen() }

// State returns the lifecycle state.
func (p *Port) State() api.State { return p.state().State() }

// NativeHandle returns the OS handle, or api.InvalidHandle when not open.
func (p *Port) NativeHandle() api.NativeHandle { return p.state().NativeHandle() }

// Open opens device, for example "/dev/ttyUSB0" or "COM3".
func (p *Port) Open(device string) error { return p.state().Open(device) }

// MustOpen is like Open but panics on failure.
func (p *Port) MustOpen(device string) { api.ThrowError(p.Open(device), "open") }

// Assign takes ownership of an already open native handle.
func (p *Port) Assign(h api.NativeHandle) error { return p.state().Assign(h) }

// MustAssign is like Assign but panics on failure.
func (p *Port) MustAssign(h api.NativeHandle) { api.ThrowError(p.Assign(h), "assign") }

// Close aborts outstanding operations and closes the line. Closing a port
// that is not open succeeds.
func (p *Port) Close() error { return p.state().Close() }

// MustClose is like Close but panics on failure.
func (p *Port) MustClose() { api.ThrowError(p.Close(), "close") }

// Cancel aborts outstanding asynchronous operations with
// api.ErrOperationAborted.
func (p *Port) Cancel() error { return p.state().Cancel() }

// MustCancel is like Cancel but panics on failure.
func (p *Port) MustCancel() { api.ThrowError(p.Cancel(), "cancel") }

// SendBreak transmits a break condition.
func (p *Port) SendBreak() error { return p.state().SendBreak() }

// MustSendBreak is like SendBreak but panics on failure.
func (p *Port) MustSendBreak() { api.ThrowError(p.SendBreak(), "send_break") }

// SetOption applies a line setting, see package options.
func (p *Port) SetOption(opt api.SettableOption) error { return p.state().SetOption(opt) }

// MustSetOption is like SetOption but panics on failure.
func (p *Port) MustSetOption(opt api.SettableOption) {
	api.ThrowError(p.SetOption(opt), "set_option")
}

// GetOption reads a line setting into opt.
func (p *Port) GetOption(opt api.GettableOption) error { return p.state().GetOption(opt) }

// MustGetOption is like GetOption but panics on failure.
func (p *Port) MustGetOption(opt api.GettableOption) {
	api.ThrowError(p.GetOption(opt), "get_option")
}

// ReadSome blocks until at least one byte is read into bufs. It returns
// io.EOF when the line is closed by the peer.
func (p *Port) ReadSome(bufs api.Buffers) (int, error) { return p.state().ReadSome(bufs) }

// MustReadSome is like ReadSome but panics on failure.
func (p *Port) MustReadSome(bufs api.Buffers) int {
	n, err := p.ReadSome(bufs)
	api.ThrowError(err, "read_some")
	return n
}

// WriteSome blocks until at least one byte from bufs is written. It may
// write fewer bytes than bufs holds.
func (p *Port) WriteSome(bufs api.Buffers) (int, error) { return p.state().WriteSome(bufs) }

// MustWriteSome is like WriteSome but panics on failure.
func (p *Port) MustWriteSome(bufs api.Buffers) int {
	n, err := p.WriteSome(bufs)
	api.ThrowError(err, "write_some")
	return n
}

// AsyncReadSome starts a read into bufs. h is posted to the port's context
// exactly once; bufs must stay valid until then.
func (p *Port) AsyncReadSome(bufs api.Buffers, h api.IOHandler) {
	p.state().AsyncReadSome(bufs, h)
}

// AsyncWriteSome starts a write from bufs. h is posted to the port's
// context exactly once; bufs must stay valid until then.
func (p *Port) AsyncWriteSome(bufs api.Buffers, h api.IOHandler) {
	p.state().AsyncWriteSome(bufs, h)
}

// Read implements io.Reader on top of ReadSome.
func (p *Port) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	return p.ReadSome(api.Buffer(b))
}

// Write implements io.Writer. Unlike WriteSome it keeps writing until b is
// consumed or an error occurs.
func (p *Port) Write(b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := p.WriteSome(api.Buffer(b[total:]))
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}
