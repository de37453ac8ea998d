//go:build windows

// File: internal/backend/serial_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Proactive serial line service: overlapped ReadFile/WriteFile completed
// through the context's completion port, DCB based line settings.

package backend

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

// DCB flag bits.
const (
	dcbBinary         = 0x0001
	dcbDTRControl     = 0x0030
	dcbDTRControlOn   = 0x0010
	dcbDSRSensitivity = 0x0040
	dcbNull           = 0x0800
	dcbAbortOnError   = 0x4000
)

const breakDuration = 250 * time.Millisecond

type serialService struct {
	ex   concurrency.Executor
	iocp *iocpService
	log  zerolog.Logger
}

// NewSerialService returns the serial backend for ctx.
func NewSerialService(ctx *concurrency.IOContext) api.SerialService {
	return &serialService{
		ex:   ctx.Executor(),
		iocp: useIOCP(ctx),
		log:  ctx.Logger().With().Str("component", "serial").Logger(),
	}
}

func (s *serialService) Construct() api.SerialImplementation {
	return &serialPort{svc: s, h: windows.InvalidHandle}
}

type serialPort struct {
	svc *serialService

	mu    sync.Mutex
	h     windows.Handle
	state api.State
}

func (p *serialPort) Open(device string) error {
	if p.IsOpen() {
		return api.ErrAlreadyOpen
	}
	name := device
	if !strings.HasPrefix(name, `\\.\`) {
		name = `\\.\` + name
	}
	path, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return api.ErrInvalidArgument
	}
	h, err := windows.CreateFile(path, windows.GENERIC_READ|windows.GENERIC_WRITE, 0, nil,
		windows.OPEN_EXISTING, windows.FILE_FLAG_OVERLAPPED, 0)
	if err != nil {
		return &fs.PathError{Op: "open", Path: device, Err: err}
	}
	var dcb windows.DCB
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if err := windows.GetCommState(h, &dcb); err != nil {
		_ = windows.CloseHandle(h)
		return err
	}
	dcb.Flags |= dcbBinary
	dcb.Flags = dcb.Flags&^dcbDTRControl | dcbDTRControlOn
	dcb.Flags &^= dcbDSRSensitivity | dcbNull | dcbAbortOnError
	if err := windows.SetCommState(h, &dcb); err != nil {
		_ = windows.CloseHandle(h)
		return err
	}
	// return as soon as any byte arrives
	timeouts := windows.CommTimeouts{ReadIntervalTimeout: 1}
	if err := windows.SetCommTimeouts(h, &timeouts); err != nil {
		_ = windows.CloseHandle(h)
		return err
	}
	if err := p.attach(h); err != nil {
		_ = windows.CloseHandle(h)
		return err
	}
	p.svc.log.Debug().Str("device", device).Msg("serial port opened")
	return nil
}

func (p *serialPort) Assign(h api.NativeHandle) error {
	if h == api.InvalidHandle || windows.Handle(h) == windows.InvalidHandle {
		return api.ErrInvalidArgument
	}
	return p.attach(windows.Handle(h))
}

func (p *serialPort) attach(h windows.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == api.StateOpen {
		return api.ErrAlreadyOpen
	}
	port, err := p.svc.iocp.get()
	if err != nil {
		return err
	}
	if err := port.Associate(h, 0); err != nil {
		return err
	}
	p.h, p.state = h, api.StateOpen
	return nil
}

func (p *serialPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == api.StateOpen
}

func (p *serialPort) State() api.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *serialPort) NativeHandle() api.NativeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != api.StateOpen {
		return api.InvalidHandle
	}
	return api.NativeHandle(p.h)
}

func (p *serialPort) handle() (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != api.StateOpen {
		return windows.InvalidHandle, api.ErrNotOpen
	}
	return p.h, nil
}

func (p *serialPort) Cancel() error {
	h, err := p.handle()
	if err != nil {
		return err
	}
	if err := windows.CancelIoEx(h, nil); err != nil && !errors.Is(err, windows.ERROR_NOT_FOUND) {
		return err
	}
	return nil
}

// Close cancels outstanding operations; their aborted packets still arrive
// through the completion port after the handle is closed.
func (p *serialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != api.StateOpen {
		return nil
	}
	_ = windows.CancelIoEx(p.h, nil)
	err := windows.CloseHandle(p.h)
	p.h, p.state = windows.InvalidHandle, api.StateClosed
	return err
}

func (p *serialPort) Destroy() {
	if err := p.Close(); err != nil {
		p.svc.log.Warn().Err(err).Msg("close on destroy failed")
	}
}

func (p *serialPort) SendBreak() error {
	h, err := p.handle()
	if err != nil {
		return err
	}
	if err := windows.SetCommBreak(h); err != nil {
		return err
	}
	time.Sleep(breakDuration)
	return windows.ClearCommBreak(h)
}

func (p *serialPort) SetOption(opt api.SettableOption) error {
	h, err := p.handle()
	if err != nil {
		return err
	}
	var dcb windows.DCB
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if err := windows.GetCommState(h, &dcb); err != nil {
		return err
	}
	if err := opt.Store(&dcb); err != nil {
		return err
	}
	return windows.SetCommState(h, &dcb)
}

func (p *serialPort) GetOption(opt api.GettableOption) error {
	h, err := p.handle()
	if err != nil {
		return err
	}
	var dcb windows.DCB
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if err := windows.GetCommState(h, &dcb); err != nil {
		return err
	}
	return opt.Load(&dcb)
}

// syncIO performs one overlapped transfer and waits for it on an event.
// The low bit of the event handle keeps the packet off the completion port.
func (p *serialPort) syncIO(bufs api.Buffers, write bool) (int, error) {
	h, err := p.handle()
	if err != nil {
		return 0, err
	}
	buf := bufs.First()
	if buf == nil {
		return 0, nil
	}
	ev, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(ev)
	var ov windows.Overlapped
	ov.HEvent = ev | 1
	var n uint32
	if write {
		err = windows.WriteFile(h, buf, &n, &ov)
	} else {
		err = windows.ReadFile(h, buf, &n, &ov)
	}
	if errors.Is(err, windows.ERROR_IO_PENDING) {
		err = windows.GetOverlappedResult(h, &ov, &n, true)
	}
	return transferResult(int(n), err, !write)
}

func (p *serialPort) ReadSome(bufs api.Buffers) (int, error)  { return p.syncIO(bufs, false) }
func (p *serialPort) WriteSome(bufs api.Buffers) (int, error) { return p.syncIO(bufs, true) }

func (p *serialPort) AsyncReadSome(bufs api.Buffers, h api.IOHandler) {
	p.startAsync(bufs, h, true)
}

func (p *serialPort) AsyncWriteSome(bufs api.Buffers, h api.IOHandler) {
	p.startAsync(bufs, h, false)
}

func (p *serialPort) startAsync(bufs api.Buffers, h api.IOHandler, read bool) {
	ex := p.svc.ex
	ex.OnWorkStarted()
	p.mu.Lock()
	if p.state != api.StateOpen {
		p.mu.Unlock()
		p.complete(h, 0, api.ErrNotOpen)
		return
	}
	buf := bufs.First()
	if buf == nil {
		p.mu.Unlock()
		p.complete(h, 0, nil)
		return
	}
	op := &iocpOp{owner: p, read: read, h: h}
	p.svc.iocp.track(op)
	var err error
	if read {
		err = windows.ReadFile(p.h, buf, nil, &op.ov)
	} else {
		err = windows.WriteFile(p.h, buf, nil, &op.ov)
	}
	p.mu.Unlock()
	if err != nil && !errors.Is(err, windows.ERROR_IO_PENDING) {
		// no packet is queued for an operation that failed to start
		if p.svc.iocp.untrack(op) {
			p.complete(h, 0, err)
		}
	}
}

// finish runs on the completion port goroutine.
func (p *serialPort) finish(op *iocpOp, n int, err error) {
	n, err = transferResult(n, err, op.read)
	p.complete(op.h, n, err)
}

func (p *serialPort) complete(h api.IOHandler, n int, err error) {
	p.svc.ex.Post(func() { h(n, err) })
	p.svc.ex.OnWorkFinished()
}

func transferResult(n int, err error, read bool) (int, error) {
	switch {
	case err == nil && read && n == 0:
		return 0, io.EOF
	case err == nil:
		return n, nil
	case errors.Is(err, windows.ERROR_OPERATION_ABORTED):
		return n, api.ErrOperationAborted
	case errors.Is(err, windows.ERROR_HANDLE_EOF), errors.Is(err, windows.ERROR_BROKEN_PIPE):
		return n, io.EOF
	default:
		return n, err
	}
}
