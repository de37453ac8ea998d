// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"errors"
	"io"
	"io/fs"
	"sync"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
)

// ErrBusy is returned when opening a device that another port holds.
var ErrBusy = errors.New("device busy")

// SerialService is an in-memory api.SerialService.
type SerialService struct {
	ex api.Executor

	mu      sync.Mutex
	cond    *sync.Cond
	devices map[string]*Device
	handles map[api.NativeHandle]*Device
	next    api.NativeHandle
}

var _ api.SerialService = (*SerialService)(nil)

// NewSerialService returns a service posting completions to ctx.
func NewSerialService(ctx *concurrency.IOContext) *SerialService {
	s := &SerialService{
		ex:      ctx.Executor(),
		devices: make(map[string]*Device),
		handles: make(map[api.NativeHandle]*Device),
		next:    100,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Install registers a new service as the serial service of ctx.
func Install(ctx *concurrency.IOContext) (*SerialService, error) {
	s := NewSerialService(ctx)
	if err := concurrency.AddService[api.SerialService](ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// AddDevice creates a device reachable by name and by its native handle.
func (s *SerialService) AddDevice(name string) *Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &Device{svc: s, name: name, handle: s.next}
	s.next++
	s.devices[name] = d
	s.handles[d.handle] = d
	return d
}

// Device returns the device registered under name, or nil.
func (s *SerialService) Device(name string) *Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[name]
}

func (s *SerialService) Construct() api.SerialImplementation {
	return &serialPort{svc: s}
}

// Device is the far end of a fake serial line.
type Device struct {
	svc    *SerialService
	name   string
	handle api.NativeHandle

	// guarded by svc.mu
	port     *serialPort
	rx       []byte
	tx       []byte
	eof      bool
	maxWrite int
	openErr  error
	readErr  error
	writeErr error
	closeErr error
	breaks   int
	opts     api.OptionStorage
}

func (d *Device) Name() string               { return d.name }
func (d *Device) Handle() api.NativeHandle   { return d.handle }
func (d *Device) lock() func()               { d.svc.mu.Lock(); return d.svc.mu.Unlock }
func (d *Device) FailOpen(err error)         { defer d.lock()(); d.openErr = err }
func (d *Device) FailReads(err error)        { defer d.lock()(); d.readErr = err }
func (d *Device) FailWrites(err error)       { defer d.lock()(); d.writeErr = err }
func (d *Device) FailClose(err error)        { defer d.lock()(); d.closeErr = err }
func (d *Device) Breaks() int                { defer d.lock()(); return d.breaks }
func (d *Device) Options() api.OptionStorage { defer d.lock()(); return d.opts }

// SetMaxWrite limits every write to n bytes; n <= 0 removes the limit.
func (d *Device) SetMaxWrite(n int) { defer d.lock()(); d.maxWrite = n }

// Written returns a copy of everything written to the device.
func (d *Device) Written() []byte {
	defer d.lock()()
	return append([]byte(nil), d.tx...)
}

// Feed makes b available to readers and completes queued reads.
func (d *Device) Feed(b []byte) {
	d.svc.mu.Lock()
	d.rx = append(d.rx, b...)
	done := d.serviceReadsLocked()
	d.svc.mu.Unlock()
	d.svc.cond.Broadcast()
	d.svc.post(done)
}

// Hangup makes reads report io.EOF once buffered data is consumed.
func (d *Device) Hangup() {
	d.svc.mu.Lock()
	d.eof = true
	done := d.serviceReadsLocked()
	d.svc.mu.Unlock()
	d.svc.cond.Broadcast()
	d.svc.post(done)
}

func (d *Device) serviceReadsLocked() []completion {
	p := d.port
	if p == nil {
		return nil
	}
	var done []completion
	for len(p.reads) > 0 {
		op := p.reads[0]
		n, err, ok := d.readLocked(op.bufs)
		if !ok {
			break
		}
		done = append(done, completion{h: op.h, n: n, err: err})
		p.reads = p.reads[1:]
	}
	return done
}

// readLocked reports ok=false when the read has to wait for data.
func (d *Device) readLocked(bufs api.Buffers) (n int, err error, ok bool) {
	switch {
	case d.readErr != nil:
		return 0, d.readErr, true
	case bufs.IsEmpty():
		return 0, nil, true
	case len(d.rx) > 0:
		n = bufs.CopyFrom(d.rx)
		d.rx = d.rx[n:]
		return n, nil, true
	case d.eof:
		return 0, io.EOF, true
	}
	return 0, nil, false
}

func (d *Device) writeLocked(bufs api.Buffers) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	n := bufs.Len()
	if d.maxWrite > 0 && n > d.maxWrite {
		n = d.maxWrite
	}
	b := make([]byte, n)
	bufs.CopyTo(b)
	d.tx = append(d.tx, b...)
	return n, nil
}

type completion struct {
	h   api.IOHandler
	n   int
	err error
}

func (s *SerialService) post(cs []completion) {
	for _, c := range cs {
		c := c
		s.ex.Post(func() { c.h(c.n, c.err) })
		s.ex.OnWorkFinished()
	}
}

type pendingRead struct {
	bufs api.Buffers
	h    api.IOHandler
}

type serialPort struct {
	svc   *SerialService
	dev   *Device
	state api.State
	reads []pendingRead
	// bumped on close and cancel to release blocked readers
	epoch uint64
}

func (p *serialPort) lock() func() { p.svc.mu.Lock(); return p.svc.mu.Unlock }

func (p *serialPort) Open(device string) error {
	defer p.lock()()
	if p.state == api.StateOpen {
		return api.ErrAlreadyOpen
	}
	d := p.svc.devices[device]
	if d == nil {
		return &fs.PathError{Op: "open", Path: device, Err: api.ErrNotFound}
	}
	if d.openErr != nil {
		return d.openErr
	}
	return p.attachLocked(d)
}

func (p *serialPort) Assign(h api.NativeHandle) error {
	defer p.lock()()
	if p.state == api.StateOpen {
		return api.ErrAlreadyOpen
	}
	d := p.svc.handles[h]
	if d == nil {
		return api.ErrInvalidArgument
	}
	return p.attachLocked(d)
}

func (p *serialPort) attachLocked(d *Device) error {
	if d.port != nil {
		return ErrBusy
	}
	d.port, p.dev, p.state = p, d, api.StateOpen
	return nil
}

func (p *serialPort) IsOpen() bool     { defer p.lock()(); return p.state == api.StateOpen }
func (p *serialPort) State() api.State { defer p.lock()(); return p.state }

func (p *serialPort) NativeHandle() api.NativeHandle {
	defer p.lock()()
	if p.state != api.StateOpen {
		return api.InvalidHandle
	}
	return p.dev.handle
}

func (p *serialPort) abortLocked() []completion {
	done := make([]completion, 0, len(p.reads))
	for _, op := range p.reads {
		done = append(done, completion{h: op.h, err: api.ErrOperationAborted})
	}
	p.reads = nil
	p.epoch++
	return done
}

func (p *serialPort) Cancel() error {
	p.svc.mu.Lock()
	if p.state != api.StateOpen {
		p.svc.mu.Unlock()
		return api.ErrNotOpen
	}
	done := p.abortLocked()
	p.svc.mu.Unlock()
	p.svc.cond.Broadcast()
	p.svc.post(done)
	return nil
}

func (p *serialPort) Close() error {
	p.svc.mu.Lock()
	if p.state != api.StateOpen {
		p.svc.mu.Unlock()
		return nil
	}
	done := p.abortLocked()
	err := p.dev.closeErr
	p.dev.port, p.dev, p.state = nil, nil, api.StateClosed
	p.svc.mu.Unlock()
	p.svc.cond.Broadcast()
	p.svc.post(done)
	return err
}

func (p *serialPort) Destroy() { _ = p.Close() }

func (p *serialPort) SendBreak() error {
	defer p.lock()()
	if p.state != api.StateOpen {
		return api.ErrNotOpen
	}
	p.dev.breaks++
	return nil
}

func (p *serialPort) SetOption(opt api.SettableOption) error {
	defer p.lock()()
	if p.state != api.StateOpen {
		return api.ErrNotOpen
	}
	return opt.Store(&p.dev.opts)
}

func (p *serialPort) GetOption(opt api.GettableOption) error {
	defer p.lock()()
	if p.state != api.StateOpen {
		return api.ErrNotOpen
	}
	return opt.Load(&p.dev.opts)
}

// ReadSome waits for data, end of file, an injected error or an abort.
func (p *serialPort) ReadSome(bufs api.Buffers) (int, error) {
	defer p.lock()()
	if p.state != api.StateOpen {
		return 0, api.ErrNotOpen
	}
	epoch := p.epoch
	for {
		if n, err, ok := p.dev.readLocked(bufs); ok {
			return n, err
		}
		p.svc.cond.Wait()
		if p.state != api.StateOpen || p.epoch != epoch {
			return 0, api.ErrOperationAborted
		}
	}
}

func (p *serialPort) WriteSome(bufs api.Buffers) (int, error) {
	defer p.lock()()
	if p.state != api.StateOpen {
		return 0, api.ErrNotOpen
	}
	return p.dev.writeLocked(bufs)
}

func (p *serialPort) AsyncReadSome(bufs api.Buffers, h api.IOHandler) {
	p.svc.ex.OnWorkStarted()
	p.svc.mu.Lock()
	var done []completion
	switch {
	case p.state != api.StateOpen:
		done = []completion{{h: h, err: api.ErrNotOpen}}
	case len(p.reads) == 0:
		if n, err, ok := p.dev.readLocked(bufs); ok {
			done = []completion{{h: h, n: n, err: err}}
			break
		}
		fallthrough
	default:
		p.reads = append(p.reads, pendingRead{bufs: bufs, h: h})
	}
	p.svc.mu.Unlock()
	p.svc.post(done)
}

// AsyncWriteSome completes on the next dispatch; the fake line never
// applies back pressure.
func (p *serialPort) AsyncWriteSome(bufs api.Buffers, h api.IOHandler) {
	p.svc.ex.OnWorkStarted()
	p.svc.mu.Lock()
	c := completion{h: h, err: api.ErrNotOpen}
	if p.state == api.StateOpen {
		c.n, c.err = p.dev.writeLocked(bufs)
	}
	p.svc.mu.Unlock()
	p.svc.post([]completion{c})
}
