//go:build linux

// File: internal/backend/descriptor_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactive descriptor state shared by the serial and object services. Each
// operation kind has its own FIFO queue; a new operation is attempted at once
// when its queue is empty and otherwise waits for reactor readiness. Every
// outcome, including an immediate one, is posted to the executor.

package backend

import (
	"errors"
	"io"
	"sync"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/reactor"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

type opKind int

const (
	opRead opKind = iota
	opWrite
	opWait
	numOpKinds
)

type reactorOp struct {
	bufs api.Buffers
	io   api.IOHandler
	wait api.WaitHandler
}

type completion struct {
	op  *reactorOp
	n   int
	err error
}

type descriptor struct {
	ex  api.Executor
	rs  *reactorService
	log zerolog.Logger

	mu         sync.Mutex
	fd         int
	state      api.State
	registered bool
	queues     [numOpKinds][]*reactorOp
}

func newDescriptor(ex api.Executor, rs *reactorService, log zerolog.Logger) *descriptor {
	return &descriptor{ex: ex, rs: rs, log: log, fd: -1}
}

// attach takes ownership of fd, switching it to non-blocking mode and
// registering it with the reactor.
func (d *descriptor) attach(fd int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == api.StateOpen {
		return api.ErrAlreadyOpen
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	r, err := d.rs.get()
	if err != nil {
		return err
	}
	switch err := r.Register(fd, d.onReady); {
	case err == nil:
		d.registered = true
	case errors.Is(err, unix.EPERM):
		// regular files are always ready
		d.registered = false
	default:
		return err
	}
	d.fd, d.state = fd, api.StateOpen
	d.log.Debug().Int("fd", fd).Bool("registered", d.registered).Msg("descriptor attached")
	return nil
}

func (d *descriptor) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == api.StateOpen
}

func (d *descriptor) State() api.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *descriptor) NativeHandle() api.NativeHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != api.StateOpen {
		return api.InvalidHandle
	}
	return api.NativeHandle(d.fd)
}

// openFD returns the descriptor or api.ErrNotOpen.
func (d *descriptor) openFD() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != api.StateOpen {
		return -1, api.ErrNotOpen
	}
	return d.fd, nil
}

// drainLocked empties every queue and returns the operations in kind order.
func (d *descriptor) drainLocked() []completion {
	var out []completion
	for k := range d.queues {
		for _, op := range d.queues[k] {
			out = append(out, completion{op: op, err: api.ErrOperationAborted})
		}
		d.queues[k] = nil
	}
	return out
}

func (d *descriptor) Cancel() error {
	d.mu.Lock()
	if d.state != api.StateOpen {
		d.mu.Unlock()
		return api.ErrNotOpen
	}
	aborted := d.drainLocked()
	d.mu.Unlock()
	d.post(aborted)
	return nil
}

func (d *descriptor) Close() error {
	d.mu.Lock()
	if d.state != api.StateOpen {
		d.mu.Unlock()
		return nil
	}
	aborted := d.drainLocked()
	fd := d.fd
	if d.registered {
		if r, err := d.rs.get(); err == nil {
			if err := r.Unregister(fd); err != nil {
				d.log.Warn().Err(err).Int("fd", fd).Msg("unregister failed")
			}
		}
	}
	d.fd, d.state, d.registered = -1, api.StateClosed, false
	err := unix.Close(fd)
	d.mu.Unlock()
	d.post(aborted)
	d.log.Debug().Int("fd", fd).Int("aborted", len(aborted)).Msg("descriptor closed")
	return err
}

func (d *descriptor) Destroy() {
	if err := d.Close(); err != nil {
		d.log.Warn().Err(err).Msg("close on destroy failed")
	}
}

// post hands completions to the executor and releases their work.
func (d *descriptor) post(cs []completion) {
	for _, c := range cs {
		c := c
		if c.op.wait != nil {
			d.ex.Post(func() { c.op.wait(c.err) })
		} else {
			d.ex.Post(func() { c.op.io(c.n, c.err) })
		}
		d.ex.OnWorkFinished()
	}
}

// start submits op. The handler is always posted, never called here.
func (d *descriptor) start(kind opKind, op *reactorOp) {
	d.ex.OnWorkStarted()
	d.mu.Lock()
	if d.state != api.StateOpen {
		d.mu.Unlock()
		d.post([]completion{{op: op, err: api.ErrNotOpen}})
		return
	}
	if len(d.queues[kind]) == 0 {
		if n, err, done := d.perform(kind, op); done || !d.registered {
			d.mu.Unlock()
			d.post([]completion{{op: op, n: n, err: err}})
			return
		}
	}
	d.queues[kind] = append(d.queues[kind], op)
	d.mu.Unlock()
}

// perform makes one non-blocking attempt. done is false when the operation
// would block.
func (d *descriptor) perform(kind opKind, op *reactorOp) (n int, err error, done bool) {
	for {
		switch kind {
		case opRead:
			if op.bufs.IsEmpty() {
				return 0, nil, true
			}
			n, err = unix.Readv(d.fd, [][]byte(op.bufs))
			if err == nil && n == 0 {
				return 0, io.EOF, true
			}
		case opWrite:
			if op.bufs.IsEmpty() {
				return 0, nil, true
			}
			n, err = unix.Writev(d.fd, [][]byte(op.bufs))
		case opWait:
			var ready int
			ready, err = unix.Poll([]unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}, 0)
			if err == nil {
				return 0, nil, ready > 0
			}
		}
		switch {
		case err == nil:
			return n, nil, true
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil, false
		default:
			return 0, err, true
		}
	}
}

// onReady runs on the reactor goroutine.
func (d *descriptor) onReady(ev reactor.Events) {
	var done []completion
	d.mu.Lock()
	if d.state != api.StateOpen {
		d.mu.Unlock()
		return
	}
	if ev.Has(reactor.EventRead) {
		done = d.runQueueLocked(opRead, done)
		done = d.runQueueLocked(opWait, done)
	}
	if ev.Has(reactor.EventWrite) {
		done = d.runQueueLocked(opWrite, done)
	}
	d.mu.Unlock()
	d.post(done)
}

func (d *descriptor) runQueueLocked(kind opKind, done []completion) []completion {
	q := d.queues[kind]
	for len(q) > 0 {
		n, err, ok := d.perform(kind, q[0])
		if !ok {
			break
		}
		done = append(done, completion{op: q[0], n: n, err: err})
		q[0] = nil
		q = q[1:]
	}
	if len(q) == 0 {
		q = nil
	}
	d.queues[kind] = q
	return done
}

// readSome blocks until data is available, end of file, or an error.
func (d *descriptor) readSome(bufs api.Buffers) (int, error) {
	fd, err := d.openFD()
	if err != nil {
		return 0, err
	}
	if bufs.IsEmpty() {
		return 0, nil
	}
	for {
		n, err := unix.Readv(fd, [][]byte(bufs))
		switch {
		case err == nil && n == 0:
			return 0, io.EOF
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN):
			if err := pollFD(fd, unix.POLLIN); err != nil {
				return 0, err
			}
		default:
			return 0, err
		}
	}
}

// writeSome blocks until at least one byte is written or an error.
func (d *descriptor) writeSome(bufs api.Buffers) (int, error) {
	fd, err := d.openFD()
	if err != nil {
		return 0, err
	}
	if bufs.IsEmpty() {
		return 0, nil
	}
	for {
		n, err := unix.Writev(fd, [][]byte(bufs))
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN):
			if err := pollFD(fd, unix.POLLOUT); err != nil {
				return 0, err
			}
		default:
			return 0, err
		}
	}
}

func pollFD(fd int, events int16) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		_, err := unix.Poll(fds, -1)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
