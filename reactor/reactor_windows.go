//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows IOCP (I/O Completion Port) implementation and factory.

package reactor

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

// shutdownKey marks the packet posted by Close.
const shutdownKey = ^uintptr(0)

// Completion is one dequeued completion packet.
type Completion struct {
	Bytes      uint32
	Key        uintptr
	Overlapped *windows.Overlapped
	Err        error
}

// CompletionHandler receives every packet that carries an overlapped
// pointer. It runs on the port goroutine and must not block.
type CompletionHandler func(c Completion)

// Port is an I/O completion port with a single dispatch goroutine.
type Port struct {
	port    windows.Handle
	handler CompletionHandler
	closed  atomic.Bool
	done    chan struct{}
	log     zerolog.Logger
}

// NewPort creates the completion port and starts the dispatch goroutine.
func NewPort(handler CompletionHandler, log zerolog.Logger) (*Port, error) {
	h, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("iocp create: %w", err)
	}
	p := &Port{
		port:    h,
		handler: handler,
		done:    make(chan struct{}),
		log:     log.With().Str("component", "iocp").Logger(),
	}
	go p.loop()
	return p, nil
}

// Associate binds h to the port; completions for h carry key.
func (p *Port) Associate(h windows.Handle, key uintptr) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if _, err := windows.CreateIoCompletionPort(h, p.port, key, 0); err != nil {
		return fmt.Errorf("iocp associate: %w", err)
	}
	return nil
}

func (p *Port) loop() {
	defer close(p.done)
	for {
		var (
			qty uint32
			key uintptr
			ov  *windows.Overlapped
		)
		err := windows.GetQueuedCompletionStatus(p.port, &qty, &key, &ov, windows.INFINITE)
		if ov == nil {
			if key == shutdownKey || p.closed.Load() {
				return
			}
			if err != nil {
				p.log.Error().Err(err).Msg("iocp dequeue failed")
			}
			continue
		}
		p.dispatch(Completion{Bytes: qty, Key: key, Overlapped: ov, Err: err})
	}
}

func (p *Port) dispatch(c Completion) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("iocp handler panicked")
		}
	}()
	p.handler(c)
}

// Close stops the dispatch goroutine and releases the port.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := windows.PostQueuedCompletionStatus(p.port, 0, shutdownKey, nil); err != nil {
		p.log.Warn().Err(err).Msg("iocp shutdown post failed")
	} else {
		<-p.done
	}
	return windows.CloseHandle(p.port)
}
