//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-context completion port service. Overlapped operations are tracked by
// their OVERLAPPED address until the port dequeues their packet.

package backend

import (
	"sync"

	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/momentics/hioload-io/reactor"
	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

type iocpOp struct {
	ov    windows.Overlapped
	owner *serialPort
	read  bool
	h     func(n int, err error)
}

type iocpService struct {
	mu      sync.Mutex
	port    *reactor.Port
	ops     map[*windows.Overlapped]*iocpOp
	stopped bool
	log     zerolog.Logger
}

func useIOCP(ctx *concurrency.IOContext) *iocpService {
	return concurrency.UseService(ctx, func(c *concurrency.IOContext) *iocpService {
		return &iocpService{ops: make(map[*windows.Overlapped]*iocpOp), log: c.Logger()}
	})
}

func (s *iocpService) get() (*reactor.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, reactor.ErrClosed
	}
	if s.port == nil {
		p, err := reactor.NewPort(s.onCompletion, s.log)
		if err != nil {
			return nil, err
		}
		s.port = p
	}
	return s.port, nil
}

func (s *iocpService) track(op *iocpOp) {
	s.mu.Lock()
	s.ops[&op.ov] = op
	s.mu.Unlock()
}

// untrack reports whether op was still pending.
func (s *iocpService) untrack(op *iocpOp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ops[&op.ov]; !ok {
		return false
	}
	delete(s.ops, &op.ov)
	return true
}

func (s *iocpService) onCompletion(c reactor.Completion) {
	s.mu.Lock()
	op, ok := s.ops[c.Overlapped]
	delete(s.ops, c.Overlapped)
	s.mu.Unlock()
	if !ok {
		return
	}
	op.owner.finish(op, int(c.Bytes), c.Err)
}

// Shutdown closes the completion port.
func (s *iocpService) Shutdown() {
	s.mu.Lock()
	p := s.port
	s.port, s.stopped = nil, true
	s.mu.Unlock()
	if p != nil {
		if err := p.Close(); err != nil {
			s.log.Warn().Err(err).Msg("completion port close failed")
		}
	}
}
