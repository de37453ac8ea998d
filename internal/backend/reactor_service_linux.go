//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package backend

import (
	"sync"

	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/momentics/hioload-io/reactor"
	"github.com/rs/zerolog"
)

// reactorService shares one epoll reactor between every descriptor of an
// IOContext. The reactor is created on first registration.
type reactorService struct {
	mu      sync.Mutex
	r       *reactor.Reactor
	stopped bool
	log     zerolog.Logger
}

func useReactor(ctx *concurrency.IOContext) *reactorService {
	return concurrency.UseService(ctx, func(c *concurrency.IOContext) *reactorService {
		return &reactorService{log: c.Logger()}
	})
}

func (s *reactorService) get() (*reactor.Reactor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, reactor.ErrClosed
	}
	if s.r == nil {
		r, err := reactor.New(s.log)
		if err != nil {
			return nil, err
		}
		s.r = r
	}
	return s.r, nil
}

// Shutdown closes the reactor.
func (s *reactorService) Shutdown() {
	s.mu.Lock()
	r := s.r
	s.r, s.stopped = nil, true
	s.mu.Unlock()
	if r != nil {
		if err := r.Close(); err != nil {
			s.log.Warn().Err(err).Msg("reactor close failed")
		}
	}
}
