//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Reactor is an edge-triggered epoll reactor. Descriptors are watched for
// both directions; callbacks decide which queued operations to retry.
type Reactor struct {
	epfd   int
	wakefd int

	mu        sync.RWMutex
	callbacks map[int]Callback

	closed atomic.Bool
	done   chan struct{}
	log    zerolog.Logger
}

// New creates the epoll instance and starts the dispatch goroutine.
func New(log zerolog.Logger) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakeup: %w", err)
	}
	r := &Reactor{
		epfd:      epfd,
		wakefd:    wakefd,
		callbacks: make(map[int]Callback),
		done:      make(chan struct{}),
		log:       log.With().Str("component", "reactor").Logger(),
	}
	go r.loop()
	return r, nil
}

// Register adds fd to the watch list. unix.EPERM is returned unwrapped for
// descriptors epoll cannot watch (regular files).
func (r *Reactor) Register(fd int, cb Callback) error {
	if r.closed.Load() {
		return ErrClosed
	}
	r.mu.Lock()
	r.callbacks[fd] = cb
	r.mu.Unlock()

	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLOUT | unix.EPOLLRDHUP | unix.EPOLLET,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		r.mu.Lock()
		delete(r.callbacks, fd)
		r.mu.Unlock()
		if errors.Is(err, unix.EPERM) {
			return err
		}
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// Unregister removes fd from the watch list. It must be called before fd is
// closed.
func (r *Reactor) Unregister(fd int) error {
	r.mu.Lock()
	delete(r.callbacks, fd)
	r.mu.Unlock()
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func (r *Reactor) loop() {
	defer close(r.done)
	var events [128]unix.EpollEvent
	for {
		n, err := unix.EpollWait(r.epfd, events[:], -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			r.log.Error().Err(err).Msg("epoll wait failed")
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			if fd == r.wakefd {
				var buf [8]byte
				_, _ = unix.Read(r.wakefd, buf[:])
				continue
			}
			r.mu.RLock()
			cb, ok := r.callbacks[fd]
			r.mu.RUnlock()
			if !ok {
				continue
			}
			var ev Events
			raw := events[i].Events
			if raw&(unix.EPOLLIN|unix.EPOLLPRI|unix.EPOLLRDHUP) != 0 {
				ev |= EventRead
			}
			if raw&unix.EPOLLOUT != 0 {
				ev |= EventWrite
			}
			if raw&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				ev |= EventError | EventRead | EventWrite
			}
			r.dispatch(fd, cb, ev)
		}
		if r.closed.Load() {
			return
		}
	}
}

// dispatch keeps the loop alive if a callback panics.
func (r *Reactor) dispatch(fd int, cb Callback, ev Events) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Int("fd", fd).Interface("panic", p).Msg("reactor callback panicked")
		}
	}()
	cb(ev)
}

// Close stops the dispatch goroutine and releases the epoll instance.
func (r *Reactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	buf := [8]byte{1}
	if _, err := unix.Write(r.wakefd, buf[:]); err != nil {
		r.log.Warn().Err(err).Msg("reactor wakeup failed")
	}
	<-r.done
	_ = unix.Close(r.wakefd)
	return unix.Close(r.epfd)
}
