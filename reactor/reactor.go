// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event types shared by the readiness reactor (epoll) and
// the completion port (IOCP).

package reactor

import "errors"

// Events is a bit set of readiness conditions.
type Events uint32

const (
	EventRead Events = 1 << iota
	EventWrite
	EventError
)

func (e Events) Has(o Events) bool { return e&o != 0 }

// Callback receives readiness for one registered descriptor. It runs on the
// reactor goroutine and must not block.
type Callback func(ev Events)

// ErrClosed is returned by operations on a closed reactor.
var ErrClosed = errors.New("reactor: closed")
