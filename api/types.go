// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// State enumerates the lifecycle of an I/O object.
type State int

const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unopened"
	}
}

// NativeHandle is the platform handle of an I/O object: a file descriptor on
// unix, a HANDLE on windows.
type NativeHandle uintptr

// InvalidHandle never refers to an open resource.
const InvalidHandle = ^NativeHandle(0)

// IOHandler receives the outcome of an asynchronous read or write.
type IOHandler func(n int, err error)

// WaitHandler receives the outcome of an asynchronous wait.
type WaitHandler func(err error)
