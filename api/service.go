// File: api/service.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Backend service contracts. A service is created once per execution context
// and hands out per-object implementation states; the I/O object wrappers own
// exactly one state each and delegate every operation to it.

package api

// Service constructs implementation states of type I.
type Service[I Implementation] interface {
	// Construct returns a new unopened implementation state.
	Construct() I
}

// Implementation is the lifecycle surface common to every native handle.
type Implementation interface {
	Assign(h NativeHandle) error
	IsOpen() bool
	State() State
	Close() error
	Cancel() error
	NativeHandle() NativeHandle

	// Destroy cancels outstanding operations and releases the handle.
	// It never fails.
	Destroy()
}

// SerialImplementation is the state of one serial line.
type SerialImplementation interface {
	Implementation

	Open(device string) error
	SendBreak() error
	SetOption(opt SettableOption) error
	GetOption(opt GettableOption) error

	ReadSome(bufs Buffers) (int, error)
	WriteSome(bufs Buffers) (int, error)

	// AsyncReadSome and AsyncWriteSome return immediately; h is posted to the
	// executor exactly once.
	AsyncReadSome(bufs Buffers, h IOHandler)
	AsyncWriteSome(bufs Buffers, h IOHandler)
}

// ObjectImplementation is the state of one waitable object.
type ObjectImplementation interface {
	Implementation

	Wait() error
	AsyncWait(h WaitHandler)
}

type (
	SerialService = Service[SerialImplementation]
	ObjectService = Service[ObjectImplementation]
)
