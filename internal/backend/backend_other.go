//go:build !linux && !windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub services for platforms without a backend. Every operation that needs
// a native handle reports api.ErrNotSupported; completions are still posted.

package backend

import (
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
)

type unsupportedService struct {
	ex concurrency.Executor
}

// NewSerialService returns the serial backend for ctx.
func NewSerialService(ctx *concurrency.IOContext) api.SerialService {
	return unsupportedService{ex: ctx.Executor()}
}

// NewObjectService returns the waitable object backend for ctx.
func NewObjectService(ctx *concurrency.IOContext) api.ObjectService {
	return unsupportedObjectService{ex: ctx.Executor()}
}

func (s unsupportedService) Construct() api.SerialImplementation {
	return &unsupported{ex: s.ex}
}

type unsupportedObjectService struct {
	ex concurrency.Executor
}

func (s unsupportedObjectService) Construct() api.ObjectImplementation {
	return &unsupported{ex: s.ex}
}

type unsupported struct {
	ex concurrency.Executor
}

func (*unsupported) Open(string) error                  { return api.ErrNotSupported }
func (*unsupported) Assign(api.NativeHandle) error      { return api.ErrNotSupported }
func (*unsupported) IsOpen() bool                       { return false }
func (*unsupported) State() api.State                   { return api.StateUnopened }
func (*unsupported) Close() error                       { return nil }
func (*unsupported) Cancel() error                      { return api.ErrNotOpen }
func (*unsupported) NativeHandle() api.NativeHandle     { return api.InvalidHandle }
func (*unsupported) Destroy()                           {}
func (*unsupported) SendBreak() error                   { return api.ErrNotOpen }
func (*unsupported) SetOption(api.SettableOption) error { return api.ErrNotOpen }
func (*unsupported) GetOption(api.GettableOption) error { return api.ErrNotOpen }
func (*unsupported) ReadSome(api.Buffers) (int, error)  { return 0, api.ErrNotOpen }
func (*unsupported) WriteSome(api.Buffers) (int, error) { return 0, api.ErrNotOpen }
func (*unsupported) Wait() error                        { return api.ErrNotOpen }

func (u *unsupported) AsyncReadSome(_ api.Buffers, h api.IOHandler) {
	u.ex.Post(func() { h(0, api.ErrNotOpen) })
}

func (u *unsupported) AsyncWriteSome(_ api.Buffers, h api.IOHandler) {
	u.ex.Post(func() { h(0, api.ErrNotOpen) })
}

func (u *unsupported) AsyncWait(h api.WaitHandler) {
	u.ex.Post(func() { h(api.ErrNotOpen) })
}
