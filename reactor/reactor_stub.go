//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"errors"

	"github.com/rs/zerolog"
)

// Reactor is unavailable on this platform.
type Reactor struct{}

// New returns an error for unsupported platforms.
func New(zerolog.Logger) (*Reactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}

func (*Reactor) Register(int, Callback) error { return ErrClosed }
func (*Reactor) Unregister(int) error         { return ErrClosed }
func (*Reactor) Close() error                 { return nil }
