// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-io.

package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// Common errors used across the library.
var (
	ErrNotOpen          = errors.New("object is not open")
	ErrAlreadyOpen      = errors.New("object is already open")
	ErrOperationAborted = errors.New("operation aborted")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotSupported     = errors.New("operation not supported")
	ErrNotFound         = errors.New("device not found")
	ErrContextStopped   = errors.New("io context is stopped")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeNotOpen
	ErrCodeAlreadyOpen
	ErrCodeAborted
	ErrCodeEOF
	ErrCodeNotFound
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeNotOpen:
		return "not_open"
	case ErrCodeAlreadyOpen:
		return "already_open"
	case ErrCodeAborted:
		return "aborted"
	case ErrCodeEOF:
		return "eof"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeNotSupported:
		return "not_supported"
	default:
		return "internal"
	}
}

// CodeOf classifies err. A nil error maps to ErrCodeOK.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.Is(err, ErrNotOpen):
		return ErrCodeNotOpen
	case errors.Is(err, ErrAlreadyOpen):
		return ErrCodeAlreadyOpen
	case errors.Is(err, ErrOperationAborted):
		return ErrCodeAborted
	case errors.Is(err, io.EOF):
		return ErrCodeEOF
	case errors.Is(err, ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrNotSupported):
		return ErrCodeNotSupported
	default:
		return ErrCodeInternal
	}
}

// OpError is the structured error raised by the Must* forms. It carries the
// failing operation name and the backend failure.
type OpError struct {
	Op      string
	Code    ErrorCode
	Err     error
	Context map[string]any
}

// NewOpError wraps err for operation op.
func NewOpError(op string, err error) *OpError {
	return &OpError{Op: op, Code: CodeOf(err), Err: err}
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (context: %+v)", e.Op, e.Err, e.Context)
}

func (e *OpError) Unwrap() error { return e.Err }

// WithContext adds context information to the error.
func (e *OpError) WithContext(key string, value any) *OpError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ThrowError panics with an *OpError tagged op when err is non-nil.
func ThrowError(err error, op string) {
	if err != nil {
		panic(NewOpError(op, err))
	}
}
