package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
	}{
		{nil, ErrCodeOK},
		{ErrNotOpen, ErrCodeNotOpen},
		{fmt.Errorf("wrapped: %w", ErrOperationAborted), ErrCodeAborted},
		{io.EOF, ErrCodeEOF},
		{&fs.PathError{Op: "open", Path: "device-X", Err: fs.ErrNotExist}, ErrCodeNotFound},
		{ErrNotFound, ErrCodeNotFound},
		{ErrInvalidArgument, ErrCodeInvalidArgument},
		{ErrNotSupported, ErrCodeNotSupported},
		{errors.New("other"), ErrCodeInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, CodeOf(c.err), "%v", c.err)
	}
}

func TestThrowError(t *testing.T) {
	assert.NotPanics(t, func() { ThrowError(nil, "close") })

	defer func() {
		oe, ok := recover().(*OpError)
		require.True(t, ok)
		assert.Equal(t, "read_some", oe.Op)
		assert.Equal(t, ErrCodeEOF, oe.Code)
		assert.ErrorIs(t, oe, io.EOF)
		assert.Equal(t, "read_some: EOF", oe.Error())
	}()
	ThrowError(io.EOF, "read_some")
}

func TestOpErrorContext(t *testing.T) {
	err := NewOpError("open", ErrNotFound).WithContext("device", "COM9")
	assert.Contains(t, err.Error(), "COM9")
	assert.Equal(t, "open", err.Op)
	assert.Equal(t, "not_found", ErrCodeNotFound.String())
}
