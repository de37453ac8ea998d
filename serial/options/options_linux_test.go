//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package options

import (
	"testing"

	"github.com/momentics/hioload-io/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestTermiosRoundTrip(t *testing.T) {
	var tio unix.Termios

	require.NoError(t, BaudRate(115200).Store(&tio))
	require.NoError(t, CharacterSize(7).Store(&tio))
	require.NoError(t, FlowHardware.Store(&tio))
	require.NoError(t, ParityOdd.Store(&tio))
	require.NoError(t, StopBitsTwo.Store(&tio))

	var (
		baud   BaudRate
		size   CharacterSize
		flow   FlowControl
		parity Parity
		stop   StopBits
	)
	require.NoError(t, baud.Load(&tio))
	require.NoError(t, size.Load(&tio))
	require.NoError(t, flow.Load(&tio))
	require.NoError(t, parity.Load(&tio))
	require.NoError(t, stop.Load(&tio))

	assert.Equal(t, BaudRate(115200), baud)
	assert.Equal(t, CharacterSize(7), size)
	assert.Equal(t, FlowHardware, flow)
	assert.Equal(t, ParityOdd, parity)
	assert.Equal(t, StopBitsTwo, stop)
}

func TestTermiosRejects(t *testing.T) {
	var tio unix.Termios
	assert.ErrorIs(t, BaudRate(12345).Store(&tio), api.ErrNotSupported)
	assert.ErrorIs(t, CharacterSize(9).Store(&tio), api.ErrInvalidArgument)
	assert.ErrorIs(t, StopBitsOnePointFive.Store(&tio), api.ErrNotSupported)
	assert.ErrorIs(t, Parity(7).Store(&tio), api.ErrInvalidArgument)
}

func TestParityNoneClearsEnable(t *testing.T) {
	var tio unix.Termios
	require.NoError(t, ParityEven.Store(&tio))
	require.NoError(t, ParityNone.Store(&tio))
	assert.Zero(t, tio.Cflag&unix.PARENB)
	assert.NotZero(t, tio.Iflag&unix.IGNPAR)
}
