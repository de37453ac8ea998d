// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package options

import (
	"testing"

	"github.com/momentics/hioload-io/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHelpers(t *testing.T) {
	p, err := ParseParity("Even")
	require.NoError(t, err)
	assert.Equal(t, ParityEven, p)

	s, err := ParseStopBits("1.5")
	require.NoError(t, err)
	assert.Equal(t, StopBitsOnePointFive, s)

	f, err := ParseFlowControl("rtscts")
	require.NoError(t, err)
	assert.Equal(t, FlowHardware, f)

	_, err = ParseParity("mark")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = ParseStopBits("3")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = ParseFlowControl("dtr")
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "odd", ParityOdd.String())
	assert.Equal(t, "2", StopBitsTwo.String())
	assert.Equal(t, "software", FlowSoftware.String())
	assert.Equal(t, "Parity(9)", Parity(9).String())
}
