package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffersSequence(t *testing.T) {
	b := Buffers{nil, []byte("ab"), []byte("cde")}
	assert.Equal(t, 5, b.Len())
	assert.False(t, b.IsEmpty())
	assert.Equal(t, []byte("ab"), b.First())
	assert.True(t, Buffers{nil, {}}.IsEmpty())
	assert.Nil(t, Buffers{}.First())

	rest := b.Consume(3)
	assert.Equal(t, Buffers{[]byte("de")}, rest)
	assert.Equal(t, []byte("ab"), b[1], "Consume must not modify the receiver")

	dst := make([]byte, 4)
	assert.Equal(t, 4, b.CopyTo(dst))
	assert.Equal(t, "abcd", string(dst))
}

func TestBuffersCopyFrom(t *testing.T) {
	a, c := make([]byte, 2), make([]byte, 2)
	b := Buffers{a, c}
	assert.Equal(t, 3, b.CopyFrom([]byte("xyz")))
	assert.Equal(t, "xy", string(a))
	assert.Equal(t, "z", string(c[:1]))
	assert.Equal(t, 1, Buffer(make([]byte, 1)).Len())
}
