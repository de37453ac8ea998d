// Package api
// Author: momentics
//
// Scatter/gather buffer sequence passed to read_some/write_some.

package api

// Buffers is a sequence of contiguous memory regions. Backends read into or
// write from the regions in order; a transfer may stop part-way.
type Buffers [][]byte

// Buffer wraps a single region.
func Buffer(b []byte) Buffers { return Buffers{b} }

// Len returns the total size of all regions.
func (b Buffers) Len() int {
	n := 0
	for _, r := range b {
		n += len(r)
	}
	return n
}

// IsEmpty reports whether the sequence holds no bytes.
func (b Buffers) IsEmpty() bool { return b.Len() == 0 }

// First returns the first non-empty region, or nil.
func (b Buffers) First() []byte {
	for _, r := range b {
		if len(r) > 0 {
			return r
		}
	}
	return nil
}

// Consume drops the first n bytes from the sequence.
func (b Buffers) Consume(n int) Buffers {
	for len(b) > 0 {
		if n < len(b[0]) {
			out := make(Buffers, len(b))
			copy(out, b)
			out[0] = out[0][n:]
			return out
		}
		n -= len(b[0])
		b = b[1:]
	}
	return b
}

// CopyTo copies up to len(dst) bytes of the sequence into dst.
func (b Buffers) CopyTo(dst []byte) int {
	n := 0
	for _, r := range b {
		if n == len(dst) {
			break
		}
		n += copy(dst[n:], r)
	}
	return n
}

// CopyFrom fills the sequence from src, returning the bytes copied.
func (b Buffers) CopyFrom(src []byte) int {
	n := 0
	for _, r := range b {
		if len(src) == 0 {
			break
		}
		c := copy(r, src)
		src = src[c:]
		n += c
	}
	return n
}
