// Package options defines serial line settings that can be applied to and
// read back from an open serial port.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package options

import (
	"fmt"
	"strings"

	"github.com/momentics/hioload-io/api"
)

// BaudRate is the line speed in bits per second.
type BaudRate uint

// CharacterSize is the number of data bits per character, 5 through 8.
type CharacterSize uint

// FlowControl selects the flow control discipline.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowSoftware
	FlowHardware
)

// Parity selects the parity bit mode.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits selects the number of stop bits.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

var (
	_ api.SettableOption = BaudRate(0)
	_ api.GettableOption = (*BaudRate)(nil)
	_ api.SettableOption = CharacterSize(0)
	_ api.GettableOption = (*CharacterSize)(nil)
	_ api.SettableOption = FlowNone
	_ api.GettableOption = (*FlowControl)(nil)
	_ api.SettableOption = ParityNone
	_ api.GettableOption = (*Parity)(nil)
	_ api.SettableOption = StopBitsOne
	_ api.GettableOption = (*StopBits)(nil)
)

func (c CharacterSize) valid() bool { return c >= 5 && c <= 8 }

func (f FlowControl) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowSoftware:
		return "software"
	case FlowHardware:
		return "hardware"
	default:
		return fmt.Sprintf("FlowControl(%d)", int(f))
	}
}

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

func (s StopBits) String() string {
	switch s {
	case StopBitsOne:
		return "1"
	case StopBitsOnePointFive:
		return "1.5"
	case StopBitsTwo:
		return "2"
	default:
		return fmt.Sprintf("StopBits(%d)", int(s))
	}
}

// ParseFlowControl accepts "none", "software" (or "xonxoff") and "hardware"
// (or "rtscts").
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FlowNone, nil
	case "software", "xonxoff":
		return FlowSoftware, nil
	case "hardware", "rtscts":
		return FlowHardware, nil
	}
	return FlowNone, fmt.Errorf("%w: flow control %q", api.ErrInvalidArgument, s)
}

// ParseParity accepts "none", "odd" and "even".
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	}
	return ParityNone, fmt.Errorf("%w: parity %q", api.ErrInvalidArgument, s)
}

// ParseStopBits accepts "1", "1.5" and "2".
func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "", "1", "one":
		return StopBitsOne, nil
	case "1.5", "onepointfive":
		return StopBitsOnePointFive, nil
	case "2", "two":
		return StopBitsTwo, nil
	}
	return StopBitsOne, fmt.Errorf("%w: stop bits %q", api.ErrInvalidArgument, s)
}

func invalid(what string, v any) error {
	return fmt.Errorf("%w: %s %v", api.ErrInvalidArgument, what, v)
}

func unsupported(what string, v any) error {
	return fmt.Errorf("%w: %s %v", api.ErrNotSupported, what, v)
}
