//go:build windows

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package options

import (
	"github.com/momentics/hioload-io/api"
)

// DCB flag bits and field values.
const (
	dcbParity       = 0x0002
	dcbOutxCtsFlow  = 0x0004
	dcbOutX         = 0x0100
	dcbInX          = 0x0200
	dcbRtsControl   = 0x3000
	dcbRtsEnable    = 0x1000
	dcbRtsHandshake = 0x2000
	dcbNoParity     = 0
	dcbOddParity    = 1
	dcbEvenParity   = 2
	dcbOneStopBit   = 0
	dcbOne5StopBits = 1
	dcbTwoStopBits  = 2
)

func (b BaudRate) Store(d *api.OptionStorage) error {
	if b == 0 {
		return invalid("baud rate", uint(b))
	}
	d.BaudRate = uint32(b)
	return nil
}

func (b *BaudRate) Load(d *api.OptionStorage) error {
	*b = BaudRate(d.BaudRate)
	return nil
}

func (c CharacterSize) Store(d *api.OptionStorage) error {
	if !c.valid() {
		return invalid("character size", uint(c))
	}
	d.ByteSize = uint8(c)
	return nil
}

func (c *CharacterSize) Load(d *api.OptionStorage) error {
	*c = CharacterSize(d.ByteSize)
	return nil
}

func (f FlowControl) Store(d *api.OptionStorage) error {
	d.Flags &^= dcbOutxCtsFlow | dcbOutX | dcbInX | dcbRtsControl
	switch f {
	case FlowNone:
		d.Flags |= dcbRtsEnable
	case FlowSoftware:
		d.Flags |= dcbRtsEnable | dcbOutX | dcbInX
	case FlowHardware:
		d.Flags |= dcbOutxCtsFlow | dcbRtsHandshake
	default:
		return invalid("flow control", f)
	}
	return nil
}

func (f *FlowControl) Load(d *api.OptionStorage) error {
	switch {
	case d.Flags&(dcbOutX|dcbInX) != 0:
		*f = FlowSoftware
	case d.Flags&dcbOutxCtsFlow != 0:
		*f = FlowHardware
	default:
		*f = FlowNone
	}
	return nil
}

func (p Parity) Store(d *api.OptionStorage) error {
	switch p {
	case ParityNone:
		d.Flags &^= dcbParity
		d.Parity = dcbNoParity
	case ParityOdd:
		d.Flags |= dcbParity
		d.Parity = dcbOddParity
	case ParityEven:
		d.Flags |= dcbParity
		d.Parity = dcbEvenParity
	default:
		return invalid("parity", p)
	}
	return nil
}

func (p *Parity) Load(d *api.OptionStorage) error {
	switch d.Parity {
	case dcbOddParity:
		*p = ParityOdd
	case dcbEvenParity:
		*p = ParityEven
	default:
		*p = ParityNone
	}
	return nil
}

func (s StopBits) Store(d *api.OptionStorage) error {
	switch s {
	case StopBitsOne:
		d.StopBits = dcbOneStopBit
	case StopBitsOnePointFive:
		d.StopBits = dcbOne5StopBits
	case StopBitsTwo:
		d.StopBits = dcbTwoStopBits
	default:
		return invalid("stop bits", s)
	}
	return nil
}

func (s *StopBits) Load(d *api.OptionStorage) error {
	switch d.StopBits {
	case dcbOne5StopBits:
		*s = StopBitsOnePointFive
	case dcbTwoStopBits:
		*s = StopBitsTwo
	default:
		*s = StopBitsOne
	}
	return nil
}
