//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package options

import (
	"github.com/momentics/hioload-io/api"
	"golang.org/x/sys/unix"
)

var baudFlags = map[BaudRate]uint32{
	50: unix.B50, 75: unix.B75, 110: unix.B110, 134: unix.B134, 150: unix.B150,
	200: unix.B200, 300: unix.B300, 600: unix.B600, 1200: unix.B1200,
	1800: unix.B1800, 2400: unix.B2400, 4800: unix.B4800, 9600: unix.B9600,
	19200: unix.B19200, 38400: unix.B38400, 57600: unix.B57600,
	115200: unix.B115200, 230400: unix.B230400, 460800: unix.B460800,
	500000: unix.B500000, 576000: unix.B576000, 921600: unix.B921600,
	1000000: unix.B1000000, 1152000: unix.B1152000, 1500000: unix.B1500000,
	2000000: unix.B2000000, 2500000: unix.B2500000, 3000000: unix.B3000000,
	3500000: unix.B3500000, 4000000: unix.B4000000,
}

func (b BaudRate) Store(t *api.OptionStorage) error {
	flag, ok := baudFlags[b]
	if !ok {
		return unsupported("baud rate", uint(b))
	}
	t.Cflag = t.Cflag&^unix.CBAUD | flag
	t.Ispeed, t.Ospeed = flag, flag
	return nil
}

func (b *BaudRate) Load(t *api.OptionStorage) error {
	flag := t.Cflag & unix.CBAUD
	for rate, f := range baudFlags {
		if f == flag {
			*b = rate
			return nil
		}
	}
	return unsupported("baud flag", flag)
}

var sizeFlags = [...]uint32{5: unix.CS5, 6: unix.CS6, 7: unix.CS7, 8: unix.CS8}

func (c CharacterSize) Store(t *api.OptionStorage) error {
	if !c.valid() {
		return invalid("character size", uint(c))
	}
	t.Cflag = t.Cflag&^unix.CSIZE | sizeFlags[c]
	return nil
}

func (c *CharacterSize) Load(t *api.OptionStorage) error {
	flag := t.Cflag & unix.CSIZE
	for size := CharacterSize(5); size <= 8; size++ {
		if sizeFlags[size] == flag {
			*c = size
			return nil
		}
	}
	return unsupported("character size flag", flag)
}

func (f FlowControl) Store(t *api.OptionStorage) error {
	switch f {
	case FlowNone:
		t.Iflag &^= unix.IXON | unix.IXOFF
		t.Cflag &^= unix.CRTSCTS
	case FlowSoftware:
		t.Iflag |= unix.IXON | unix.IXOFF
		t.Cflag &^= unix.CRTSCTS
	case FlowHardware:
		t.Iflag &^= unix.IXON | unix.IXOFF
		t.Cflag |= unix.CRTSCTS
	default:
		return invalid("flow control", f)
	}
	return nil
}

func (f *FlowControl) Load(t *api.OptionStorage) error {
	switch {
	case t.Iflag&(unix.IXON|unix.IXOFF) != 0:
		*f = FlowSoftware
	case t.Cflag&unix.CRTSCTS != 0:
		*f = FlowHardware
	default:
		*f = FlowNone
	}
	return nil
}

func (p Parity) Store(t *api.OptionStorage) error {
	switch p {
	case ParityNone:
		t.Iflag |= unix.IGNPAR
		t.Cflag &^= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Iflag &^= unix.IGNPAR | unix.PARMRK
		t.Iflag |= unix.INPCK
		t.Cflag |= unix.PARENB
		t.Cflag &^= unix.PARODD
	case ParityOdd:
		t.Iflag &^= unix.IGNPAR | unix.PARMRK
		t.Iflag |= unix.INPCK
		t.Cflag |= unix.PARENB | unix.PARODD
	default:
		return invalid("parity", p)
	}
	return nil
}

func (p *Parity) Load(t *api.OptionStorage) error {
	switch {
	case t.Cflag&unix.PARENB == 0:
		*p = ParityNone
	case t.Cflag&unix.PARODD != 0:
		*p = ParityOdd
	default:
		*p = ParityEven
	}
	return nil
}

func (s StopBits) Store(t *api.OptionStorage) error {
	switch s {
	case StopBitsOne:
		t.Cflag &^= unix.CSTOPB
	case StopBitsTwo:
		t.Cflag |= unix.CSTOPB
	case StopBitsOnePointFive:
		return unsupported("stop bits", s)
	default:
		return invalid("stop bits", s)
	}
	return nil
}

func (s *StopBits) Load(t *api.OptionStorage) error {
	if t.Cflag&unix.CSTOPB != 0 {
		*s = StopBitsTwo
	} else {
		*s = StopBitsOne
	}
	return nil
}
