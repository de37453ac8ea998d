//go:build linux

// File: internal/backend/serial_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactive serial line service: termios configuration through pkg/term and
// readiness-driven I/O through the shared descriptor state.

package backend

import (
	"fmt"
	"io/fs"

	"github.com/mattn/go-isatty"
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/pkg/term/termios"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

type serialService struct {
	ex  concurrency.Executor
	rs  *reactorService
	log zerolog.Logger
}

// NewSerialService returns the serial backend for ctx.
func NewSerialService(ctx *concurrency.IOContext) api.SerialService {
	return &serialService{
		ex:  ctx.Executor(),
		rs:  useReactor(ctx),
		log: ctx.Logger().With().Str("component", "serial").Logger(),
	}
}

func (s *serialService) Construct() api.SerialImplementation {
	return &serialPort{descriptor: newDescriptor(s.ex, s.rs, s.log)}
}

type serialPort struct {
	*descriptor
	tty bool
}

func (p *serialPort) Open(device string) error {
	if p.IsOpen() {
		return api.ErrAlreadyOpen
	}
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NONBLOCK|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return &fs.PathError{Op: "open", Path: device, Err: err}
	}
	t, err := termios.Tcgetattr(uintptr(fd))
	if err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("tcgetattr %s: %w", device, err)
	}
	makeRaw(t)
	if err := termios.Tcsetattr(uintptr(fd), termios.TCSANOW, t); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("tcsetattr %s: %w", device, err)
	}
	if err := p.attach(fd); err != nil {
		_ = unix.Close(fd)
		return err
	}
	p.tty = true
	p.log.Debug().Str("device", device).Int("fd", fd).Msg("serial port opened")
	return nil
}

// makeRaw puts the line in 8N1 raw mode with the receiver enabled.
func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Iflag |= unix.IGNPAR
	t.Cflag |= unix.CREAD | unix.CLOCAL
}

func (p *serialPort) Assign(h api.NativeHandle) error {
	if p.IsOpen() {
		return api.ErrAlreadyOpen
	}
	if h == api.InvalidHandle {
		return api.ErrInvalidArgument
	}
	fd := int(h)
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return fmt.Errorf("%w: %v", api.ErrInvalidArgument, err)
	}
	if err := p.attach(fd); err != nil {
		return err
	}
	p.tty = isatty.IsTerminal(uintptr(fd))
	if !p.tty {
		p.log.Debug().Int("fd", fd).Msg("assigned handle is not a terminal, line settings unavailable")
	}
	return nil
}

// lineFD returns the descriptor of an open terminal.
func (p *serialPort) lineFD() (uintptr, error) {
	fd, err := p.openFD()
	if err != nil {
		return 0, err
	}
	if !p.tty {
		return 0, api.ErrNotSupported
	}
	return uintptr(fd), nil
}

func (p *serialPort) SendBreak() error {
	fd, err := p.lineFD()
	if err != nil {
		return err
	}
	return unix.IoctlSetInt(int(fd), unix.TCSBRK, 0)
}

func (p *serialPort) SetOption(opt api.SettableOption) error {
	fd, err := p.lineFD()
	if err != nil {
		return err
	}
	t, err := termios.Tcgetattr(fd)
	if err != nil {
		return err
	}
	if err := opt.Store(t); err != nil {
		return err
	}
	return termios.Tcsetattr(fd, termios.TCSANOW, t)
}

func (p *serialPort) GetOption(opt api.GettableOption) error {
	fd, err := p.lineFD()
	if err != nil {
		return err
	}
	t, err := termios.Tcgetattr(fd)
	if err != nil {
		return err
	}
	return opt.Load(t)
}

func (p *serialPort) ReadSome(bufs api.Buffers) (int, error)  { return p.readSome(bufs) }
func (p *serialPort) WriteSome(bufs api.Buffers) (int, error) { return p.writeSome(bufs) }

func (p *serialPort) AsyncReadSome(bufs api.Buffers, h api.IOHandler) {
	p.start(opRead, &reactorOp{bufs: bufs, io: h})
}

func (p *serialPort) AsyncWriteSome(bufs api.Buffers, h api.IOHandler) {
	p.start(opWrite, &reactorOp{bufs: bufs, io: h})
}

func (p *serialPort) Close() error {
	p.tty = false
	return p.descriptor.Close()
}

func (p *serialPort) Destroy() {
	p.tty = false
	p.descriptor.Destroy()
}
