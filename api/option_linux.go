//go:build linux

package api

import "golang.org/x/sys/unix"

// OptionStorage holds line settings as termios attributes.
type OptionStorage = unix.Termios
