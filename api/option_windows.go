//go:build windows

package api

import "golang.org/x/sys/windows"

// OptionStorage holds line settings as a device control block.
type OptionStorage = windows.DCB
