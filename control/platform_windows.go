//go:build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"runtime"
)

// RegisterPlatformProbes reports the completion port backend and host CPU
// count.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.io_backend", func() any { return "iocp" })
}
