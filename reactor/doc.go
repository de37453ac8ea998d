// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the OS notification primitives used by the I/O
// backends: an epoll readiness reactor on Linux and an I/O completion port on
// Windows. Each runs its own dispatch goroutine.
package reactor
