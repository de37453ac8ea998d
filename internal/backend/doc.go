// Package backend holds the platform services behind the I/O objects.
// Exactly one implementation is compiled into a build: a reactive
// (epoll-driven) backend on Linux, a proactive (completion port) backend on
// Windows, and an unsupported stub elsewhere.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package backend
