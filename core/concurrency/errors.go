// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import (
	"errors"

	"github.com/momentics/hioload-io/api"
)

var (
	// ErrContextStopped indicates the io context has been shut down
	ErrContextStopped = api.ErrContextStopped

	// ErrServiceExists indicates a service of the same type is already registered
	ErrServiceExists = errors.New("service already registered")

	// ErrInvalidWorkerCount indicates invalid worker count configuration
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)
