//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactive waitable object service. A waitable object is any pollable
// descriptor (eventfd, pidfd, timerfd) and is signalled while readable.

package backend

import (
	"fmt"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

type objectService struct {
	ex  concurrency.Executor
	rs  *reactorService
	log zerolog.Logger
}

// NewObjectService returns the waitable object backend for ctx.
func NewObjectService(ctx *concurrency.IOContext) api.ObjectService {
	return &objectService{
		ex:  ctx.Executor(),
		rs:  useReactor(ctx),
		log: ctx.Logger().With().Str("component", "object").Logger(),
	}
}

func (s *objectService) Construct() api.ObjectImplementation {
	return &objectHandle{descriptor: newDescriptor(s.ex, s.rs, s.log)}
}

type objectHandle struct {
	*descriptor
}

func (o *objectHandle) Assign(h api.NativeHandle) error {
	if o.IsOpen() {
		return api.ErrAlreadyOpen
	}
	if h == api.InvalidHandle {
		return api.ErrInvalidArgument
	}
	if _, err := unix.FcntlInt(uintptr(h), unix.F_GETFD, 0); err != nil {
		return fmt.Errorf("%w: %v", api.ErrInvalidArgument, err)
	}
	return o.attach(int(h))
}

func (o *objectHandle) Wait() error {
	fd, err := o.openFD()
	if err != nil {
		return err
	}
	return pollFD(fd, unix.POLLIN)
}

func (o *objectHandle) AsyncWait(h api.WaitHandler) {
	o.start(opWait, &reactorOp{wait: h})
}
