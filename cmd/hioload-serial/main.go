// Command hioload-serial is a small terminal for a configured serial port.
// Received bytes are copied to stdout; stdin lines are written to the port.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/control"
	"github.com/momentics/hioload-io/facade"
	"github.com/momentics/hioload-io/serial"
	"github.com/rs/zerolog"
)

func main() {
	cfgPath := flag.String("config", "hioload.toml", "TOML configuration file")
	portName := flag.String("port", "", "configured port name (default: first configured port)")
	sendBreak := flag.Bool("break", false, "send a break after opening the port")
	watch := flag.Bool("watch", true, "re-apply line settings when the config file changes")
	flag.Parse()

	if err := run(*cfgPath, *portName, *sendBreak, *watch); err != nil {
		fmt.Fprintln(os.Stderr, "hioload-serial:", err)
		os.Exit(1)
	}
}

func run(cfgPath, portName string, sendBreak, watch bool) error {
	cfg, err := control.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if portName == "" {
		names := cfg.PortNames()
		if len(names) == 0 {
			return fmt.Errorf("%s: no ports configured", cfgPath)
		}
		portName = names[0]
	}
	log, err := control.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	h, err := facade.New(cfg, facade.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Shutdown(); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()
	if watch {
		if err := h.WatchConfig(cfgPath); err != nil {
			log.Warn().Err(err).Msg("config watch disabled")
		}
	}

	port, err := h.OpenPort(portName)
	if err != nil {
		return err
	}
	if sendBreak {
		if err := port.SendBreak(); err != nil {
			log.Warn().Err(err).Msg("send break failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readDone := make(chan error, 1)
	if err := h.Submit(func() { readLoop(port, os.Stdout, make([]byte, 4096), readDone) }); err != nil {
		return err
	}
	go forwardStdin(ctx, h, port, log, stop)

	select {
	case <-ctx.Done():
		return nil
	case err := <-readDone:
		if errors.Is(err, io.EOF) || errors.Is(err, api.ErrOperationAborted) {
			return nil
		}
		return err
	}
}

// readLoop keeps one read outstanding and re-arms from its own handler.
func readLoop(p *serial.Port, out io.Writer, buf []byte, done chan<- error) {
	p.AsyncReadSome(api.Buffer(buf), func(n int, err error) {
		if n > 0 {
			_, _ = out.Write(buf[:n])
		}
		if err != nil {
			done <- err
			return
		}
		readLoop(p, out, buf, done)
	})
}

// writeAll completes once all of b is written or a write fails.
func writeAll(p *serial.Port, b []byte, done func(error)) {
	p.AsyncWriteSome(api.Buffer(b), func(n int, err error) {
		switch {
		case err != nil:
			done(err)
		case n < len(b):
			writeAll(p, b[n:], done)
		default:
			done(nil)
		}
	})
}

func forwardStdin(ctx context.Context, h *facade.HioloadIO, p *serial.Port, log zerolog.Logger, stop func()) {
	defer stop()
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := append(append([]byte(nil), sc.Bytes()...), '\n')
		written := make(chan error, 1)
		if err := h.Submit(func() { writeAll(p, line, func(err error) { written <- err }) }); err != nil {
			return
		}
		select {
		case err := <-written:
			if err != nil {
				log.Error().Err(err).Msg("write failed")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
