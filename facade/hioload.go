// File: facade/hioload.go
// Unified facade layer for hioload-io.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HioloadIO aggregates the io context, its worker pool, the control layer
// and the set of named serial ports described by configuration. It opens
// ports on demand, re-applies line settings when configuration changes and
// tears everything down in dependency order on Shutdown.

package facade

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/momentics/hioload-io/adapters"
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/control"
	"github.com/momentics/hioload-io/core/concurrency"
	"github.com/momentics/hioload-io/serial"
	"github.com/rs/zerolog"
)

type (
	Config     = control.Config
	PortConfig = control.PortConfig
)

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config { return control.DefaultConfig() }

// LoadConfig reads and validates a TOML configuration file.
func LoadConfig(path string) (*Config, error) { return control.LoadConfig(path) }

// ParseConfig decodes and validates TOML configuration text.
func ParseConfig(text string) (*Config, error) { return control.ParseConfig(text) }

// ErrUnknownPort is returned for a port name absent from the configuration.
var ErrUnknownPort = fmt.Errorf("%w: unknown port", api.ErrNotFound)

// Option customizes New.
type Option func(*options)

type options struct {
	logger *zerolog.Logger
	setup  []func(*concurrency.IOContext) error
}

// WithLogger overrides the logger built from Config.Log.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithSetup runs fn on the new context before any port is created, for
// example to register alternative backend services.
func WithSetup(fn func(*concurrency.IOContext) error) Option {
	return func(o *options) { o.setup = append(o.setup, fn) }
}

// HioloadIO is the main facade type.
type HioloadIO struct {
	log     zerolog.Logger
	ctx     *concurrency.IOContext
	exec    *adapters.ExecutorAdapter
	control *adapters.ControlAdapter

	mu      sync.Mutex
	ports   map[string]*serial.Port
	watcher *control.Watcher
	closed  bool
}

// New validates cfg and starts the io context workers.
func New(cfg *Config, opts ...Option) (*HioloadIO, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var log zerolog.Logger
	if o.logger != nil {
		log = *o.logger
	} else {
		l, err := control.NewLogger(cfg.Log, os.Stderr)
		if err != nil {
			return nil, err
		}
		log = l
	}

	h := &HioloadIO{
		log:     log.With().Str("component", "facade").Logger(),
		ctx:     concurrency.NewIOContext(concurrency.WithLogger(log)),
		control: adapters.NewControlAdapter(cfg),
		ports:   make(map[string]*serial.Port),
	}
	for _, fn := range o.setup {
		if err := fn(h.ctx); err != nil {
			h.ctx.Shutdown()
			return nil, err
		}
	}
	exec, err := adapters.NewExecutorAdapter(h.ctx, cfg.Workers)
	if err != nil {
		h.ctx.Shutdown()
		return nil, err
	}
	h.exec = exec

	if cfg.EnableDebug {
		h.control.RegisterDebugProbe("io.stats", func() any { return h.ctx.Stats() })
		h.control.RegisterDebugProbe("ports.names", func() any { return h.Ports() })
	}
	h.control.OnReload(h.reconfigure)
	h.log.Info().Int("workers", cfg.Workers).Int("ports", len(cfg.Ports)).Msg("started")
	return h, nil
}

// Context returns the io context shared by every port.
func (h *HioloadIO) Context() *concurrency.IOContext { return h.ctx }

// Control returns the control adapter.
func (h *HioloadIO) Control() *adapters.ControlAdapter { return h.control }

// Config returns the current configuration snapshot.
func (h *HioloadIO) Config() *Config { return h.control.GetConfig() }

// Submit posts task to the io context workers.
func (h *HioloadIO) Submit(task func()) error { return h.exec.Submit(task) }

// OpenPort opens the configured port name and applies its line settings.
// An already open port is returned as is.
func (h *HioloadIO) OpenPort(name string) (*serial.Port, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, concurrency.ErrContextStopped
	}
	if p, ok := h.ports[name]; ok {
		return p, nil
	}
	pc, ok := h.Config().Ports[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPort, name)
	}
	p, err := serial.OpenPort(h.ctx, pc.Device)
	if err != nil {
		h.control.AddMetric("ports.open_failures", 1)
		return nil, err
	}
	if err := applyOptions(p, pc); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("configure port %q: %w", name, err)
	}
	h.ports[name] = p
	h.control.SetMetric("ports.open", len(h.ports))
	h.log.Info().Str("port", name).Str("device", pc.Device).Msg("port opened")
	return p, nil
}

func applyOptions(p *serial.Port, pc control.PortConfig) error {
	opts, err := pc.Options()
	if err != nil {
		return err
	}
	for _, opt := range opts {
		if err := p.SetOption(opt); err != nil {
			return api.NewOpError("set_option", err).WithContext("option", opt)
		}
	}
	return nil
}

// Port returns an open port by name.
func (h *HioloadIO) Port(name string) (*serial.Port, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.ports[name]
	return p, ok
}

// Ports returns the names of the open ports in sorted order.
func (h *HioloadIO) Ports() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.ports))
	for name := range h.ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClosePort closes an open port and forgets it. Its pending operations
// complete with api.ErrOperationAborted.
func (h *HioloadIO) ClosePort(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.ports[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownPort, name)
	}
	delete(h.ports, name)
	h.control.SetMetric("ports.open", len(h.ports))
	return p.Close()
}

// ApplyConfig validates cfg and publishes it; open ports pick up their new
// line settings.
func (h *HioloadIO) ApplyConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	h.control.SetConfig(cfg)
	return nil
}

// reconfigure re-applies line settings of every open port that is still
// configured. Ports whose device changed are left alone until reopened.
func (h *HioloadIO) reconfigure(cfg *Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.control.AddMetric("config.reloads", 1)
	var errs []error
	for name, p := range h.ports {
		pc, ok := cfg.Ports[name]
		if !ok {
			h.log.Warn().Str("port", name).Msg("open port dropped from config")
			continue
		}
		if err := applyOptions(p, pc); err != nil {
			errs = append(errs, fmt.Errorf("port %q: %w", name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		h.log.Error().Err(err).Msg("reconfigure failed")
	}
}

// WatchConfig reloads configuration from path whenever the file changes.
func (h *HioloadIO) WatchConfig(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watcher != nil {
		return api.ErrAlreadyOpen
	}
	w, err := control.WatchConfig(path, h.control.Store(), h.log)
	if err != nil {
		return err
	}
	h.watcher = w
	return nil
}

// Stats returns metrics, debug probes and io context counters.
func (h *HioloadIO) Stats() map[string]any {
	stats := h.control.Stats()
	s := h.ctx.Stats()
	stats["io.posted"] = s.Posted
	stats["io.executed"] = s.Executed
	stats["io.panics"] = s.Panics
	return stats
}

// Shutdown closes every port, lets the workers run the resulting aborted
// handlers, and releases the context. Further calls do nothing.
func (h *HioloadIO) Shutdown() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var errs []error
	for name, p := range h.ports {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	h.ports = map[string]*serial.Port{}
	w := h.watcher
	h.watcher = nil
	h.mu.Unlock()

	if w != nil {
		errs = append(errs, w.Close())
	}
	errs = append(errs, h.exec.Close())
	h.ctx.Shutdown()
	h.log.Info().Msg("stopped")
	return errors.Join(errs...)
}
