// control/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TOML configuration for the library and its named serial ports, plus a
// thread-safe store that publishes config snapshots to reload listeners.

package control

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/momentics/hioload-io/api"
	"github.com/momentics/hioload-io/serial/options"
)

// Config is the top-level configuration.
type Config struct {
	Workers       int                   `toml:"workers"`
	EnableMetrics bool                  `toml:"enable_metrics"`
	EnableDebug   bool                  `toml:"enable_debug"`
	Log           LogConfig             `toml:"log"`
	Ports         map[string]PortConfig `toml:"ports"`
}

// LogConfig selects the log level and output format ("json" or "console").
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// PortConfig describes one named serial line. Zero or empty fields leave
// the corresponding line setting untouched.
type PortConfig struct {
	Device        string `toml:"device"`
	BaudRate      uint   `toml:"baud_rate"`
	CharacterSize uint   `toml:"character_size"`
	Parity        string `toml:"parity"`
	StopBits      string `toml:"stop_bits"`
	FlowControl   string `toml:"flow_control"`
}

// DefaultConfig returns a config with one worker and no ports.
func DefaultConfig() *Config {
	return &Config{
		Workers:       1,
		EnableMetrics: true,
		EnableDebug:   false,
		Log:           LogConfig{Level: "info", Format: "console"},
		Ports:         map[string]PortConfig{},
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return finish(cfg, md)
}

// ParseConfig decodes TOML text on top of DefaultConfig and validates it.
func ParseConfig(text string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(cfg, md)
}

func finish(cfg *Config, md toml.MetaData) (*Config, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown config keys %s", api.ErrInvalidArgument, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks worker count, log settings and every port.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", api.ErrInvalidArgument, c.Workers))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q", api.ErrInvalidArgument, c.Log.Format))
	}
	for _, name := range c.PortNames() {
		p := c.Ports[name]
		if p.Device == "" {
			errs = append(errs, fmt.Errorf("%w: port %q has no device", api.ErrInvalidArgument, name))
		}
		if _, err := p.Options(); err != nil {
			errs = append(errs, fmt.Errorf("port %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// PortNames returns the configured port names in sorted order.
func (c *Config) PortNames() []string {
	names := make([]string, 0, len(c.Ports))
	for name := range c.Ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options converts the port settings into line options in a fixed order.
func (p PortConfig) Options() ([]api.SettableOption, error) {
	var opts []api.SettableOption
	if p.BaudRate != 0 {
		opts = append(opts, options.BaudRate(p.BaudRate))
	}
	if p.CharacterSize != 0 {
		if p.CharacterSize < 5 || p.CharacterSize > 8 {
			return nil, fmt.Errorf("%w: character size %d", api.ErrInvalidArgument, p.CharacterSize)
		}
		opts = append(opts, options.CharacterSize(p.CharacterSize))
	}
	if p.Parity != "" {
		v, err := options.ParseParity(p.Parity)
		if err != nil {
			return nil, err
		}
		opts = append(opts, v)
	}
	if p.StopBits != "" {
		v, err := options.ParseStopBits(p.StopBits)
		if err != nil {
			return nil, err
		}
		opts = append(opts, v)
	}
	if p.FlowControl != "" {
		v, err := options.ParseFlowControl(p.FlowControl)
		if err != nil {
			return nil, err
		}
		opts = append(opts, v)
	}
	return opts, nil
}

// ConfigStore holds the current config snapshot and its reload listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    *Config
	listeners []func(*Config)
}

// NewConfigStore initializes a store holding cfg.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ConfigStore{config: cfg}
}

// Get returns the current snapshot. Callers must not modify it.
func (cs *ConfigStore) Get() *Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// Set replaces the snapshot and invokes every listener in registration
// order on the calling goroutine.
func (cs *ConfigStore) Set(cfg *Config) {
	cs.mu.Lock()
	cs.config = cfg
	listeners := slices.Clone(cs.listeners)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnReload registers a listener called on every Set.
func (cs *ConfigStore) OnReload(fn func(*Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
