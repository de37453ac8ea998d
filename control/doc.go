// Package control
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Configuration, hot reload, logging, runtime metrics and debug
// introspection for hioload-io.
//
// Provides:
//   - TOML configuration of named serial ports (Config, LoadConfig)
//   - A config snapshot store with reload listeners and a file watcher
//   - zerolog logger construction from config
//   - Metrics and debug probe registries
package control
