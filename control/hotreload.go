// control/hotreload.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Watches the config file and publishes every successfully parsed version
// to a ConfigStore. The parent directory is watched so that editors which
// replace the file on save are handled too.

package control

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a config file on change.
type Watcher struct {
	path  string
	store *ConfigStore
	fsw   *fsnotify.Watcher
	log   zerolog.Logger

	reloads  atomic.Uint64
	failures atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

// WatchConfig starts watching path. Invalid versions are logged and skipped;
// the store keeps the last good config.
func WatchConfig(path string, store *ConfigStore, log zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w := &Watcher{
		path:  abs,
		store: store,
		fsw:   fsw,
		log:   log.With().Str("component", "config-watcher").Str("path", abs).Logger(),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				_ = w.Reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

// Reload parses the file now and publishes it on success.
func (w *Watcher) Reload() error {
	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.failures.Add(1)
		w.log.Error().Err(err).Msg("config reload rejected")
		return err
	}
	w.reloads.Add(1)
	w.log.Info().Int("ports", len(cfg.Ports)).Msg("config reloaded")
	w.store.Set(cfg)
	return nil
}

// Reloads returns the number of published reloads.
func (w *Watcher) Reloads() uint64 { return w.reloads.Load() }

// Failures returns the number of rejected reloads.
func (w *Watcher) Failures() uint64 { return w.failures.Load() }

// Close stops watching and waits for the watch goroutine.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		<-w.done
	})
	return err
}
