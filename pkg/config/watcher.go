package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Live hands out the current configuration snapshot to long-running
// components. The listener consults it per connection, so banner and
// deception changes take effect without a restart. Listen address, API port
// and database path still require one.
type Live struct {
	current atomic.Pointer[Config]
}

// NewLive wraps an initial configuration.
func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.current.Store(cfg)
	return l
}

// Snapshot returns the current configuration. Callers must not mutate it.
func (l *Live) Snapshot() *Config { return l.current.Load() }

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	fw     *fsnotify.Watcher
	live   *Live
	logger zerolog.Logger
	done   chan struct{}
}

// Watch starts watching the given config file, pushing successful reloads
// into live. A file that fails to reload keeps the previous snapshot.
func Watch(path string, live *Live, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		fw:     fw,
		live:   live,
		logger: logger.With().Str("component", "config_watcher").Logger(),
		done:   make(chan struct{}),
	}
	go w.run()

	w.logger.Info().Str("path", path).Msg("Watching config file for changes")
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadConfig()
			if err != nil {
				w.logger.Error().Err(err).Msg("Config reload failed, keeping previous values")
				continue
			}
			w.live.current.Store(cfg)
			w.logger.Info().
				Str("banner", cfg.Listen.Banner).
				Bool("deception_enabled", cfg.Deception.Enabled).
				Msg("Config reloaded")
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Config watcher error")
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
