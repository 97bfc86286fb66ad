package config

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher hot-reloads tunable thresholds (token budgets, concurrency
// caps) from the config file without a process
// restart. A reload that fails validation is logged and discarded; the
// previously loaded Config is retained.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *logrus.Logger
	current atomic.Pointer[Config]
}

// NewWatcher starts watching path's parent directory (not the file
// itself, so an editor's write-rename-replace cycle is still seen) and
// seeds Current with initial.
func NewWatcher(path string, initial *Config, logger *logrus.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: filepath.Clean(path), watcher: fsw, logger: logger}
	w.current.Store(initial)
	return w, nil
}

// Current returns the most recently (successfully) loaded Config.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// Run blocks, reloading Current on every write/create event targeting
// the watched path, until ctx is cancelled. Callers run this in a
// goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloaded, err := Load(w.path)
			if err != nil {
				if w.logger != nil {
					w.logger.WithError(err).Warn("config hot-reload failed, retaining previous configuration")
				}
				continue
			}
			w.current.Store(reloaded)
			if w.logger != nil {
				w.logger.Info("configuration hot-reloaded")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.WithError(err).Warn("config watcher error")
			}
		}
	}
}
