package library

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes from editors and copy tools.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc receives a freshly loaded library after the file changed.
type ReloadFunc func(*Library) error

// Watcher reloads a library file when it changes on disk.
//
// The containing directory is watched rather than the file so that
// editors which save by rename are still observed. A reload that fails to
// load is logged and skipped; the previous library stays in effect.
type Watcher struct {
	path     string
	onReload ReloadFunc
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher starts watching path. Call Run to process events and Close
// to release the underlying watcher.
func NewWatcher(path string, onReload ReloadFunc, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}

	w := &Watcher{
		path:     abs,
		onReload: onReload,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		watcher:  fw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes file events until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("library file changed", "path", w.path, "op", event.Op.String())
			w.schedule(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("library watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) reload() {
	lib, err := Load(w.path)
	if err != nil {
		w.logger.Error("library reload failed, keeping previous library",
			"path", w.path, "error", err)
		return
	}
	if err := w.onReload(lib); err != nil {
		w.logger.Error("library reload callback failed", "path", w.path, "error", err)
		return
	}
	w.logger.Info("library reloaded", "path", w.path, "entities", len(lib.Entities))
}
