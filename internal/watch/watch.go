// Package watch reruns work when script or configuration files change.
//
// Parent directories are watched rather than the files themselves so that
// editors which save by renaming a temporary file are still noticed.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long a burst of changes must settle before the
// callback runs.
const DefaultDelay = 150 * time.Millisecond

// ErrNoFiles is returned by New when no path is given.
var ErrNoFiles = errors.New("no files to watch")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	fsw    *fsnotify.Watcher
	files  map[string]bool
	delay  time.Duration
	logger *slog.Logger
}

// New watches the given files. Empty paths are skipped.
func New(paths []string, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		files:  make(map[string]bool),
		delay:  DefaultDelay,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	if len(w.files) == 0 {
		return nil, ErrNoFiles
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	w.fsw = fsw
	return w, nil
}

// Files returns the watched files, sorted.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run calls fn with the sorted set of changed files each time a burst of
// changes settles. It returns ctx.Err() when ctx is done.
func (w *Watcher) Run(ctx context.Context, fn func(changed []string)) error {
	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(ev.Name)
			if !w.files[name] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watch error", slog.Any("error", err))

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			clear(pending)
			slices.Sort(changed)
			w.logger.Debug("files changed", slog.Any("files", changed))
			fn(changed)
		}
	}
}
