// Package watch re-runs an action whenever files below a directory change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
)

// DefaultDebounce coalesces bursts of events (editor saves, git checkouts).
const DefaultDebounce = 300 * time.Millisecond

// Watcher runs an action once and again after every settled change below root.
// Runs never overlap: events arriving during a run schedule one more run.
type Watcher struct {
	root     string
	debounce time.Duration
	action   func(ctx context.Context) error
}

// New creates a watcher for root.
func New(root string, action func(ctx context.Context) error) *Watcher {
	return &Watcher{root: root, debounce: DefaultDebounce, action: action}
}

// WithDebounce overrides the quiet period before a run.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Run blocks until ctx is canceled. Failed runs are logged and watching
// continues; only setup failures are returned.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to create file watcher").Fatal().Build()
	}
	defer func() { _ = fw.Close() }()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch sample directory").
			Fatal().
			WithContext("path", w.root).
			Build()
	}
	slog.Info("Watching for changes", logfields.Path(w.root))

	w.runOnce(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			slog.Info("Stopped watching", logfields.Path(w.root))
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !handleEvent(fw, ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", logfields.Error(err))
		case <-fire:
			timer, fire = nil, nil
			slog.Info("Change detected, re-running")
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	if err := w.action(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Run failed, waiting for further changes", logfields.Error(err))
	}
}

// handleEvent reports whether ev should trigger a run; new directories are
// added to the watch list.
func handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if shouldIgnoreEvent(ev.Name) || ev.Op == fsnotify.Chmod {
		return false
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(fw, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), "op", ev.Op.String())
	return true
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for hidden, editor swap and OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db", base == "4913": // vim probes writability with 4913
		return true
	}
	return false
}
