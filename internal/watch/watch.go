// Package watch re-runs link checks when documentation files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/checklinks/internal/extract"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
)

// DefaultDebounce groups bursts of editor writes into one run.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to scannable files below a set of paths.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

// New watches paths (directories recursively, hidden ones excluded). The
// watches are in place when New returns.
func New(paths []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{watcher: fw, debounce: debounce, logger: logger}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", p, err)
		}
		if !info.IsDir() {
			// Watching the parent survives editors that replace files on save.
			p = filepath.Dir(p)
		}
		if err := w.addTree(p); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

// Run calls onChange with the sorted set of changed files after each quiet
// period of the debounce interval, until ctx is done. onChange runs on the
// watch goroutine; changes arriving meanwhile are batched into the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string)) error {
	defer func() { _ = w.watcher.Close() }()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				pending[event.Name] = struct{}{}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", logfields.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			w.logger.Info("Documentation changed", logfields.Count(len(changed)))
			onChange(ctx, changed)
		}
	}
}

// handle reacts to one event and reports whether it concerns a scannable file.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
				}
			}
			return false
		}
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	if _, ok := extract.DetectFormat(event.Name); !ok {
		return false
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.logger.Debug("File change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
		return true
	}
	return false
}
