package license

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called once per debounced change of a watched file
type ChangeFunc func(ctx context.Context, path string)

// Watcher reports changes to the revocation list and the license file, such
// as a new list dropped in by an update or a license removed by another tool.
// Parent directories are watched so that files replaced by rename are seen.
type Watcher struct {
	files    map[string]struct{}
	dirs     []string
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger
}

// NewWatcher creates a watcher for files
func NewWatcher(files []string, debounce time.Duration, onChange ChangeFunc, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(files)),
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With(slog.String("component", "license.watcher")),
	}

	seen := make(map[string]struct{})
	for _, f := range files {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		f = filepath.Clean(f)
		w.files[f] = struct{}{}

		dir := filepath.Dir(f)
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			w.dirs = append(w.dirs, dir)
		}
	}
	return w
}

// Run watches until ctx is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			w.logger.WarnContext(ctx, "Cannot create watched directory", slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		if err := watcher.Add(dir); err != nil {
			w.logger.WarnContext(ctx, "Cannot watch directory", slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		w.logger.DebugContext(ctx, "Watching directory", slog.String("dir", dir))
	}

	fired := make(chan string)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path := filepath.Clean(event.Name)
			if _, watched := w.files[path]; !watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if t, pending := timers[path]; pending {
				t.Reset(w.debounce)
				continue
			}
			timers[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fired <- path:
				case <-ctx.Done():
				}
			})

		case path := <-fired:
			delete(timers, path)
			w.logger.InfoContext(ctx, "Watched license file changed", slog.String("path", path))
			if w.onChange != nil {
				w.onChange(ctx, path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.ErrorContext(ctx, "Watcher error", slog.String("error", err.Error()))
		}
	}
}
