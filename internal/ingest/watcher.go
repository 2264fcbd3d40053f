// Package ingest watches inbox directories and feeds new receipt files into
// capture sessions.
package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoRoots is returned when a watcher is started without directories.
var ErrNoRoots = errors.New("no roots provided")

// DefaultDebounce coalesces the create/write bursts of a single file copy.
const DefaultDebounce = 250 * time.Millisecond

// DefaultExts are the file types picked up from an inbox (lowercase, without '.').
func DefaultExts() map[string]struct{} {
	return map[string]struct{}{
		"pdf":  {},
		"jpg":  {},
		"jpeg": {},
		"png":  {},
	}
}

// WatchConfig configures StartWatcher.
type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	AllowedExts map[string]struct{}
	InitialScan bool          // emit files already present in the roots
	Debounce    time.Duration // coalesce rapid create/write bursts
}

// StartWatcher emits paths of new or changed files under cfg.Roots until ctx
// is done. Rename events name the old path and are ignored; a file moved into
// or renamed within a root arrives as a create. Paths that no longer exist
// when the debounce fires are dropped. Both channels are closed when the
// watcher stops.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, ErrNoRoots
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = DefaultExts()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	var existing []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && allowed(path, cfg.AllowedExts) {
				existing = append(existing, path)
			}
			return nil
		})
		if err != nil {
			slog.Error("Failed to add inbox directory", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				slog.Debug("Closing watcher failed", "error", err)
			}
		}()

		emit := func(path string) bool {
			select {
			case evCh <- path:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, path := range existing {
			if !emit(path) {
				return
			}
		}

		pending := make(map[string]struct{})
		var timer *time.Timer
		var timerC <-chan time.Time

		flush := func() bool {
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				if info, err := os.Stat(p); err != nil || info.IsDir() {
					slog.Debug("Skipping vanished inbox path", "path", p)
					continue
				}
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					// New subdirectories are watched too. Adding a file fails
					// harmlessly.
					_ = w.Add(e.Name)
				}
				if !allowed(e.Name, cfg.AllowedExts) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				timerC = timer.C

			case <-timerC:
				timerC = nil
				if !flush() {
					return
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func allowed(path string, exts map[string]struct{}) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}
