// Package watcher observes a project tree with fsnotify and emits
// debounced change events so watch mode can reprocess files as they are
// edited, without thrashing on editor save storms.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/srcmetrics/srcmetrics/internal/config"
	"github.com/srcmetrics/srcmetrics/internal/document"
)

// Event is a debounced change to one file.
type Event struct {
	// Path is relative to the watched root, slash-separated.
	Path string
	// Removed reports the file is gone rather than changed.
	Removed bool
}

// Options configures the watcher.
type Options struct {
	// DebounceWindow is how long to coalesce events per path.
	// Default: 500ms.
	DebounceWindow time.Duration
}

// Watcher emits debounced file events for supported source files.
type Watcher struct {
	root     string
	fsw      *fsnotify.Watcher
	debounce *debouncer
}

// New creates a watcher over root, registering every non-ignored
// directory recursively.
func New(root string, opts Options) (*Watcher, error) {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		fsw:      fsw,
		debounce: newDebouncer(opts.DebounceWindow),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (name == ".git" || name == config.DataDirName) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			slog.Warn("cannot watch directory",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("register watches: %w", err)
	}
	return w, nil
}

// Events returns the debounced event channel.
func (w *Watcher) Events() <-chan Event {
	return w.debounce.out
}

// Run pumps fsnotify events into the debouncer until the context is
// cancelled. New directories are registered as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debounce.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", slog.String("error", err.Error()))
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		}
	}
}

// Close releases watch resources.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Op.Has(fsnotify.Create) {
		// A new directory needs its own watch.
		if err := w.fsw.Add(ev.Name); err == nil {
			slog.Debug("watching new path", slog.String("path", rel))
		}
	}

	if _, ok := document.LanguageForPath(rel); !ok {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.debounce.add(Event{Path: rel, Removed: true})
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		w.debounce.add(Event{Path: rel})
	}
}
