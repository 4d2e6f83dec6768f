package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 300 * time.Millisecond

// ChangeEvent describes a change to the watched file.
type ChangeEvent struct {
	Path       string
	ChangeType string // "create", "write", "remove", "rename"
}

// FileWatcher watches a single file. It watches the parent directory so that
// editors which save by rename-and-replace keep being observed.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func(ChangeEvent)
}

// NewFileWatcher watches path and calls onChange after each debounced burst
// of changes. A zero debounce uses 300ms.
func NewFileWatcher(path string, debounce time.Duration, onChange func(ChangeEvent)) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if debounce == 0 {
		debounce = defaultDebounce
	}
	return &FileWatcher{
		watcher:  w,
		path:     abs,
		debounce: debounce,
		onChange: onChange,
	}, nil
}

func (w *FileWatcher) Path() string { return w.path }

// Run blocks until ctx is cancelled or the watcher fails.
func (w *FileWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debouncer := NewDebouncer(w.debounce, func(ev ChangeEvent) {
		if w.onChange != nil {
			w.onChange(ev)
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			changeType := opToChangeType(event.Op)
			if changeType == "" {
				continue
			}
			debouncer.Trigger(ChangeEvent{Path: w.path, ChangeType: changeType})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func opToChangeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}
