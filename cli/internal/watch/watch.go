// Package watch reruns a command when a file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before the
// callback runs.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a single file. Editors often replace files instead of
// writing them, so the containing directory is watched.
type Watcher struct {
	file     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// New creates a watcher for file.
func New(file string, debounce time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{file: absPath, debounce: debounce, watcher: watcher}, nil
}

// Run calls fn once, then after every change to the file until ctx is done.
// Errors from fn go to onError and do not stop the watch.
func (w *Watcher) Run(ctx context.Context, fn func() error, onError func(error)) error {
	defer w.watcher.Close()

	if err := fn(); err != nil {
		onError(err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := fn(); err != nil {
				onError(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			onError(fmt.Errorf("watch: %w", err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	path, err := filepath.Abs(event.Name)
	return err == nil && path == w.file
}
