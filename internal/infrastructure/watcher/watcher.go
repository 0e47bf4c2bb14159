// Package watcher notifies when a coverage resultset is rewritten on disk.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// Watcher monitors individual files for changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      logr.Logger

	mu      sync.RWMutex
	targets map[string]struct{}
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for file change events.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger sets the logger that receives watch errors.
func WithLogger(log logr.Logger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// New creates a new file watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		debounce: 500 * time.Millisecond,
		log:      logr.Discard(),
		targets:  make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// WatchFile starts watching path. The parent directory is watched rather than
// the file itself, so the file may be created later or replaced by a rename.
// The directory must already exist.
func (w *Watcher) WatchFile(path string) error {
	clean := filepath.Clean(path)
	if err := w.watcher.Add(filepath.Dir(clean)); err != nil {
		return err
	}
	w.mu.Lock()
	w.targets[clean] = struct{}{}
	w.mu.Unlock()
	return nil
}

// Events returns a channel that emits when a watched file changes.
// The channel is debounced so a burst of writes yields one notification.
func (w *Watcher) Events(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		var timer *time.Timer
		var timerCh <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !isWriteEvent(event.Op) || !w.isTarget(event.Name) {
					continue
				}

				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C

			case <-timerCh:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
				timerCh = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Error(err, "file watch error")
			}
		}
	}()

	return out
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isWriteEvent(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create)
}

func (w *Watcher) isTarget(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.targets[filepath.Clean(name)]
	return ok
}
