// Package watch signals when scanned sources change, with debouncing.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors source directories and sends a signal after a burst of
// relevant changes settles.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	relevant  func(path string) bool
	logger    *slog.Logger
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Dirs are watched non-recursively; list every directory to cover.
	Dirs        []string
	DebounceDur time.Duration
	// Relevant filters events by path. Nil accepts everything.
	Relevant func(path string) bool
	Logger   *slog.Logger
}

// DefaultDebounce is the quiet period before a change is signalled.
const DefaultDebounce = 300 * time.Millisecond

// New creates a watcher and starts watching cfg.Dirs.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	for _, dir := range cfg.Dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	debounce := cfg.DebounceDur
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	relevant := cfg.Relevant
	if relevant == nil {
		relevant = func(string) bool { return true }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		relevant:  relevant,
		logger:    logger,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes receives a signal after relevant changes settle. Signals do not
// queue: several bursts before a read collapse into one.
func (w *Watcher) Changes() <-chan struct{} {
	return w.onChange
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.C
		}

		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.followNewDir(event)
			if !w.isRelevantEvent(event) {
				continue
			}
			w.logger.Debug("source changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-fire:
			if pending {
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// followNewDir watches directories created under a watched one.
func (w *Watcher) followNewDir(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() || !w.relevant(event.Name+string(os.PathSeparator)) {
		return
	}
	if err := w.fsWatcher.Add(event.Name); err != nil {
		w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.relevant(event.Name)
}

// Run calls fn after every signal from w until ctx is done. Errors from fn are
// logged and watching continues.
func Run(ctx context.Context, w *Watcher, logger *slog.Logger, fn func(context.Context) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changes():
			if err := fn(ctx); err != nil {
				logger.Error("rescan failed", "error", err)
			}
		}
	}
}
