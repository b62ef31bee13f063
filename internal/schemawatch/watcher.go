// Package schemawatch reloads a schema file when it changes on disk.
package schemawatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const (
	debounceDelay = 100 * time.Millisecond
	reloadTimeout = 30 * time.Second
)

// ReloadFunc is called after the watched file settles.
type ReloadFunc func(ctx context.Context) error

// Watcher watches a single file.
type Watcher struct {
	path     string
	reload   ReloadFunc
	logger   *log.Logger
	debounce time.Duration
	timeout  time.Duration

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for reload failures.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadTimeout bounds each reload. Defaults to 30s.
func WithReloadTimeout(d time.Duration) Option {
	return func(w *Watcher) { w.timeout = d }
}

// Watch starts watching path and calls reload after changes. The parent
// directory is watched so that editors replacing the file are noticed.
func Watch(path string, reload ReloadFunc, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		reload:   reload,
		debounce: debounceDelay,
		timeout:  reloadTimeout,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	if w.logger == nil {
		w.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "schemawatch"})
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.cancel()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		w.cancel()
		fw.Close()
		return nil, err
	}
	w.watcher = fw

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Close stops watching and waits for the watch loop to exit. The context of
// a reload that is already running is canceled.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var (
		timer   *time.Timer
		fire    = make(chan struct{}, 1)
		pending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			pending = true
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if !pending {
				continue
			}
			pending = false
			if _, err := os.Stat(w.path); err != nil {
				// Removed or mid-rename; a later Create will trigger again.
				continue
			}
			w.logger.Info("schema changed", "path", w.path)
			w.runReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) runReload() {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	if err := w.reload(ctx); err != nil {
		w.logger.Error("reload failed", "path", w.path, "err", err)
	}
}
