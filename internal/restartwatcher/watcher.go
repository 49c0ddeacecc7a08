package restartwatcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

type Restarter interface {
	Restart() error
}

// Watcher restarts a pool whenever its marker file is created or touched.
type Watcher struct {
	watcher  *fsnotify.Watcher
	marker   string
	pool     Restarter
	debounce time.Duration
	log      *slog.Logger

	mx     sync.Mutex
	timer  *time.Timer
	closed bool
}

func NewWatcher(marker string, pool Restarter, log *slog.Logger) (*Watcher, error) {
	marker = filepath.Clean(marker)
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(marker)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	return &Watcher{
		watcher:  watcher,
		marker:   marker,
		pool:     pool,
		debounce: defaultDebounce,
		log:      log,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) {
	w.log.InfoContext(ctx, "Watching restart marker", "marker", w.marker)

	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.marker {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					w.schedule()
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.ErrorContext(ctx, "Restart watcher error", "marker", w.marker, "err", err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// schedule coalesces the burst of events a single touch produces into one restart.
func (w *Watcher) schedule() {
	w.mx.Lock()
	defer w.mx.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}

	w.timer = time.AfterFunc(w.debounce, w.restart)
}

func (w *Watcher) restart() {
	w.mx.Lock()
	w.timer = nil
	closed := w.closed
	w.mx.Unlock()

	if closed {
		return
	}

	w.log.Info("Restart marker touched, restarting", "marker", w.marker)
	if err := w.pool.Restart(); err != nil {
		w.log.Error("Failed to restart", "marker", w.marker, "err", err)
	}
}

func (w *Watcher) Close() error {
	w.mx.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mx.Unlock()

	return w.watcher.Close()
}
