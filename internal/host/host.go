package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/javi11/apphost/internal/config"
	"github.com/javi11/apphost/internal/jobs"
	"github.com/javi11/apphost/internal/restartwatcher"
	"github.com/javi11/apphost/internal/runtime"
	"github.com/javi11/apphost/pkg/sharedpool"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var ErrAppNotFound = errors.New("app not found")

type Host struct {
	apps map[string]*App
	log  *slog.Logger

	mx     sync.Mutex
	cancel context.CancelFunc
	tasks  multierror.Group
}

// New builds an App for every configured application. Nothing is started until Start.
func New(cfg *config.Config, store jobs.Store, log *slog.Logger) (*Host, error) {
	h := &Host{
		apps: make(map[string]*App, len(cfg.Apps)),
		log:  log,
	}

	for _, ac := range cfg.Apps {
		a, err := newApp(ac, store, log)
		if err != nil {
			return nil, fmt.Errorf("app %s: %w", ac.Name, err)
		}
		h.apps[a.Metadata.Name] = a
	}

	return h, nil
}

func newApp(ac config.App, store jobs.Store, log *slog.Logger) (*App, error) {
	md := ac.Metadata()
	log = log.With("app", md.Name)

	initializers := make([]runtime.Initializer, 0, len(ac.Initializers))
	for _, spec := range ac.Initializers {
		initializer, err := runtime.NewInitializer(spec, md)
		if err != nil {
			return nil, err
		}
		initializers = append(initializers, initializer)
	}

	factory, err := runtime.NewFactory(
		runtime.WithApp(md),
		runtime.WithCommand(ac.Interpreter),
		runtime.WithLoadPaths(ac.LoadPaths),
		runtime.WithPreload(ac.Preload),
		runtime.WithInitializers(initializers...),
		runtime.WithSourceCacheSize(ac.SourceCacheSize),
		runtime.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	pool := sharedpool.New[*runtime.Runtime](factory,
		sharedpool.WithName(md.Name),
		sharedpool.WithDeferStart(!ac.EagerStart),
		sharedpool.WithLogger(log),
	)

	scheduler, err := jobs.NewScheduler(
		jobs.WithApp(md.Name),
		jobs.WithPool(pool),
		jobs.WithStore(store),
		jobs.WithJobs(ac.ToJobs()...),
		jobs.WithBorrowTimeout(ac.BorrowTimeout),
		jobs.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	restarts := &restartTracker{}
	pool.RegisterRestartListener(restarts)
	pool.RegisterRestartListener(scheduler)

	a := &App{
		Metadata:      md,
		Pool:          pool,
		Jobs:          scheduler,
		borrowTimeout: ac.BorrowTimeout,
		restarts:      restarts,
	}

	if ac.ShouldWatchRestart() {
		a.watcher, err = restartwatcher.NewWatcher(ac.MarkerPath(), pool, log)
		if err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Start starts every pool, watcher and job scheduler. Pools that fail to start are
// reported together; the remaining applications keep running.
func (h *Host) Start(ctx context.Context) error {
	h.mx.Lock()
	defer h.mx.Unlock()

	if h.cancel != nil {
		return errors.New("host already started")
	}
	ctx, h.cancel = context.WithCancel(ctx)

	var merr *multierror.Error
	for _, name := range h.Names() {
		a := h.apps[name]
		if err := a.Pool.Start(ctx); err != nil {
			h.log.ErrorContext(ctx, "Failed to start runtime pool", "app", name, "err", err)
			merr = multierror.Append(merr, fmt.Errorf("app %s: %w", name, err))
		}

		if a.watcher != nil {
			a.watcher.Start(ctx)
		}

		h.tasks.Go(func() error {
			a.Jobs.Start(ctx)
			return nil
		})
	}

	h.log.InfoContext(ctx, "Host started", "apps", len(h.apps))

	return merr.ErrorOrNil()
}

// Stop stops schedulers and watchers, then every pool.
func (h *Host) Stop() error {
	h.mx.Lock()
	defer h.mx.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	_ = h.tasks.Wait()

	var merr *multierror.Error
	for _, name := range h.Names() {
		a := h.apps[name]
		if a.watcher != nil {
			if err := a.watcher.Close(); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("app %s: %w", name, err))
			}
		}
		if err := a.Pool.Stop(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("app %s: %w", name, err))
		}
	}

	h.log.Info("Host stopped")

	return merr.ErrorOrNil()
}

func (h *Host) App(name string) (*App, error) {
	a, ok := h.apps[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrAppNotFound)
	}

	return a, nil
}

func (h *Host) Names() []string {
	names := maps.Keys(h.apps)
	slices.Sort(names)

	return names
}
