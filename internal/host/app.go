package host

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/javi11/apphost/internal/app"
	"github.com/javi11/apphost/internal/jobs"
	"github.com/javi11/apphost/internal/restartwatcher"
	"github.com/javi11/apphost/internal/runtime"
	"github.com/javi11/apphost/pkg/sharedpool"
)

// App is one hosted application with its runtime pool.
type App struct {
	Metadata *app.Metadata
	Pool     *sharedpool.SharedPool[*runtime.Runtime]
	Jobs     jobs.Scheduler

	borrowTimeout time.Duration
	watcher       *restartwatcher.Watcher
	restarts      *restartTracker
}

type AppInfo struct {
	Name        string           `json:"name"`
	Root        string           `json:"root"`
	Environment string           `json:"environment"`
	Pool        sharedpool.Stats `json:"pool"`
	Restarts    int64            `json:"restarts"`
	LastRestart *time.Time       `json:"last_restart,omitempty"`
	Jobs        []jobs.Job       `json:"jobs"`
}

func (a *App) Info() AppInfo {
	count, last := a.restarts.snapshot()

	return AppInfo{
		Name:        a.Metadata.Name,
		Root:        a.Metadata.RootPath(),
		Environment: a.Metadata.Environment,
		Pool:        a.Pool.Stats(),
		Restarts:    count,
		LastRestart: last,
		Jobs:        a.Jobs.Jobs(),
	}
}

// Exec runs a script on a borrowed runtime under an anonymous requester id.
func (a *App) Exec(ctx context.Context, script string, args ...string) ([]byte, error) {
	rt, err := a.Pool.Borrow(ctx, "exec:"+uuid.NewString(), a.borrowTimeout)
	if err != nil {
		return nil, err
	}
	defer a.Pool.Release(rt)

	return rt.Exec(ctx, script, args...)
}

type restartTracker struct {
	mx    sync.Mutex
	count int64
	last  time.Time
}

func (r *restartTracker) OnRestart(sharedpool.RestartEvent) error {
	r.mx.Lock()
	defer r.mx.Unlock()

	r.count++
	r.last = time.Now()

	return nil
}

func (r *restartTracker) snapshot() (int64, *time.Time) {
	r.mx.Lock()
	defer r.mx.Unlock()

	if r.count == 0 {
		return 0, nil
	}
	last := r.last

	return r.count, &last
}
