package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/javi11/apphost/internal/runtime"
	"github.com/javi11/apphost/pkg/sharedpool"
)

const maxOutputSize = 64 * 1024

type Scheduler interface {
	sharedpool.RestartListener
	Start(ctx context.Context)
	RunNow(ctx context.Context, name string) (Run, error)
	Jobs() []Job
	History(ctx context.Context, name string, limit int) ([]Run, error)
}

type scheduledJob struct {
	Job
	running sync.Mutex
}

// resolved is a job script looked up on the runtime of a given epoch.
type resolved struct {
	epoch  uint64
	source *runtime.Source
}

type scheduler struct {
	app           string
	pool          sharedpool.Pool[*runtime.Runtime]
	store         Store
	jobs          []*scheduledJob
	byName        map[string]*scheduledJob
	borrowTimeout time.Duration
	log           *slog.Logger

	epoch    atomic.Uint64
	mx       sync.Mutex
	resolved map[string]resolved
}

func NewScheduler(options ...Option) (Scheduler, error) {
	config := defaultConfig()
	for _, option := range options {
		option(config)
	}

	if config.pool == nil {
		return nil, errors.New("a runtime pool is required")
	}
	if config.store == nil {
		return nil, errors.New("a job store is required")
	}

	s := &scheduler{
		app:           config.app,
		pool:          config.pool,
		store:         config.store,
		byName:        make(map[string]*scheduledJob, len(config.jobs)),
		borrowTimeout: config.borrowTimeout,
		log:           config.log.With("app", config.app),
		resolved:      make(map[string]resolved),
	}

	for _, job := range config.jobs {
		if err := job.Validate(); err != nil {
			return nil, err
		}
		if _, ok := s.byName[job.Name]; ok {
			return nil, fmt.Errorf("duplicated job %s", job.Name)
		}
		sj := &scheduledJob{Job: job}
		s.jobs = append(s.jobs, sj)
		s.byName[job.Name] = sj
	}

	return s, nil
}

// Start runs every job on its interval until ctx is done.
func (s *scheduler) Start(ctx context.Context) {
	if len(s.jobs) == 0 {
		return
	}

	s.log.InfoContext(ctx, "Job scheduler started", "jobs", len(s.jobs))

	var merr multierror.Group
	for _, job := range s.jobs {
		job := job
		merr.Go(func() error {
			ticker := time.NewTicker(job.Every)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := s.run(ctx, job); err != nil && !errors.Is(err, ErrJobRunning) {
						s.log.ErrorContext(ctx, "Job failed", "job", job.Name, "err", err)
					}
				}
			}
		})
	}

	_ = merr.Wait()
	s.log.Info("Job scheduler stopped")
}

func (s *scheduler) RunNow(ctx context.Context, name string) (Run, error) {
	job, ok := s.byName[name]
	if !ok {
		return Run{}, ErrJobNotFound
	}

	return s.run(ctx, job)
}

func (s *scheduler) Jobs() []Job {
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Job)
	}

	return jobs
}

func (s *scheduler) History(ctx context.Context, name string, limit int) ([]Run, error) {
	if _, ok := s.byName[name]; !ok {
		return nil, ErrJobNotFound
	}

	return s.store.List(ctx, s.app, name, limit)
}

// OnRestart drops the scripts resolved on the previous runtime.
func (s *scheduler) OnRestart(event sharedpool.RestartEvent) error {
	s.epoch.Add(1)

	s.mx.Lock()
	s.resolved = make(map[string]resolved)
	s.mx.Unlock()

	s.log.Debug("Dropped resolved job scripts", "generation", event.Generation)

	return nil
}

func (s *scheduler) run(ctx context.Context, job *scheduledJob) (Run, error) {
	if job.Singleton {
		if !job.running.TryLock() {
			s.log.WarnContext(ctx, "Job still running, skipping", "job", job.Name)
			return Run{App: s.app, Job: job.Name, Status: StatusSkipped}, ErrJobRunning
		}
		defer job.running.Unlock()
	}

	run := Run{
		ID:        uuid.NewString(),
		App:       s.app,
		Job:       job.Name,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.store.Start(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to record job start", "job", job.Name, "err", err)
	}

	out, err := s.exec(ctx, job)
	finishedAt := time.Now()
	run.FinishedAt = &finishedAt
	run.Output = truncate(out)
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	} else {
		run.Status = StatusSucceeded
	}

	// The run is recorded even when ctx is already done.
	if serr := s.store.Finish(context.WithoutCancel(ctx), run); serr != nil {
		s.log.ErrorContext(ctx, "Failed to record job result", "job", job.Name, "err", serr)
	}

	s.log.InfoContext(ctx, "Job finished", "job", job.Name, "run", run.ID, "status", run.Status, "elapsed", finishedAt.Sub(run.StartedAt))

	return run, err
}

func (s *scheduler) exec(ctx context.Context, job *scheduledJob) ([]byte, error) {
	epoch := s.epoch.Load()

	rt, err := s.pool.Borrow(ctx, "job:"+job.Name, s.borrowTimeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.pool.Release(rt); err != nil {
			s.log.Error("Failed to release runtime", "job", job.Name, "err", err)
		}
	}()

	src, err := s.resolve(rt, epoch, job.Script)
	if err != nil {
		return nil, err
	}

	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	return rt.Exec(ctx, src.Path, job.Args...)
}

// resolve returns the script source for rt. epoch must be read before rt was borrowed so
// a lookup on an outgoing runtime is never served to its replacement.
func (s *scheduler) resolve(rt *runtime.Runtime, epoch uint64, script string) (*runtime.Source, error) {
	s.mx.Lock()
	r, ok := s.resolved[script]
	s.mx.Unlock()
	if ok && r.epoch == epoch {
		return r.source, nil
	}

	src, err := rt.Require(script)
	if err != nil {
		return nil, err
	}

	if s.epoch.Load() == epoch {
		s.mx.Lock()
		s.resolved[script] = resolved{epoch: epoch, source: src}
		s.mx.Unlock()
	}

	return src, nil
}

func truncate(out []byte) string {
	if len(out) > maxOutputSize {
		out = out[len(out)-maxOutputSize:]
	}

	return string(out)
}
