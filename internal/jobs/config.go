package jobs

import (
	"log/slog"
	"time"

	"github.com/javi11/apphost/internal/runtime"
	"github.com/javi11/apphost/pkg/sharedpool"
)

type Config struct {
	app           string
	pool          sharedpool.Pool[*runtime.Runtime]
	store         Store
	jobs          []Job
	borrowTimeout time.Duration
	log           *slog.Logger
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		borrowTimeout: 30 * time.Second,
		log:           slog.Default(),
	}
}

func WithApp(app string) Option {
	return func(c *Config) {
		c.app = app
	}
}

func WithPool(pool sharedpool.Pool[*runtime.Runtime]) Option {
	return func(c *Config) {
		c.pool = pool
	}
}

func WithStore(store Store) Option {
	return func(c *Config) {
		c.store = store
	}
}

func WithJobs(jobs ...Job) Option {
	return func(c *Config) {
		c.jobs = append(c.jobs, jobs...)
	}
}

func WithBorrowTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.borrowTimeout = timeout
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Config) {
		c.log = log
	}
}
