package sharedpool

import (
	"log/slog"
	"time"
)

type Config struct {
	name       string
	deferStart bool
	log        *slog.Logger
	recheckMin time.Duration
	recheckMax time.Duration
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		name:       "anonymous-pool",
		deferStart: true,
		log:        slog.Default(),
		recheckMin: 10 * time.Millisecond,
		recheckMax: 500 * time.Millisecond,
	}
}

func WithName(name string) Option {
	return func(c *Config) {
		c.name = name
	}
}

// WithDeferStart controls whether Start creates the instance eagerly. A deferred pool
// creates its instance on the first Borrow.
func WithDeferStart(deferStart bool) Option {
	return func(c *Config) {
		c.deferStart = deferStart
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Config) {
		c.log = log
	}
}

// WithRecheckInterval bounds how often a blocked Borrow re-checks the pool while waiting
// for an instance.
func WithRecheckInterval(min, max time.Duration) Option {
	return func(c *Config) {
		c.recheckMin = min
		c.recheckMax = max
	}
}
