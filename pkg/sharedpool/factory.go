package sharedpool

import "context"

// Factory creates and destroys the instances shared by a pool.
type Factory[T any] interface {
	// Create builds a new instance. name is the pool name.
	Create(ctx context.Context, name string) (T, error)
	// Destroy releases an instance. Errors are logged by the pool, never returned to a
	// releaser.
	Destroy(instance T) error
}

// RestartEvent describes a completed restart.
type RestartEvent struct {
	Pool            string
	Generation      uint64
	Previous        uint64
	PreviousRetired bool
}

// RestartListener is notified every time a pool installs a new instance through Restart.
//
// OnRestart runs while the pool lock is held: it must not call back into the pool.
type RestartListener interface {
	OnRestart(event RestartEvent) error
}

type RestartListenerFunc func(event RestartEvent) error

func (f RestartListenerFunc) OnRestart(event RestartEvent) error {
	return f(event)
}
