package sharedpool

import "errors"

var (
	// ErrNoFactory is returned when the pool has neither an instance nor a factory able to
	// create one.
	ErrNoFactory = errors.New("neither an instance nor an instance factory provided")
	// ErrUnavailable is returned by Borrow when the timeout elapses before an instance
	// exists. Callers may retry.
	ErrUnavailable = errors.New("no instance available")
	// ErrUnknownInstance is returned by Release for an instance the pool does not track.
	ErrUnknownInstance = errors.New("instance is not tracked by the pool")
	// ErrOverRelease is returned by Release when the instance has no outstanding borrows.
	ErrOverRelease = errors.New("instance released more times than borrowed")
	ErrPoolStopped = errors.New("the pool is stopped")
)

func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
