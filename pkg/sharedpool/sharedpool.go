// Package sharedpool lends a single, replaceable instance to concurrent borrowers.
//
// The instance is created by a Factory, either eagerly on Start or lazily on the first
// Borrow. Restart builds a replacement in the background and swaps it in; the outgoing
// instance is destroyed as soon as its last borrower releases it.
package sharedpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jpillora/backoff"
)

type Pool[T comparable] interface {
	Name() string
	Start(ctx context.Context) error
	Borrow(ctx context.Context, requester string, timeout time.Duration) (T, error)
	Release(instance T) error
	Restart() error
	Stop() error
	RegisterRestartListener(l RestartListener)
	Stats() Stats
}

type instance[T comparable] struct {
	value      T
	generation uint64
	borrows    int
}

// creation is an in-flight lazy creation shared by every borrower waiting for it.
type creation struct {
	done chan struct{}
	err  error
}

type SharedPool[T comparable] struct {
	name       string
	deferStart bool
	log        *slog.Logger
	recheckMin time.Duration
	recheckMax time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	tasks     *multierror.Group
	listeners *listenerRegistry

	mx         sync.Mutex
	factory    Factory[T]
	current    *instance[T]
	retiring   []*instance[T]
	tracked    map[T]*instance[T]
	generation uint64
	creating   *creation
	restarting int
	stopped    bool
}

// New returns a pool whose instance is created by factory.
func New[T comparable](factory Factory[T], options ...Option) *SharedPool[T] {
	config := defaultConfig()
	for _, option := range options {
		option(config)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &SharedPool[T]{
		name:       config.name,
		deferStart: config.deferStart,
		log:        config.log,
		recheckMin: config.recheckMin,
		recheckMax: config.recheckMax,
		ctx:        ctx,
		cancel:     cancel,
		tasks:      &multierror.Group{},
		listeners:  &listenerRegistry{},
		factory:    factory,
		tracked:    make(map[T]*instance[T]),
	}
}

// NewWithInstance returns a pool primed with a ready-made instance. factory may be nil, in
// which case the pool can neither restart nor destroy the instance.
func NewWithInstance[T comparable](value T, factory Factory[T], options ...Option) *SharedPool[T] {
	p := New(factory, options...)
	inst, _ := p.track(value)
	p.current = inst

	return p
}

func (p *SharedPool[T]) Name() string {
	return p.name
}

// Start creates the instance unless one already exists or the pool defers creation until
// the first Borrow.
func (p *SharedPool[T]) Start(ctx context.Context) error {
	p.mx.Lock()
	if p.stopped {
		p.mx.Unlock()
		return ErrPoolStopped
	}
	if p.current != nil {
		p.mx.Unlock()
		return nil
	}
	if p.factory == nil {
		p.mx.Unlock()
		return ErrNoFactory
	}
	if p.deferStart {
		p.mx.Unlock()
		p.log.InfoContext(ctx, "Deferring start for runtime pool", "pool", p.name)
		return nil
	}
	c := p.startCreation()
	p.mx.Unlock()

	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Borrow returns the current instance and counts the caller as one of its borrowers. If no
// instance exists yet its creation is triggered and the caller waits for it. A timeout of
// zero waits indefinitely.
func (p *SharedPool[T]) Borrow(ctx context.Context, requester string, timeout time.Duration) (T, error) {
	var zero T

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	b := &backoff.Backoff{
		Factor: 2,
		Jitter: true,
		Min:    p.recheckMin,
		Max:    p.recheckMax,
	}

	for {
		p.mx.Lock()
		if p.stopped {
			p.mx.Unlock()
			return zero, ErrPoolStopped
		}
		if p.current != nil {
			inst := p.current
			inst.borrows++
			borrows := inst.borrows
			p.mx.Unlock()

			p.log.DebugContext(ctx, "Instance borrowed", "pool", p.name, "requester", requester, "generation", inst.generation, "borrows", borrows)
			return inst.value, nil
		}
		if p.factory == nil {
			p.mx.Unlock()
			return zero, ErrNoFactory
		}
		c := p.startCreation()
		p.mx.Unlock()

		recheck := time.NewTimer(b.Duration())
		select {
		case <-c.done:
			recheck.Stop()
			if c.err != nil {
				return zero, c.err
			}
		case <-recheck.C:
		case <-deadline:
			recheck.Stop()
			return zero, fmt.Errorf("borrow from pool %s by %s after %v: %w", p.name, requester, timeout, ErrUnavailable)
		case <-ctx.Done():
			recheck.Stop()
			return zero, ctx.Err()
		}
	}
}

// Release gives back an instance obtained from Borrow. A retiring instance is destroyed
// before Release returns when its last borrower releases it.
func (p *SharedPool[T]) Release(value T) error {
	p.mx.Lock()
	inst, ok := p.tracked[value]
	if !ok {
		p.mx.Unlock()
		return fmt.Errorf("release to pool %s: %w", p.name, ErrUnknownInstance)
	}
	if inst.borrows == 0 {
		p.mx.Unlock()
		return fmt.Errorf("release generation %d to pool %s: %w", inst.generation, p.name, ErrOverRelease)
	}
	inst.borrows--
	retire := inst.borrows == 0 && inst != p.current
	if retire {
		delete(p.tracked, value)
		p.retiring = removeInstance(p.retiring, inst)
	}
	factory := p.factory
	p.mx.Unlock()

	if retire {
		p.log.Debug("Retiring instance after last release", "pool", p.name, "generation", inst.generation)
		_ = p.destroy(factory, inst)
	}

	return nil
}

// Restart replaces the current instance in the background. New borrowers get the
// replacement once it is installed; the outgoing instance is destroyed when its last
// borrower releases it. A failed creation leaves the current instance in place.
func (p *SharedPool[T]) Restart() error {
	p.mx.Lock()
	defer p.mx.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if p.current == nil {
		p.log.Debug("Pool not started, ignoring restart", "pool", p.name)
		return nil
	}
	if p.factory == nil {
		return ErrNoFactory
	}

	factory := p.factory
	p.restarting++
	p.tasks.Go(func() error {
		p.restart(factory)
		return nil
	})

	return nil
}

func (p *SharedPool[T]) restart(factory Factory[T]) {
	value, err := factory.Create(p.ctx, p.name)

	p.mx.Lock()
	p.restarting--
	if err != nil {
		p.mx.Unlock()
		p.log.Error("Error restarting runtime, keeping current instance", "pool", p.name, "err", err)
		return
	}
	if p.stopped {
		p.mx.Unlock()
		p.log.Warn("Pool stopped during restart, discarding new instance", "pool", p.name)
		_ = p.destroy(factory, &instance[T]{value: value})
		return
	}
	next, err := p.track(value)
	if err != nil {
		p.mx.Unlock()
		p.log.Error("Error restarting runtime", "pool", p.name, "err", err)
		return
	}

	prev, doomed := p.swap(next)
	event := RestartEvent{Pool: p.name, Generation: next.generation}
	if prev != nil {
		event.Previous = prev.generation
		event.PreviousRetired = !doomed
	}
	p.listeners.notify(event, p.log)
	p.mx.Unlock()

	p.log.Info("Runtime pool restarted", "pool", p.name, "generation", event.Generation, "previous", event.Previous, "retired", event.PreviousRetired)

	if doomed {
		_ = p.destroy(factory, prev)
	}
}

// RegisterRestartListener adds a listener notified after every completed restart.
// Registering the same listener twice notifies it twice.
func (p *SharedPool[T]) RegisterRestartListener(l RestartListener) {
	p.listeners.register(l)
}

// Stop destroys the current instance and every retiring one, whether or not they are still
// borrowed, and waits for background work to finish.
func (p *SharedPool[T]) Stop() error {
	p.mx.Lock()
	if p.stopped {
		p.mx.Unlock()
		return nil
	}
	p.stopped = true
	p.cancel()

	factory := p.factory
	var doomed []*instance[T]
	if p.current != nil {
		doomed = append(doomed, p.current)
	}
	doomed = append(doomed, p.retiring...)

	p.current = nil
	p.retiring = nil
	p.tracked = make(map[T]*instance[T])
	p.factory = nil
	p.mx.Unlock()

	var merr *multierror.Error
	for _, inst := range doomed {
		if inst.borrows > 0 {
			p.log.Warn("Destroying instance with outstanding borrows", "pool", p.name, "generation", inst.generation, "borrows", inst.borrows)
		}
		if err := p.destroy(factory, inst); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	p.tasks.Wait()

	return merr.ErrorOrNil()
}

// Wait blocks until in-flight creations and restarts have finished.
func (p *SharedPool[T]) Wait() {
	_ = p.tasks.Wait()
}

// startCreation launches the lazy creation of the first instance, or joins the one already
// in flight. Must be called with p.mx held.
func (p *SharedPool[T]) startCreation() *creation {
	if p.creating != nil {
		return p.creating
	}

	c := &creation{done: make(chan struct{})}
	p.creating = c
	factory := p.factory

	p.tasks.Go(func() error {
		value, err := factory.Create(p.ctx, p.name)

		var discard *instance[T]
		p.mx.Lock()
		p.creating = nil
		switch {
		case err != nil:
			c.err = fmt.Errorf("create instance for pool %s: %w", p.name, err)
		case p.stopped:
			c.err = ErrPoolStopped
			discard = &instance[T]{value: value}
		default:
			inst, terr := p.track(value)
			if terr != nil {
				c.err = terr
				break
			}
			if prev, doomed := p.swap(inst); doomed {
				discard = prev
			}
		}
		p.mx.Unlock()
		close(c.done)

		if c.err == nil {
			p.log.Info("Runtime pool started", "pool", p.name)
		}
		if discard != nil {
			_ = p.destroy(factory, discard)
		}

		return nil
	})

	return c
}

// track assigns the next generation to value. Must be called with p.mx held.
func (p *SharedPool[T]) track(value T) (*instance[T], error) {
	if _, ok := p.tracked[value]; ok {
		return nil, fmt.Errorf("factory for pool %s returned an instance that is still in use", p.name)
	}

	p.generation++
	inst := &instance[T]{value: value, generation: p.generation}
	p.tracked[value] = inst

	return inst, nil
}

// swap installs next as current. The outgoing instance is retired when it still has
// borrowers; otherwise it is untracked and returned with doomed set, and the caller must
// destroy it. Must be called with p.mx held.
func (p *SharedPool[T]) swap(next *instance[T]) (prev *instance[T], doomed bool) {
	prev = p.current
	p.current = next
	if prev == nil {
		return nil, false
	}

	if prev.borrows == 0 {
		delete(p.tracked, prev.value)
		return prev, true
	}

	p.retiring = append(p.retiring, prev)
	return prev, false
}

func (p *SharedPool[T]) destroy(factory Factory[T], inst *instance[T]) error {
	if factory == nil {
		return nil
	}

	if err := factory.Destroy(inst.value); err != nil {
		p.log.Error("Failed to destroy instance", "pool", p.name, "generation", inst.generation, "err", err)
		return fmt.Errorf("destroy generation %d of pool %s: %w", inst.generation, p.name, err)
	}

	return nil
}

func removeInstance[T comparable](instances []*instance[T], target *instance[T]) []*instance[T] {
	for i, inst := range instances {
		if inst == target {
			return append(instances[:i], instances[i+1:]...)
		}
	}

	return instances
}
