package sharedpool

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/exp/slices"
)

type listenerRegistry struct {
	mx        sync.RWMutex
	listeners []RestartListener
}

func (r *listenerRegistry) register(l RestartListener) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.listeners = append(r.listeners, l)
}

func (r *listenerRegistry) len() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.listeners)
}

// notify calls every listener in registration order. A failing listener does not stop the
// others.
func (r *listenerRegistry) notify(event RestartEvent, log *slog.Logger) {
	r.mx.RLock()
	listeners := slices.Clone(r.listeners)
	r.mx.RUnlock()

	for i, l := range listeners {
		if err := callListener(l, event); err != nil {
			log.Error("Restart listener failed", "pool", event.Pool, "listener", i, "err", err)
		}
	}
}

func callListener(l RestartListener, event RestartEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()

	return l.OnRestart(event)
}
