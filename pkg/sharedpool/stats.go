package sharedpool

type InstanceStats struct {
	Generation uint64 `json:"generation"`
	Borrows    int    `json:"borrows"`
}

type Stats struct {
	Name       string          `json:"name"`
	Started    bool            `json:"started"`
	Stopped    bool            `json:"stopped"`
	DeferStart bool            `json:"defer_start"`
	Current    *InstanceStats  `json:"current,omitempty"`
	Retiring   []InstanceStats `json:"retiring"`
	Restarting int             `json:"restarting"`
	Listeners  int             `json:"listeners"`
}

func (p *SharedPool[T]) Stats() Stats {
	p.mx.Lock()
	defer p.mx.Unlock()

	stats := Stats{
		Name:       p.name,
		Started:    p.current != nil,
		Stopped:    p.stopped,
		DeferStart: p.deferStart,
		Retiring:   make([]InstanceStats, 0, len(p.retiring)),
		Restarting: p.restarting,
		Listeners:  p.listeners.len(),
	}
	if p.current != nil {
		stats.Current = &InstanceStats{
			Generation: p.current.generation,
			Borrows:    p.current.borrows,
		}
	}
	for _, inst := range p.retiring {
		stats.Retiring = append(stats.Retiring, InstanceStats{
			Generation: inst.generation,
			Borrows:    inst.borrows,
		})
	}

	return stats
}
