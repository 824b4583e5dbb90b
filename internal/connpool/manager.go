package connpool

import (
	"sync"

	"github.com/hydrogen-project/hydrogen/internal/engine"
)

// Manager is the designator-keyed pool registry (C4), mirroring the
// teacher's pool.Manager (GetOrCreate/Remove/AllStats) but keyed by the
// DQM's per-database "designator" identifier instead of a tenant ID.
type Manager struct {
	mu    sync.RWMutex
	pools map[string]*Pool
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{pools: make(map[string]*Pool)}
}

// Init registers a pool for designator idempotently: a second Init with
// the same designator is a no-op and returns the existing pool, per
// spec.md §8 property 4 ("Init is idempotent per designator").
func (m *Manager) Init(designator string, kind engine.Kind, adapter engine.Adapter, cfg engine.Config, opts Options) *Pool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pools[designator]; ok {
		return p
	}
	p := NewPool(designator, kind, adapter, cfg, opts)
	m.pools[designator] = p
	return p
}

// Get returns the pool for designator, if initialized.
func (m *Manager) Get(designator string) (*Pool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[designator]
	return p, ok
}

// Remove closes and deregisters the pool for designator.
func (m *Manager) Remove(designator string) {
	m.mu.Lock()
	p, ok := m.pools[designator]
	if ok {
		delete(m.pools, designator)
	}
	m.mu.Unlock()
	if ok {
		p.Close()
	}
}

// AllStats snapshots every managed pool's Stats.
func (m *Manager) AllStats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Stats, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p.Stats())
	}
	return out
}

// CloseAll closes every managed pool, e.g. during process shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.pools = make(map[string]*Pool)
	m.mu.Unlock()
	for _, p := range pools {
		p.Close()
	}
}

// global is the process-wide singleton GlobalManager referenced by
// spec.md §4.4 ("a single GlobalManager instance, created once at
// process startup").
var global = NewManager()

// Global returns the process-wide Manager singleton.
func Global() *Manager { return global }
