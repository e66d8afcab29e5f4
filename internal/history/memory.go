package history

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is the number of runs a MemoryStore keeps.
const DefaultMemoryCapacity = 200

// MemoryStore keeps the most recent runs in process memory. The oldest run
// is evicted once capacity is reached.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	runs     map[string]Run
}

// NewMemoryStore returns a store holding up to capacity runs.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity, runs: make(map[string]Run)}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; !ok {
		m.order = append(m.order, run.ID)
		if len(m.order) > m.capacity {
			delete(m.runs, m.order[0])
			m.order = m.order[1:]
		}
	}
	m.runs[run.ID] = run
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run, nil
}

// List implements Store. Runs are returned newest first and without their
// full result.
func (m *MemoryStore) List(ctx context.Context, f Filter) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := f.limit()
	out := make([]Run, 0, min(limit, len(m.order)))
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		run := m.runs[m.order[i]]
		if f.Kind != "" && run.Kind != f.Kind {
			continue
		}
		run.Result = nil
		out = append(out, run)
	}
	return out, nil
}
