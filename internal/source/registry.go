package source

import (
	"sort"
	"sync"
	"time"
)

// Entry holds one registered source, its hunt cadence, and the mutex that
// serializes invocations of that source. Scheduled runs and on-demand runs
// both lock it, so no two Hunt calls for the same instance ever overlap.
type Entry struct {
	Source  Source
	Cadence time.Duration

	// InFlight serializes Hunt calls against the same rate-limited upstream.
	InFlight sync.Mutex
}

// Registry is an indexed collection of sources keyed by source id.
// It is owned by the aggregator and never exposed for external mutation.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Register adds a source under its own id. A non-positive cadence falls back
// to DefaultCadence. Returns ErrDuplicateSource if the id is taken.
func (r *Registry) Register(src Source, cadence time.Duration) error {
	if cadence <= 0 {
		cadence = DefaultCadence
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := src.ID()
	if _, exists := r.entries[id]; exists {
		return ErrDuplicateSource
	}
	r.entries[id] = &Entry{Source: src, Cadence: cadence}
	return nil
}

// Unregister removes a source. Returns ErrUnknownSource if the id is absent.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; !exists {
		return ErrUnknownSource
	}
	delete(r.entries, id)
	return nil
}

// Get returns the entry for a source id.
func (r *Registry) Get(id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[id]
	if !exists {
		return nil, ErrUnknownSource
	}
	return e, nil
}

// IDs returns all registered source ids in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
