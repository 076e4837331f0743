package memory

import (
	"context"
	"sort"
	"sync"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/storage"
)

// DiscoveryStore is an in-memory implementation of storage.DiscoveryStore.
type DiscoveryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Discovery // keyed by fingerprint
}

// NewDiscoveryStore creates a new in-memory discovery store.
func NewDiscoveryStore() *DiscoveryStore {
	return &DiscoveryStore{
		data: make(map[string]*domain.Discovery),
	}
}

// Insert adds a new discovery. Returns ErrDuplicateKey if fingerprint exists.
func (s *DiscoveryStore) Insert(_ context.Context, d *domain.Discovery) error {
	if d == nil || d.Fingerprint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.Fingerprint]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[d.Fingerprint] = copyDiscovery(d)
	return nil
}

// GetByFingerprint retrieves a discovery. Returns ErrNotFound if not exists.
func (s *DiscoveryStore) GetByFingerprint(_ context.Context, fingerprint string) (*domain.Discovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[fingerprint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyDiscovery(d), nil
}

// GetBySource retrieves all discoveries from a given source.
func (s *DiscoveryStore) GetBySource(_ context.Context, source string) ([]*domain.Discovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Discovery
	for _, d := range s.data {
		if d.Source == source {
			result = append(result, copyDiscovery(d))
		}
	}

	// Sort by discovered_at ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].DiscoveredAt < result[j].DiscoveredAt
	})

	return result, nil
}

// GetByTimeRange retrieves discoveries observed within [start, end] (inclusive).
func (s *DiscoveryStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Discovery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Discovery
	for _, d := range s.data {
		if d.DiscoveredAt >= start && d.DiscoveredAt <= end {
			result = append(result, copyDiscovery(d))
		}
	}

	// Sort by discovered_at ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].DiscoveredAt < result[j].DiscoveredAt
	})

	return result, nil
}

// copyDiscovery clones a discovery including its maps and tag slice, so callers
// cannot mutate stored state.
func copyDiscovery(d *domain.Discovery) *domain.Discovery {
	c := *d
	if d.Metrics != nil {
		c.Metrics = make(map[string]float64, len(d.Metrics))
		for k, v := range d.Metrics {
			c.Metrics[k] = v
		}
	}
	if d.RawMetadata != nil {
		c.RawMetadata = make(map[string]string, len(d.RawMetadata))
		for k, v := range d.RawMetadata {
			c.RawMetadata[k] = v
		}
	}
	if d.Tags != nil {
		c.Tags = append([]string(nil), d.Tags...)
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.DiscoveryStore = (*DiscoveryStore)(nil)
