package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/storage"
)

// AnalysisStore is an in-memory implementation of storage.AnalysisStore.
type AnalysisStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TokenAnalysis // keyed by mint|scanned_at
}

// NewAnalysisStore creates a new in-memory analysis store.
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		data: make(map[string]*domain.TokenAnalysis),
	}
}

func analysisKey(mint string, scannedAt int64) string {
	return fmt.Sprintf("%s|%d", mint, scannedAt)
}

// Insert adds a new analysis. Returns ErrDuplicateKey if (mint, scanned_at) exists.
func (s *AnalysisStore) Insert(_ context.Context, a *domain.TokenAnalysis) error {
	if a == nil || a.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := analysisKey(a.Mint, a.ScannedAt)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = copyAnalysis(a)
	return nil
}

// GetLatestByMint retrieves the most recent analysis for a mint.
// Returns ErrNotFound if the mint has never been scanned.
func (s *AnalysisStore) GetLatestByMint(_ context.Context, mint string) (*domain.TokenAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.TokenAnalysis
	for _, a := range s.data {
		if a.Mint != mint {
			continue
		}
		if latest == nil || a.ScannedAt > latest.ScannedAt {
			latest = a
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	return copyAnalysis(latest), nil
}

// GetByMint retrieves all analyses for a mint, ordered by scanned_at ASC.
func (s *AnalysisStore) GetByMint(_ context.Context, mint string) ([]*domain.TokenAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenAnalysis
	for _, a := range s.data {
		if a.Mint == mint {
			result = append(result, copyAnalysis(a))
		}
	}

	// Sort by scanned_at ASC
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScannedAt < result[j].ScannedAt
	})

	return result, nil
}

// copyAnalysis clones an analysis including its risk slice and evidence bundle.
func copyAnalysis(a *domain.TokenAnalysis) *domain.TokenAnalysis {
	c := *a
	if a.Risks != nil {
		c.Risks = append([]string(nil), a.Risks...)
	}
	if a.Evidence.Safety != nil {
		safetyCopy := *a.Evidence.Safety
		safetyCopy.Risks = append([]string(nil), a.Evidence.Safety.Risks...)
		c.Evidence.Safety = &safetyCopy
	}
	if a.Evidence.Launch != nil {
		launchCopy := *a.Evidence.Launch
		c.Evidence.Launch = &launchCopy
	}
	if a.Evidence.OnChain != nil {
		onChainCopy := *a.Evidence.OnChain
		c.Evidence.OnChain = &onChainCopy
	}
	if a.Evidence.Market != nil {
		marketCopy := *a.Evidence.Market
		c.Evidence.Market = &marketCopy
	}
	return &c
}

// Verify interface compliance at compile time.
var _ storage.AnalysisStore = (*AnalysisStore)(nil)
