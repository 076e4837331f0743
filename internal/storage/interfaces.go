package storage

import (
	"context"

	"trend-hunter/internal/domain"
)

// DiscoveryStore provides access to discoveries storage.
type DiscoveryStore interface {
	// Insert adds a new discovery. Returns ErrDuplicateKey if fingerprint exists.
	Insert(ctx context.Context, d *domain.Discovery) error

	// GetByFingerprint retrieves a discovery. Returns ErrNotFound if not exists.
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Discovery, error)

	// GetBySource retrieves all discoveries from a source, ordered by discovered_at ASC.
	GetBySource(ctx context.Context, source string) ([]*domain.Discovery, error)

	// GetByTimeRange retrieves discoveries observed within [start, end] ms (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Discovery, error)
}

// AnalysisStore provides access to token_analyses storage.
type AnalysisStore interface {
	// Insert adds a new analysis. Returns ErrDuplicateKey if (mint, scanned_at) exists.
	Insert(ctx context.Context, a *domain.TokenAnalysis) error

	// GetLatestByMint retrieves the most recent analysis for a mint.
	// Returns ErrNotFound if the mint has never been scanned.
	GetLatestByMint(ctx context.Context, mint string) (*domain.TokenAnalysis, error)

	// GetByMint retrieves all analyses for a mint, ordered by scanned_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TokenAnalysis, error)
}

// SignalHistoryStore provides access to the signal_history table.
type SignalHistoryStore interface {
	// InsertBulk appends a batch of classified signals.
	InsertBulk(ctx context.Context, signals []*domain.Signal) error

	// GetByTimeRange retrieves signals created within [start, end] ms (inclusive),
	// ordered by created_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Signal, error)

	// GetByType retrieves all signals of one source family, ordered by created_at ASC.
	GetByType(ctx context.Context, t domain.SignalType) ([]*domain.Signal, error)
}
