// Package providers defines the four independent evidence providers the
// scoring engine draws on. Each provider returns an optional sub-record;
// a nil result with an error is treated as missing evidence, never as a
// scan failure.
package providers

import (
	"context"

	"trend-hunter/internal/domain"
)

// SafetyProvider returns the safety-scanner report for a mint.
type SafetyProvider interface {
	TokenReport(ctx context.Context, mint string) (*domain.SafetyReport, error)
}

// LaunchProvider returns launch-platform metadata for a mint.
type LaunchProvider interface {
	LaunchInfo(ctx context.Context, mint string) (*domain.LaunchInfo, error)
}

// OnChainProvider returns holder analytics for a mint.
type OnChainProvider interface {
	HolderStats(ctx context.Context, mint string) (*domain.OnChainStats, error)
}

// MarketProvider returns the current market quote for a ticker symbol.
type MarketProvider interface {
	Quote(ctx context.Context, symbol string) (*domain.MarketQuote, error)
}
