// Package stub provides fixed in-memory evidence providers for testing.
package stub

import (
	"context"
	"errors"

	"trend-hunter/internal/domain"
)

// ErrUnavailable simulates a provider transport failure.
var ErrUnavailable = errors.New("stub provider unavailable")

// SafetyProvider returns fixed safety reports keyed by mint.
// Implements providers.SafetyProvider.
type SafetyProvider struct {
	reports map[string]*domain.SafetyReport
}

// NewSafetyProvider creates a stub safety provider.
func NewSafetyProvider(reports map[string]*domain.SafetyReport) *SafetyProvider {
	return &SafetyProvider{reports: reports}
}

// TokenReport returns the fixed report for a mint, or ErrUnavailable.
func (p *SafetyProvider) TokenReport(_ context.Context, mint string) (*domain.SafetyReport, error) {
	rep, exists := p.reports[mint]
	if !exists {
		return nil, ErrUnavailable
	}
	cp := *rep
	return &cp, nil
}

// LaunchProvider returns fixed launch info keyed by mint.
// Implements providers.LaunchProvider.
type LaunchProvider struct {
	infos map[string]*domain.LaunchInfo
}

// NewLaunchProvider creates a stub launch provider.
func NewLaunchProvider(infos map[string]*domain.LaunchInfo) *LaunchProvider {
	return &LaunchProvider{infos: infos}
}

// LaunchInfo returns the fixed info for a mint, or ErrUnavailable.
func (p *LaunchProvider) LaunchInfo(_ context.Context, mint string) (*domain.LaunchInfo, error) {
	info, exists := p.infos[mint]
	if !exists {
		return nil, ErrUnavailable
	}
	cp := *info
	return &cp, nil
}

// OnChainProvider returns fixed holder stats keyed by mint.
// Implements providers.OnChainProvider.
type OnChainProvider struct {
	stats map[string]*domain.OnChainStats
}

// NewOnChainProvider creates a stub on-chain provider.
func NewOnChainProvider(stats map[string]*domain.OnChainStats) *OnChainProvider {
	return &OnChainProvider{stats: stats}
}

// HolderStats returns the fixed stats for a mint, or ErrUnavailable.
func (p *OnChainProvider) HolderStats(_ context.Context, mint string) (*domain.OnChainStats, error) {
	s, exists := p.stats[mint]
	if !exists {
		return nil, ErrUnavailable
	}
	cp := *s
	return &cp, nil
}

// MarketProvider returns fixed quotes keyed by ticker symbol.
// Implements providers.MarketProvider.
type MarketProvider struct {
	quotes map[string]*domain.MarketQuote
}

// NewMarketProvider creates a stub market provider.
func NewMarketProvider(quotes map[string]*domain.MarketQuote) *MarketProvider {
	return &MarketProvider{quotes: quotes}
}

// Quote returns the fixed quote for a symbol, or ErrUnavailable.
func (p *MarketProvider) Quote(_ context.Context, symbol string) (*domain.MarketQuote, error) {
	q, exists := p.quotes[symbol]
	if !exists {
		return nil, ErrUnavailable
	}
	cp := *q
	return &cp, nil
}
