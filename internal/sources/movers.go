package sources

import (
	"context"
	"fmt"
	"log"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/idhash"
	"trend-hunter/internal/providers/market"
	"trend-hunter/internal/source"
)

const (
	// MoversSourceID is the registry id of the market movers source.
	MoversSourceID = "movers"

	// DefaultMoversLimit is how many gainers and losers each hunt keeps.
	DefaultMoversLimit = 10
)

// moverRecord tags a mover with its ranking direction.
type moverRecord struct {
	mover market.Mover
	side  string // "gainer" or "loser"
}

// MoversSource discovers the biggest 24h gainers and losers from the market
// data feed.
type MoversSource struct {
	client *market.Client
	limit  int
	logger *log.Logger
}

// MoversOptions configures MoversSource.
type MoversOptions struct {
	Client *market.Client // required
	Limit  int            // 0 means DefaultMoversLimit
	Logger *log.Logger
}

// NewMoversSource creates a market movers source.
func NewMoversSource(opts MoversOptions) *MoversSource {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultMoversLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &MoversSource{
		client: opts.Client,
		limit:  limit,
		logger: logger,
	}
}

// Compile-time interface check.
var _ source.Source = (*MoversSource)(nil)

// ID returns the registry id.
func (s *MoversSource) ID() string {
	return MoversSourceID
}

// Hunt fetches the ranked gainers and losers.
func (s *MoversSource) Hunt(ctx context.Context) ([]source.RawRecord, error) {
	gainers, losers, err := s.client.TopMovers(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("hunt market movers: %w", err)
	}

	records := make([]source.RawRecord, 0, len(gainers)+len(losers))
	for _, m := range gainers {
		records = append(records, &moverRecord{mover: m, side: "gainer"})
	}
	for _, m := range losers {
		records = append(records, &moverRecord{mover: m, side: "loser"})
	}
	return records, nil
}

// Transform normalizes one mover into a market discovery. The source id keys
// on symbol and direction, so a coin that keeps ranking re-fingerprints only
// after the dedup TTL lapses.
func (s *MoversSource) Transform(raw source.RawRecord) (*domain.Discovery, error) {
	rec, ok := raw.(*moverRecord)
	if !ok || rec.mover.Symbol == "" {
		return nil, source.ErrMalformedRecord
	}

	m := rec.mover
	sourceID := m.Symbol + ":" + rec.side

	verb := "up"
	if rec.side == "loser" {
		verb = "down"
	}

	return &domain.Discovery{
		Fingerprint: idhash.ComputeFingerprint(MoversSourceID, sourceID),
		Source:      MoversSourceID,
		SourceID:    sourceID,
		Title:       fmt.Sprintf("%s (%s) %s %.1f%% in 24h", m.Name, m.Symbol, verb, m.Change24h),
		Metrics: map[string]float64{
			"change_24h": m.Change24h,
			"price":      m.Price,
			"market_cap": m.MarketCap,
			"volume_24h": m.Volume24h,
		},
		Category: domain.CategoryMarket,
		Tags:     []string{"mover", rec.side},
		Relevance: domain.RelevanceFactors{
			Recent:         true,
			HighEngagement: m.Change24h >= 30 || m.Change24h <= -30,
			TrustedSource:  true,
		},
		RawMetadata: map[string]string{
			"symbol": m.Symbol,
			"side":   rec.side,
		},
	}, nil
}
