// Package sources contains the built-in discovery sources. Each source wraps
// a provider client, fetches its native records in Hunt, and normalizes them
// into discoveries in Transform.
package sources

import (
	"context"
	"fmt"
	"log"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/idhash"
	"trend-hunter/internal/providers/pumpfun"
	"trend-hunter/internal/source"
)

const (
	// LaunchSourceID is the registry id of the pump.fun launch source.
	LaunchSourceID = "pumpfun"

	// DefaultLaunchLimit bounds how many fresh launches one hunt pulls.
	DefaultLaunchLimit = 50
)

// LaunchSource discovers fresh memecoin launches on pump.fun.
type LaunchSource struct {
	client *pumpfun.Client
	limit  int
	logger *log.Logger
}

// LaunchOptions configures LaunchSource.
type LaunchOptions struct {
	Client *pumpfun.Client // required
	Limit  int             // 0 means DefaultLaunchLimit
	Logger *log.Logger
}

// NewLaunchSource creates a pump.fun launch source.
func NewLaunchSource(opts LaunchOptions) *LaunchSource {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLaunchLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &LaunchSource{
		client: opts.Client,
		limit:  limit,
		logger: logger,
	}
}

// Compile-time interface check.
var _ source.Source = (*LaunchSource)(nil)

// ID returns the registry id.
func (s *LaunchSource) ID() string {
	return LaunchSourceID
}

// Hunt fetches the latest launches, newest first.
func (s *LaunchSource) Hunt(ctx context.Context) ([]source.RawRecord, error) {
	coins, err := s.client.NewCoins(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("hunt pumpfun launches: %w", err)
	}

	records := make([]source.RawRecord, len(coins))
	for i := range coins {
		records[i] = &coins[i]
	}
	return records, nil
}

// Transform normalizes one coin into a launch discovery.
func (s *LaunchSource) Transform(raw source.RawRecord) (*domain.Discovery, error) {
	coin, ok := raw.(*pumpfun.Coin)
	if !ok || coin.Mint == "" {
		return nil, source.ErrMalformedRecord
	}

	progress := coin.CurveProgress()

	tags := []string{"launch", "memecoin"}
	if coin.Complete {
		tags = append(tags, "graduated")
	}

	graduated := "false"
	if coin.Complete {
		graduated = "true"
	}

	mcap := coin.USDMarketCap
	if mcap == 0 {
		mcap = coin.MarketCap
	}

	return &domain.Discovery{
		Fingerprint: idhash.ComputeFingerprint(LaunchSourceID, coin.Mint),
		Source:      LaunchSourceID,
		SourceID:    coin.Mint,
		SourceURL:   "https://pump.fun/coin/" + coin.Mint,
		Title:       fmt.Sprintf("New launch: %s (%s)", coin.Name, coin.Symbol),
		Author:      coin.Creator,
		PublishedAt: coin.CreatedTimestamp,
		Metrics: map[string]float64{
			"market_cap":     mcap,
			"curve_progress": progress,
		},
		Category: domain.CategoryLaunch,
		Tags:     tags,
		Relevance: domain.RelevanceFactors{
			MentionsSolana:   true,
			MentionsMemecoin: true,
			HighEngagement:   progress >= 50,
		},
		RawMetadata: map[string]string{
			"mint":      coin.Mint,
			"graduated": graduated,
			"symbol":    coin.Symbol,
			"name":      coin.Name,
		},
	}, nil
}
