package sources

import (
	"context"
	"fmt"
	"log"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/idhash"
	"trend-hunter/internal/providers/feargreed"
	"trend-hunter/internal/source"
)

const (
	// SentimentSourceID is the registry id of the Fear & Greed source.
	SentimentSourceID = "feargreed"

	// Contrarian bands of the index.
	extremeFear  = 25
	extremeGreed = 75
)

// SentimentSource discovers the daily crypto Fear & Greed index reading.
type SentimentSource struct {
	client *feargreed.Client
	logger *log.Logger
}

// SentimentOptions configures SentimentSource.
type SentimentOptions struct {
	Client *feargreed.Client // required
	Logger *log.Logger
}

// NewSentimentSource creates a Fear & Greed source.
func NewSentimentSource(opts SentimentOptions) *SentimentSource {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &SentimentSource{
		client: opts.Client,
		logger: logger,
	}
}

// Compile-time interface check.
var _ source.Source = (*SentimentSource)(nil)

// ID returns the registry id.
func (s *SentimentSource) ID() string {
	return SentimentSourceID
}

// Hunt fetches the latest index reading.
func (s *SentimentSource) Hunt(ctx context.Context) ([]source.RawRecord, error) {
	reading, err := s.client.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("hunt fear & greed: %w", err)
	}
	return []source.RawRecord{reading}, nil
}

// Transform normalizes one index reading into a sentiment discovery.
// The source id is the reading's publication day, so the fingerprint stays
// stable across repeated hunts of the same sample.
func (s *SentimentSource) Transform(raw source.RawRecord) (*domain.Discovery, error) {
	reading, ok := raw.(*feargreed.Reading)
	if !ok || reading.Timestamp == 0 {
		return nil, source.ErrMalformedRecord
	}

	day := time.Unix(reading.Timestamp, 0).UTC().Format("2006-01-02")

	hint := ""
	switch {
	case reading.Value <= extremeFear:
		hint = "ACCUMULATE"
	case reading.Value >= extremeGreed:
		hint = "REDUCE"
	}

	meta := map[string]string{
		"classification": reading.Classification,
	}
	if hint != "" {
		meta["signal"] = hint
	}

	return &domain.Discovery{
		Fingerprint: idhash.ComputeFingerprint(SentimentSourceID, day),
		Source:      SentimentSourceID,
		SourceID:    day,
		Title:       fmt.Sprintf("Fear & Greed Index: %d (%s)", reading.Value, reading.Classification),
		PublishedAt: reading.Timestamp * 1000,
		Metrics: map[string]float64{
			"value": float64(reading.Value),
		},
		Category: domain.CategorySentiment,
		Tags:     []string{"sentiment", "index"},
		Relevance: domain.RelevanceFactors{
			Recent:        true,
			TrustedSource: true,
		},
		RawMetadata: meta,
	}, nil
}
