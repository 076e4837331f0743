package sources

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/idhash"
	"trend-hunter/internal/providers/rugcheck"
	"trend-hunter/internal/resilience"
	"trend-hunter/internal/source"
)

const (
	// TrendingSourceID is the registry id of the RugCheck trending source.
	TrendingSourceID = "rugcheck"

	// DefaultTrendingLimit bounds how many trending tokens are enriched
	// with a safety report per hunt.
	DefaultTrendingLimit = 20

	// highVoteCount marks a trending entry as high engagement.
	highVoteCount = 20
)

// trendingRecord pairs a trending entry with its safety report.
type trendingRecord struct {
	token  rugcheck.TrendingToken
	report *domain.SafetyReport
}

// TrendingSource discovers tokens trending on the RugCheck scanner, enriched
// with their safety reports. The report endpoint sits behind a circuit
// breaker so a dead scanner does not eat a report call per trending token
// every hunt.
type TrendingSource struct {
	client  *rugcheck.Client
	limit   int
	breaker *resilience.Breaker
	logger  *log.Logger
}

// TrendingOptions configures TrendingSource.
type TrendingOptions struct {
	Client *rugcheck.Client // required
	Limit  int              // 0 means DefaultTrendingLimit
	Logger *log.Logger
}

// NewTrendingSource creates a RugCheck trending source.
func NewTrendingSource(opts TrendingOptions) *TrendingSource {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &TrendingSource{
		client:  opts.Client,
		limit:   limit,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{}),
		logger:  logger,
	}
}

// Compile-time interface check.
var _ source.Source = (*TrendingSource)(nil)

// ID returns the registry id.
func (s *TrendingSource) ID() string {
	return TrendingSourceID
}

// Hunt fetches the trending list and a safety report per token. A token whose
// report fetch fails is skipped; the rest of the batch survives.
func (s *TrendingSource) Hunt(ctx context.Context) ([]source.RawRecord, error) {
	tokens, err := s.client.Trending(ctx)
	if err != nil {
		return nil, fmt.Errorf("hunt rugcheck trending: %w", err)
	}
	if len(tokens) > s.limit {
		tokens = tokens[:s.limit]
	}

	var records []source.RawRecord
	for _, t := range tokens {
		var report *domain.SafetyReport
		err := s.breaker.Execute(func() error {
			var reportErr error
			report, reportErr = s.client.TokenReport(ctx, t.Mint)
			return reportErr
		})
		if err != nil {
			s.logger.Printf("[rugcheck] skip %s: report fetch failed: %v", t.Mint, err)
			continue
		}
		records = append(records, &trendingRecord{token: t, report: report})
	}
	return records, nil
}

// Transform normalizes one trending token into a safety discovery.
func (s *TrendingSource) Transform(raw source.RawRecord) (*domain.Discovery, error) {
	rec, ok := raw.(*trendingRecord)
	if !ok || rec.token.Mint == "" || rec.report == nil {
		return nil, source.ErrMalformedRecord
	}

	tags := []string{"trending", rugcheck.SafetyLabel(rec.report)}

	rugged := "false"
	if rec.report.Rugged {
		rugged = "true"
	}

	return &domain.Discovery{
		Fingerprint: idhash.ComputeFingerprint(TrendingSourceID, rec.token.Mint),
		Source:      TrendingSourceID,
		SourceID:    rec.token.Mint,
		SourceURL:   "https://rugcheck.xyz/tokens/" + rec.token.Mint,
		Title:       fmt.Sprintf("Trending token %s (safety %.0f)", rec.token.Mint, rec.report.Score),
		Metrics: map[string]float64{
			"safety_score": rec.report.Score,
			"votes_up":     float64(rec.token.VoteUp),
			"votes_down":   float64(rec.token.VoteDown),
		},
		Category: domain.CategorySafety,
		Tags:     tags,
		Relevance: domain.RelevanceFactors{
			MentionsSolana: true,
			HighEngagement: rec.token.VoteUp >= highVoteCount,
			TrustedSource:  true,
		},
		RawMetadata: map[string]string{
			"mint":   rec.token.Mint,
			"rugged": rugged,
			"label":  rugcheck.SafetyLabel(rec.report),
			"votes":  strconv.Itoa(rec.token.VoteUp),
		},
	}, nil
}
