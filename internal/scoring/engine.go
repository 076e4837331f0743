// Package scoring combines evidence from independent providers about one
// token into a weighted 0-100 score and a discrete recommendation.
package scoring

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"trend-hunter/internal/domain"
	"trend-hunter/internal/providers"
	"trend-hunter/internal/solana"
)

// Scoring constants.
const (
	// extremeMovePct is the 24h change magnitude past which additional
	// movement contributes with a strongly diminished slope, so one input
	// cannot dominate the composite.
	extremeMovePct = 50.0

	// highConcentrationPct is the single-holder percentage above which a
	// proportional safety penalty applies.
	highConcentrationPct = 30.0

	// DefaultBatchConcurrency bounds ScanBatch parallelism.
	DefaultBatchConcurrency = 4
)

// Engine scores tokens from evidence bundles.
type Engine struct {
	weights    Weights
	thresholds Thresholds

	safety  providers.SafetyProvider
	launch  providers.LaunchProvider
	onchain providers.OnChainProvider
	market  providers.MarketProvider

	batchConcurrency int
	logger           *log.Logger
	now              func() time.Time
}

// Options contains configuration for creating an Engine.
// Zero-value Weights and Thresholds fall back to the defaults.
// Providers are individually optional; a missing provider means that
// evidence category is always absent.
type Options struct {
	Weights    Weights
	Thresholds Thresholds

	Safety  providers.SafetyProvider
	Launch  providers.LaunchProvider
	OnChain providers.OnChainProvider
	Market  providers.MarketProvider

	BatchConcurrency int
	Logger           *log.Logger
	Now              func() time.Time
}

// New creates a scoring engine. Weight or threshold misconfiguration is a
// fatal construction error, never silently corrected.
func New(opts Options) (*Engine, error) {
	weights := opts.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	thresholds := opts.Thresholds
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	batchConcurrency := opts.BatchConcurrency
	if batchConcurrency <= 0 {
		batchConcurrency = DefaultBatchConcurrency
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		weights:          weights,
		thresholds:       thresholds,
		safety:           opts.Safety,
		launch:           opts.Launch,
		onchain:          opts.OnChain,
		market:           opts.Market,
		batchConcurrency: batchConcurrency,
		logger:           logger,
		now:              now,
	}, nil
}

// Target names one token to scan. Symbol is optional; when present the
// market quote resolves through it directly instead of waiting on launch
// metadata to name the token.
type Target struct {
	Mint   string
	Symbol string
}

// ScanToken gathers evidence for one mint and scores it. Provider failures
// degrade to missing evidence; only an invalid mint surfaces as an error.
func (e *Engine) ScanToken(ctx context.Context, mint string) (*domain.TokenAnalysis, error) {
	return e.scanTarget(ctx, Target{Mint: mint})
}

func (e *Engine) scanTarget(ctx context.Context, t Target) (*domain.TokenAnalysis, error) {
	if err := solana.ValidateAddress(t.Mint); err != nil {
		return nil, fmt.Errorf("scan token: %w", err)
	}
	mint := t.Mint

	ev := e.gatherEvidence(ctx, t)

	scores, rec, risks, confidence := e.Score(ev)

	analysis := &domain.TokenAnalysis{
		Mint:           mint,
		Scores:         scores,
		Risks:          risks,
		Recommendation: rec,
		Confidence:     confidence,
		Evidence:       ev,
		ScannedAt:      e.now().UnixMilli(),
	}
	if ev.Launch != nil {
		analysis.Symbol = ev.Launch.Symbol
		analysis.Name = ev.Launch.Name
	}
	return analysis, nil
}

// ScanBatch scores multiple mints with bounded concurrency, preserving input
// order in the result. Any invalid mint fails the whole call up front;
// provider failures during the scan degrade per-token as in ScanToken.
func (e *Engine) ScanBatch(ctx context.Context, mints []string) ([]*domain.TokenAnalysis, error) {
	targets := make([]Target, len(mints))
	for i, mint := range mints {
		targets[i] = Target{Mint: mint}
	}
	return e.ScanTargets(ctx, targets)
}

// ScanTargets is ScanBatch with per-token symbol hints for the market quote.
func (e *Engine) ScanTargets(ctx context.Context, targets []Target) ([]*domain.TokenAnalysis, error) {
	for _, t := range targets {
		if err := solana.ValidateAddress(t.Mint); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
	}

	results := make([]*domain.TokenAnalysis, len(targets))
	sem := make(chan struct{}, e.batchConcurrency)
	var wg sync.WaitGroup

	for i, t := range targets {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			analysis, err := e.scanTarget(ctx, t)
			if err != nil {
				// Mints were validated up front; this only fires on
				// context cancellation.
				e.logger.Printf("scan %s: %v", t.Mint, err)
				return
			}
			results[i] = analysis
		}(i, t)
	}
	wg.Wait()

	out := make([]*domain.TokenAnalysis, 0, len(results))
	for _, a := range results {
		if a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// gatherEvidence queries the providers. Safety, launch, and on-chain run
// concurrently; the market leg runs after them because the quote API is
// symbol-keyed and launch metadata may be what names the token. Each failure
// is logged and leaves that category absent.
func (e *Engine) gatherEvidence(ctx context.Context, t Target) domain.Evidence {
	mint := t.Mint

	var ev domain.Evidence
	var wg sync.WaitGroup

	if e.safety != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep, err := e.safety.TokenReport(ctx, mint)
			if err != nil {
				e.logger.Printf("safety evidence for %s unavailable: %v", mint, err)
				return
			}
			ev.Safety = rep
		}()
	}
	if e.launch != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := e.launch.LaunchInfo(ctx, mint)
			if err != nil {
				e.logger.Printf("launch evidence for %s unavailable: %v", mint, err)
				return
			}
			ev.Launch = info
		}()
	}
	if e.onchain != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats, err := e.onchain.HolderStats(ctx, mint)
			if err != nil {
				e.logger.Printf("on-chain evidence for %s unavailable: %v", mint, err)
				return
			}
			ev.OnChain = stats
		}()
	}
	wg.Wait()

	if e.market != nil {
		symbol := t.Symbol
		if symbol == "" && ev.Launch != nil {
			symbol = ev.Launch.Symbol
		}
		if symbol == "" {
			e.logger.Printf("market evidence for %s unavailable: no symbol to quote", mint)
		} else if quote, err := e.market.Quote(ctx, symbol); err != nil {
			e.logger.Printf("market evidence for %s unavailable: %v", mint, err)
		} else {
			ev.Market = quote
		}
	}
	return ev
}

// Score is the pure scoring pipeline: evidence in, scores/recommendation/
// risks/confidence out. It never fails; missing categories resolve to the
// documented defaults.
func (e *Engine) Score(ev domain.Evidence) (domain.Scores, domain.Recommendation, []string, float64) {
	var risks []string

	safety, safetyRisks := scoreSafety(ev.Safety)
	risks = append(risks, safetyRisks...)

	fundamentals, fundRisks := scoreFundamentals(ev.Launch, ev.Market)
	risks = append(risks, fundRisks...)

	momentum := scoreMomentum(ev.Market)

	onchain, onchainRisks := scoreOnChain(ev.OnChain)
	risks = append(risks, onchainRisks...)

	sentiment := scoreSentiment(ev.Launch)

	scores := domain.Scores{
		Safety:       clamp(safety),
		Fundamentals: clamp(fundamentals),
		Momentum:     clamp(momentum),
		OnChain:      clamp(onchain),
		Sentiment:    clamp(sentiment),
	}
	scores.Overall = clamp(e.weights.Safety*scores.Safety +
		e.weights.Fundamentals*scores.Fundamentals +
		e.weights.Momentum*scores.Momentum +
		e.weights.OnChain*scores.OnChain +
		e.weights.Sentiment*scores.Sentiment)

	rec := e.recommend(scores.Overall, ev)
	confidence := ev.Completeness()

	return scores, rec, risks, confidence
}

// recommend maps the overall score to a recommendation band, then applies
// the hard-safety override. The override runs after the composite so the
// numeric score stays reported for diagnostics.
func (e *Engine) recommend(overall float64, ev domain.Evidence) domain.Recommendation {
	rec := domain.RecAvoid
	switch {
	case overall >= e.thresholds.StrongBuy:
		rec = domain.RecStrongBuy
	case overall >= e.thresholds.Buy:
		rec = domain.RecBuy
	case overall >= e.thresholds.Hold:
		rec = domain.RecHold
	case overall >= e.thresholds.Sell:
		rec = domain.RecSell
	}

	if ev.Safety != nil && ev.Safety.Rugged {
		return domain.RecAvoid
	}
	return rec
}

// scoreSafety starts from the scanner's normalized score and applies fixed
// penalties per confirmed risk flag plus a proportional concentration
// penalty. Missing report resolves to the neutral default.
func scoreSafety(rep *domain.SafetyReport) (float64, []string) {
	if rep == nil {
		return defaultSafetyScore, nil
	}

	score := rep.Score
	var risks []string

	if rep.Rugged {
		risks = append(risks, "token flagged as rugged")
	}
	if rep.MintAuthority {
		score -= 20
		risks = append(risks, "mint authority still enabled")
	}
	if rep.FreezeAuthority {
		score -= 20
		risks = append(risks, "freeze authority still enabled")
	}
	if rep.LPLockedPct < 50 {
		score -= 15
		risks = append(risks, fmt.Sprintf("only %.0f%% of LP locked", rep.LPLockedPct))
	}
	if rep.TopHolderPct > highConcentrationPct {
		score -= (rep.TopHolderPct - highConcentrationPct) * 0.5
		risks = append(risks, fmt.Sprintf("top holder owns %.1f%% of supply", rep.TopHolderPct))
	}
	risks = append(risks, rep.Risks...)

	return score, risks
}

// scoreFundamentals blends market-cap, liquidity, and volume tiers.
// Each tier contributes monotonically; a token with no market data at all
// gets the minimum non-zero default.
func scoreFundamentals(launch *domain.LaunchInfo, market *domain.MarketQuote) (float64, []string) {
	if launch == nil && market == nil {
		return defaultFundamentalsScore, nil
	}

	var tiers []float64
	var risks []string

	marketCap := 0.0
	if market != nil && market.MarketCap > 0 {
		marketCap = market.MarketCap
	} else if launch != nil {
		marketCap = launch.USDMarketCap
	}
	if marketCap > 0 {
		tiers = append(tiers, tierScore(marketCap, []tier{
			{10_000_000, 90}, {1_000_000, 75}, {250_000, 60}, {50_000, 45},
		}, 30))
	}

	if launch != nil && launch.LiquidityUSD > 0 {
		tiers = append(tiers, tierScore(launch.LiquidityUSD, []tier{
			{500_000, 90}, {100_000, 75}, {25_000, 55},
		}, 35))
		if launch.LiquidityUSD < 10_000 {
			risks = append(risks, fmt.Sprintf("thin liquidity ($%.0f)", launch.LiquidityUSD))
		}
	}

	if market != nil && market.Volume24h > 0 {
		tiers = append(tiers, tierScore(market.Volume24h, []tier{
			{5_000_000, 90}, {1_000_000, 75}, {100_000, 60}, {10_000, 45},
		}, 30))
	}

	if len(tiers) == 0 {
		return defaultFundamentalsScore, risks
	}

	sum := 0.0
	for _, t := range tiers {
		sum += t
	}
	return sum / float64(len(tiers)), risks
}

// scoreMomentum maps the 24h change to a score around the flat default.
// Moves past extremeMovePct contribute at a tenth of the normal slope.
func scoreMomentum(market *domain.MarketQuote) float64 {
	if market == nil {
		return defaultMomentumScore
	}

	change := market.Change24h
	magnitude := math.Abs(change)
	sign := 1.0
	if change < 0 {
		sign = -1.0
	}

	var delta float64
	if magnitude <= extremeMovePct {
		delta = magnitude * 0.6
	} else {
		delta = extremeMovePct*0.6 + (magnitude-extremeMovePct)*0.06
	}
	return defaultMomentumScore + sign*delta
}

// scoreOnChain rewards holder count with diminishing returns and penalizes
// whale concentration above fixed thresholds.
func scoreOnChain(stats *domain.OnChainStats) (float64, []string) {
	if stats == nil {
		return defaultOnChainScore, nil
	}

	score := 20 + math.Min(55, 14*math.Log10(float64(stats.HolderCount)+1))
	var risks []string

	if stats.Top10Pct > 60 {
		score -= (stats.Top10Pct - 60) * 0.8
		risks = append(risks, fmt.Sprintf("top 10 holders own %.1f%% of supply", stats.Top10Pct))
	}
	if stats.TopHolderPct > 20 {
		score -= (stats.TopHolderPct - 20) * 0.5
		risks = append(risks, fmt.Sprintf("single holder owns %.1f%% of supply", stats.TopHolderPct))
	}

	return score, risks
}

// scoreSentiment maps the count of verifiable community channels to a
// bounded score. No social data resolves to the low non-zero default.
func scoreSentiment(launch *domain.LaunchInfo) float64 {
	if launch == nil {
		return defaultSentimentScore
	}
	switch launch.SocialChannels() {
	case 0:
		return 20
	case 1:
		return 40
	case 2:
		return 55
	default:
		return 70
	}
}

type tier struct {
	floor float64
	score float64
}

// tierScore returns the score of the highest tier whose floor the value
// reaches, or fallback when it reaches none.
func tierScore(value float64, tiers []tier, fallback float64) float64 {
	for _, t := range tiers {
		if value >= t.floor {
			return t.score
		}
	}
	return fallback
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
