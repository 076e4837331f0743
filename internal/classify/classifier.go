// Package classify maps normalized discoveries into typed, actionable
// signals. Classification is table-driven per source family and never
// fails: a discovery with no matching rule is emitted as a neutral
// low-confidence signal so batch counts stay reconcilable.
package classify

import (
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"trend-hunter/internal/domain"
)

// Classification constants.
const (
	// DefaultMinConfidence is the actionable-filter confidence floor.
	DefaultMinConfidence = 60.0

	// whaleLargeUSD is the notional above which a whale transfer is
	// treated as immediate.
	whaleLargeUSD = 250_000.0

	// Fear/greed contrarian bands.
	extremeFearMax  = 25.0
	extremeGreedMin = 75.0
)

// Batch is the classified output for one discovery batch.
type Batch struct {
	Signals          []domain.Signal
	ByType           map[domain.SignalType][]domain.Signal
	ByAction         map[domain.Action][]domain.Signal
	TotalDiscoveries int
}

// rule classifies one discovery of a given source family.
type rule func(c *Classifier, d domain.Discovery) domain.Signal

// Classifier derives signals from discoveries.
type Classifier struct {
	minConfidence float64
	rules         map[domain.Category]rule
	logger        *log.Logger
	now           func() time.Time
}

// Options contains configuration for creating a Classifier.
type Options struct {
	MinConfidence float64 // actionable filter floor; 0 means DefaultMinConfidence
	Logger        *log.Logger
	Now           func() time.Time
}

// New creates a classifier with the built-in per-family rule table.
func New(opts Options) *Classifier {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Classifier{
		minConfidence: minConfidence,
		rules: map[domain.Category]rule{
			domain.CategorySentiment: (*Classifier).classifySentiment,
			domain.CategoryWhale:     (*Classifier).classifyWhale,
			domain.CategoryLaunch:    (*Classifier).classifyLaunch,
			domain.CategorySafety:    (*Classifier).classifySafety,
			domain.CategoryMarket:    (*Classifier).classifyMarket,
			domain.CategoryNews:      (*Classifier).classifyNews,
		},
		logger: logger,
		now:    now,
	}
}

// Classify derives a signal from one discovery. It never fails; unmatched
// discoveries get the neutral fallback signal.
func (c *Classifier) Classify(d domain.Discovery) domain.Signal {
	r, exists := c.rules[d.Category]
	if !exists {
		return c.neutral(d, "no classification rule for category "+d.Category.String())
	}
	return r(c, d)
}

// ProcessSignals classifies a batch of discoveries. len(batch.Signals)
// always equals batch.TotalDiscoveries.
func (c *Classifier) ProcessSignals(discoveries []domain.Discovery) *Batch {
	batch := &Batch{
		Signals:          make([]domain.Signal, 0, len(discoveries)),
		ByType:           make(map[domain.SignalType][]domain.Signal),
		ByAction:         make(map[domain.Action][]domain.Signal),
		TotalDiscoveries: len(discoveries),
	}

	for _, d := range discoveries {
		s := c.Classify(d)
		batch.Signals = append(batch.Signals, s)
		batch.ByType[s.Type] = append(batch.ByType[s.Type], s)
		batch.ByAction[s.Action] = append(batch.ByAction[s.Action], s)
	}
	return batch
}

// Actionable selects the signals meeting the confidence floor with urgency
// in the top bands. Pure predicate over already-computed signals.
func (c *Classifier) Actionable(batch *Batch) []domain.Signal {
	var out []domain.Signal
	for _, s := range batch.Signals {
		if s.Confidence >= c.minConfidence && s.Urgency.Rank() >= domain.UrgencyToday.Rank() {
			out = append(out, s)
		}
	}
	return out
}

// classifySentiment handles fear/greed style index readings. Extreme
// readings map to contrarian actions.
func (c *Classifier) classifySentiment(d domain.Discovery) domain.Signal {
	value, hasValue := d.Metrics["value"]
	hint := d.RawMetadata["signal"]

	switch {
	case hasValue && value <= extremeFearMax, hint == "ACCUMULATE":
		confidence := 70.0
		reasoning := "sentiment feed signals accumulation"
		if hasValue {
			confidence = 70 + (extremeFearMax - value)
			reasoning = fmt.Sprintf("extreme fear reading (%.0f): contrarian accumulation zone", value)
		}
		return c.signal(d, domain.SignalTypeFearGreed, domain.ActionBuy,
			confidence, domain.UrgencyToday, domain.RiskMedium, reasoning)
	case hasValue && value >= extremeGreedMin, hint == "REDUCE":
		confidence := 60.0
		reasoning := "sentiment feed signals distribution"
		if hasValue {
			confidence = 60 + (value - extremeGreedMin)
			reasoning = fmt.Sprintf("extreme greed reading (%.0f): contrarian distribution zone", value)
		}
		return c.signal(d, domain.SignalTypeFearGreed, domain.ActionSell,
			confidence, domain.UrgencyToday, domain.RiskMedium, reasoning)
	default:
		reasoning := "sentiment reading unavailable"
		if hasValue {
			reasoning = fmt.Sprintf("neutral sentiment reading (%.0f)", value)
		}
		return c.signal(d, domain.SignalTypeFearGreed, domain.ActionWatch,
			35, domain.UrgencyLater, domain.RiskLow, reasoning)
	}
}

// classifyWhale handles large-transfer discoveries. Size drives urgency;
// a buy-side transfer from a known wallet is the strongest case.
func (c *Classifier) classifyWhale(d domain.Discovery) domain.Signal {
	amountUSD := d.Metrics["amount_usd"]
	side := d.RawMetadata["side"]

	urgency := domain.UrgencyToday
	confidence := 55.0
	if amountUSD >= whaleLargeUSD {
		urgency = domain.UrgencyImmediate
		confidence = 75
	}

	action := domain.ActionWatch
	risk := domain.RiskMedium
	reasoning := fmt.Sprintf("whale transfer of $%.0f observed", amountUSD)
	if side == "buy" {
		action = domain.ActionBuy
		risk = domain.RiskLow
		reasoning = fmt.Sprintf("whale purchase of $%.0f: smart money accumulating", amountUSD)
	} else if side == "sell" {
		action = domain.ActionSell
		risk = domain.RiskMedium
		reasoning = fmt.Sprintf("whale sale of $%.0f: distribution pressure", amountUSD)
	}

	// A program-account counterparty is a protocol flow (pool move, vault
	// rebalance), not trader intent.
	if d.RawMetadata["wallet_kind"] == "program" {
		action = domain.ActionWatch
		confidence -= 15
		reasoning += "; counterparty is a program account, not a trader wallet"
	}

	return c.signal(d, domain.SignalTypeWhale, action, confidence, urgency, risk, reasoning)
}

// classifyLaunch handles launch-platform discoveries. Graduated launches
// with socials are watchable; raw launches stay advisory and high risk.
func (c *Classifier) classifyLaunch(d domain.Discovery) domain.Signal {
	progress := d.Metrics["curve_progress"]
	graduated := d.RawMetadata["graduated"] == "true"

	if graduated {
		return c.signal(d, domain.SignalTypeLaunch, domain.ActionWatch,
			65, domain.UrgencyToday, domain.RiskHigh,
			"launch graduated to AMM pool: liquidity now tradable")
	}
	if progress >= 50 {
		return c.signal(d, domain.SignalTypeLaunch, domain.ActionWatch,
			50, domain.UrgencyToday, domain.RiskHigh,
			fmt.Sprintf("bonding curve at %.0f%%: approaching graduation", progress))
	}
	return c.signal(d, domain.SignalTypeLaunch, domain.ActionIgnore,
		25, domain.UrgencyLater, domain.RiskHigh,
		fmt.Sprintf("early launch, bonding curve at %.0f%%", progress))
}

// classifySafety handles safety-scanner discoveries (trending/verified lists).
func (c *Classifier) classifySafety(d domain.Discovery) domain.Signal {
	score := d.Metrics["safety_score"]
	if score >= 80 {
		return c.signal(d, domain.SignalTypeSafety, domain.ActionWatch,
			60, domain.UrgencyToday, domain.RiskLow,
			fmt.Sprintf("trending with safety score %.0f", score))
	}
	return c.signal(d, domain.SignalTypeSafety, domain.ActionIgnore,
		30, domain.UrgencyLater, domain.RiskMedium,
		fmt.Sprintf("trending but safety score only %.0f", score))
}

// classifyMarket handles gainer/loser discoveries from the market feed.
func (c *Classifier) classifyMarket(d domain.Discovery) domain.Signal {
	change := d.Metrics["change_24h"]
	switch {
	case change >= 30:
		return c.signal(d, domain.SignalTypeMarket, domain.ActionWatch,
			60, domain.UrgencyToday, domain.RiskHigh,
			fmt.Sprintf("up %.1f%% in 24h: momentum running hot", change))
	case change <= -30:
		return c.signal(d, domain.SignalTypeMarket, domain.ActionWatch,
			55, domain.UrgencyToday, domain.RiskMedium,
			fmt.Sprintf("down %.1f%% in 24h: possible capitulation", change))
	default:
		return c.signal(d, domain.SignalTypeMarket, domain.ActionIgnore,
			25, domain.UrgencyNone, domain.RiskMedium,
			fmt.Sprintf("routine move of %.1f%% in 24h", change))
	}
}

// classifyNews handles routine news items: advisory, never urgent.
func (c *Classifier) classifyNews(d domain.Discovery) domain.Signal {
	confidence := 30.0
	if d.Relevance.HighEngagement {
		confidence = 45
	}
	return c.signal(d, domain.SignalTypeNews, domain.ActionWatch,
		confidence, domain.UrgencyLater, domain.RiskLow,
		"news item: "+truncate(d.Title, 80))
}

// neutral is the fallback for discoveries no rule matches.
func (c *Classifier) neutral(d domain.Discovery, why string) domain.Signal {
	return c.signal(d, domain.SignalTypeGeneric, domain.ActionIgnore,
		10, domain.UrgencyNone, domain.RiskMedium, why)
}

func (c *Classifier) signal(d domain.Discovery, t domain.SignalType, action domain.Action,
	confidence float64, urgency domain.Urgency, risk domain.Risk, reasoning string) domain.Signal {
	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}
	return domain.Signal{
		Type:        t,
		Action:      action,
		Confidence:  confidence,
		Urgency:     urgency,
		Risk:        risk,
		Reasoning:   reasoning,
		Fingerprint: d.Fingerprint,
		Source:      d.Source,
		Title:       d.Title,
		CreatedAt:   c.now().UnixMilli(),
	}
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
