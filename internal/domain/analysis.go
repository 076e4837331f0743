package domain

// Scores holds the five weighted sub-scores and the derived composite.
// Every field is clamped to [0,100].
type Scores struct {
	Safety       float64
	Fundamentals float64
	Momentum     float64
	OnChain      float64
	Sentiment    float64
	Overall      float64
}

// Recommendation is the discrete verdict derived from the overall score.
type Recommendation string

const (
	RecStrongBuy Recommendation = "STRONG_BUY"
	RecBuy       Recommendation = "BUY"
	RecHold      Recommendation = "HOLD"
	RecSell      Recommendation = "SELL"
	RecAvoid     Recommendation = "AVOID"
)

// Rank returns the ordering of a recommendation; higher is more bullish.
func (r Recommendation) Rank() int {
	switch r {
	case RecStrongBuy:
		return 4
	case RecBuy:
		return 3
	case RecHold:
		return 2
	case RecSell:
		return 1
	default:
		return 0
	}
}

// TokenAnalysis is the scored result of one token scan.
// Created fresh on every scan; never mutated after construction.
// Corresponds to the token_analyses table in PostgreSQL.
type TokenAnalysis struct {
	Mint   string
	Symbol string
	Name   string

	Scores         Scores
	Risks          []string // ordered, human-readable
	Recommendation Recommendation
	Confidence     float64 // 0-1, from evidence completeness

	Evidence  Evidence // raw bundle the scores were computed from
	ScannedAt int64    // Unix ms
}
