package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Configuration errors. These are fatal at construction time; everything
// else scoring encounters degrades to defaults instead.
var (
	ErrBadWeights    = errors.New("scoring weights must sum to 1.0")
	ErrBadThresholds = errors.New("recommendation thresholds must be strictly decreasing")
)

// Weights are the five fixed sub-score weights. They must sum to exactly 1.0.
type Weights struct {
	Safety       float64
	Fundamentals float64
	Momentum     float64
	OnChain      float64
	Sentiment    float64
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		Safety:       0.30,
		Fundamentals: 0.25,
		Momentum:     0.20,
		OnChain:      0.15,
		Sentiment:    0.10,
	}
}

// Sum returns the total of all five weights.
func (w Weights) Sum() float64 {
	return w.Safety + w.Fundamentals + w.Momentum + w.OnChain + w.Sentiment
}

// Validate returns ErrBadWeights unless the weights sum to 1.0
// (within floating-point tolerance) and none is negative.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Safety, w.Fundamentals, w.Momentum, w.OnChain, w.Sentiment} {
		if v < 0 {
			return fmt.Errorf("%w: negative weight %v", ErrBadWeights, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 1e-9 {
		return fmt.Errorf("%w: sum is %v", ErrBadWeights, w.Sum())
	}
	return nil
}

// Thresholds are the ordered score bands for the recommendation mapping.
// A token whose overall score reaches a band's floor gets at least that
// recommendation; below Sell the verdict is AVOID.
type Thresholds struct {
	StrongBuy float64
	Buy       float64
	Hold      float64
	Sell      float64
}

// DefaultThresholds returns the production recommendation bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongBuy: 80,
		Buy:       65,
		Hold:      45,
		Sell:      30,
	}
}

// Validate returns ErrBadThresholds unless the bands are strictly
// decreasing and within [0,100].
func (t Thresholds) Validate() error {
	if !(t.StrongBuy > t.Buy && t.Buy > t.Hold && t.Hold > t.Sell) {
		return fmt.Errorf("%w: %+v", ErrBadThresholds, t)
	}
	if t.StrongBuy > 100 || t.Sell < 0 {
		return fmt.Errorf("%w: bands outside [0,100]: %+v", ErrBadThresholds, t)
	}
	return nil
}

// Missing-evidence defaults, one per sub-score. Centralized so the
// degradation behavior is auditable rather than scattered through the
// scoring code. Absence of data is not proof of danger: an unscanned token
// gets a neutral safety score, not zero.
const (
	defaultSafetyScore       = 50.0 // neutral - unscanned is neither safe nor unsafe
	defaultFundamentalsScore = 20.0 // minimum non-zero - insufficient evidence, not bad fundamentals
	defaultMomentumScore     = 50.0 // flat - no price data means no observed move
	defaultOnChainScore      = 30.0 // conservative - holder base unverified
	defaultSentimentScore    = 15.0 // low non-zero - no community channels found
)
