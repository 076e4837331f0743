package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by Execute while the breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker open")

// Breaker states.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Default breaker configuration values.
const (
	DefaultFailureThreshold = 5
	DefaultOpenInterval     = 30 * time.Second
)

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold int
	// OpenInterval is how long the breaker stays open before allowing a
	// half-open probe.
	OpenInterval time.Duration
}

// Breaker is a consecutive-failure circuit breaker. After FailureThreshold
// consecutive failures it rejects calls for OpenInterval, then lets a single
// probe through; the probe's outcome closes or re-opens the circuit.
type Breaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	state    breakerState
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a circuit breaker. Zero config fields get defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.OpenInterval <= 0 {
		cfg.OpenInterval = DefaultOpenInterval
	}
	return &Breaker{
		cfg: cfg,
		now: time.Now,
	}
}

// withClock sets the time source. Used by tests.
func (b *Breaker) withClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenInterval {
			return ErrBreakerOpen
		}
		b.state = stateHalfOpen
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.state = stateClosed
		b.failures = 0
		return
	}

	if b.state == stateHalfOpen {
		b.trip()
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = stateOpen
	b.failures = 0
	b.openedAt = b.now()
}
