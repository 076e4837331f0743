package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		BackoffMult: 2.0,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("always fails")
	err := Retry(context.Background(), fastRetryConfig(), func(_ context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
	if calls != 4 { // initial attempt + 3 retries
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestRetry_PermanentErrorStopsEarly(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(), func(_ context.Context) error {
		calls++
		return Permanent(errors.New("bad request"))
	})
	if !errors.Is(err, ErrPermanent) {
		t.Errorf("expected ErrPermanent, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetryConfig(), func(_ context.Context) error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation check, got %d", calls)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clock := time.Unix(1704067200, 0)
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, OpenInterval: time.Minute}).
		withClock(func() time.Time { return clock })

	fail := func() error { return errors.New("boom") }

	if err := b.Execute(fail); err == nil {
		t.Fatal("expected failure")
	}
	if err := b.Execute(fail); err == nil {
		t.Fatal("expected failure")
	}

	// Breaker is now open.
	if err := b.Execute(fail); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}

	// After the open interval a probe is allowed; success closes the circuit.
	clock = clock.Add(2 * time.Minute)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Errorf("probe should be allowed after open interval: %v", err)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Errorf("breaker should be closed after successful probe: %v", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, OpenInterval: time.Minute})

	fail := func() error { return errors.New("boom") }
	ok := func() error { return nil }

	if err := b.Execute(fail); err == nil {
		t.Fatal("expected failure")
	}
	if err := b.Execute(ok); err != nil {
		t.Fatalf("success should pass through: %v", err)
	}

	// The earlier failure no longer counts toward the threshold.
	if err := b.Execute(fail); errors.Is(err, ErrBreakerOpen) {
		t.Fatal("breaker should still be closed")
	}
	if err := b.Execute(fail); errors.Is(err, ErrBreakerOpen) {
		t.Fatal("breaker should open only after two consecutive failures")
	}
	if err := b.Execute(ok); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clock := time.Unix(1704067200, 0)
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, OpenInterval: time.Minute}).
		withClock(func() time.Time { return clock })

	if err := b.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}

	clock = clock.Add(2 * time.Minute)
	if err := b.Execute(func() error { return errors.New("still broken") }); errors.Is(err, ErrBreakerOpen) {
		t.Fatal("probe should have been allowed")
	}

	// Failed probe re-opened the circuit immediately.
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen after failed probe, got %v", err)
	}
}
