package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quantenergx/filing-gateway/internal/engine"
	"github.com/quantenergx/filing-gateway/internal/regulator"
	retrypolicy "github.com/quantenergx/filing-gateway/internal/retry"
)

func fastPolicy(attempts uint) retrypolicy.Policy {
	return retrypolicy.Policy{
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    5 * time.Millisecond,
		MaxAttempts: attempts,
	}
}

func testSettings() engine.ReliabilitySettings {
	s := engine.DefaultReliabilitySettings()
	s.RateLimit = 10000
	s.RateBurst = 10000
	s.CBMaxFailures = 1000
	return s
}

func newWrapper(t *testing.T, attempts uint) *engine.ReliabilityWrapper {
	t.Helper()
	return engine.NewReliabilityWrapper("cftc", fastPolicy(attempts), testSettings(), engine.NewMetrics(nil), zap.NewNop())
}

func TestRunExhaustsConfiguredAttempts(t *testing.T) {
	w := newWrapper(t, 3)

	calls := 0
	permanent := errors.New("regulator unavailable")
	err := w.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	if calls != 3 {
		t.Fatalf("calls = %d, want exactly 3", calls)
	}
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want last operation error %v", err, permanent)
	}
}

func TestRunStopsOnSuccess(t *testing.T) {
	w := newWrapper(t, 5)

	calls := 0
	err := w.Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3 (success must stop further attempts)", calls)
	}
}

func TestRunFirstAttemptImmediate(t *testing.T) {
	w := newWrapper(t, 1)

	start := time.Now()
	_ = w.Run(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("first attempt delayed by %v, want immediate", elapsed)
	}
}

func TestRunHonorsThrottleRetryAfter(t *testing.T) {
	w := newWrapper(t, 2)

	var gaps []time.Time
	err := w.Run(context.Background(), func(ctx context.Context) error {
		gaps = append(gaps, time.Now())
		if len(gaps) == 1 {
			return &regulator.ThrottleError{
				RetryAfter: 50 * time.Millisecond,
				Cause:      errors.New("rate limited"),
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if len(gaps) != 2 {
		t.Fatalf("calls = %d, want 2", len(gaps))
	}
	if gap := gaps[1].Sub(gaps[0]); gap < 50*time.Millisecond {
		t.Fatalf("retry gap = %v, want >= 50ms from throttle hint", gap)
	}
}

func TestRunRespectsContextCancel(t *testing.T) {
	w := newWrapper(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := w.Run(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
	if calls > 2 {
		t.Fatalf("calls = %d, cancellation must stop the retry loop", calls)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	s := testSettings()
	s.CBMaxFailures = 2
	w := engine.NewReliabilityWrapper("mas", fastPolicy(1), s, engine.NewMetrics(nil), zap.NewNop())

	boom := errors.New("down")
	for i := 0; i < 3; i++ {
		_ = w.Run(context.Background(), func(ctx context.Context) error { return boom })
	}

	calls := 0
	err := w.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err == nil {
		t.Fatal("expected open-circuit error")
	}
	if calls != 0 {
		t.Fatalf("calls = %d, open breaker must not invoke the operation", calls)
	}
}
