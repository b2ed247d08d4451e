package retry_test

import (
	"testing"
	"time"

	"github.com/quantenergx/filing-gateway/internal/retry"
)

func TestDelayForExactValues(t *testing.T) {
	p := retry.Policy{BaseDelay: 1000 * time.Millisecond, Multiplier: 2, MaxDelay: 30000 * time.Millisecond}

	cases := []struct {
		attempt uint
		want    time.Duration
	}{
		{1, 1000 * time.Millisecond},
		{2, 2000 * time.Millisecond},
		{3, 4000 * time.Millisecond},
		{4, 8000 * time.Millisecond},
		{5, 16000 * time.Millisecond},
		{6, 30000 * time.Millisecond}, // 32000 упирается в потолок
		{10, 30000 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := p.DelayFor(tc.attempt); got != tc.want {
			t.Errorf("DelayFor(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestDelayForZeroAttemptTreatedAsFirst(t *testing.T) {
	p := retry.DefaultPolicy()
	if p.DelayFor(0) != p.DelayFor(1) {
		t.Fatalf("attempt 0 must fall back to the first-attempt delay")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := retry.DefaultPolicy()
	if p.BaseDelay != time.Second || p.Multiplier != 2 || p.MaxDelay != 30*time.Second || p.MaxAttempts != 3 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}
