package netio

import (
	"testing"
	"time"
)

func TestRateLimiterInterpretsRawAsSecondsBelowThreshold(t *testing.T) {
	rl := NewRateLimiter(2)
	if rl.interval != 2*time.Second {
		t.Fatalf("interval = %v, want 2s for raw=2", rl.interval)
	}
}

// TestRateLimiterInterpretsFractionalRawAsSeconds covers spec.md §8 scenario
// 6: `-z 0.5` must produce a 500ms interval, not be truncated to 0.
func TestRateLimiterInterpretsFractionalRawAsSeconds(t *testing.T) {
	rl := NewRateLimiter(0.5)
	if rl.interval != 500*time.Millisecond {
		t.Fatalf("interval = %v, want 500ms for raw=0.5", rl.interval)
	}
}

func TestRateLimiterInterpretsRawAsMillisecondsAboveThreshold(t *testing.T) {
	rl := NewRateLimiter(500)
	if rl.interval != 500*time.Millisecond {
		t.Fatalf("interval = %v, want 500ms for raw=500", rl.interval)
	}
}

func TestRateLimiterEnforcesMinimumInterval(t *testing.T) {
	rl := NewRateLimiter(500) // 500ms
	t0 := time.Now()

	if !rl.Allow(t0) {
		t.Fatalf("first Allow() = false, want true")
	}
	if rl.Allow(t0.Add(100 * time.Millisecond)) {
		t.Fatalf("Allow() too soon = true, want false")
	}
	if !rl.Allow(t0.Add(600 * time.Millisecond)) {
		t.Fatalf("Allow() after interval elapsed = false, want true")
	}
}

func TestRateLimiterZeroIntervalAlwaysAllows(t *testing.T) {
	rl := NewRateLimiter(0)
	now := time.Now()
	if !rl.Allow(now) || !rl.Allow(now) {
		t.Fatalf("zero-interval limiter should always permit")
	}
}
