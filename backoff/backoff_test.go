package backoff_test

import (
	"testing"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/backoff"
	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(5 * time.Second)
	for attempt := 1; attempt <= 10; attempt++ {
		if got := c.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 5*time.Second)
		}
	}
}

func TestExponential_DoublesEachAttempt(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},  // 1 * 2^0
		{2, 2 * time.Second},  // 1 * 2^1
		{3, 4 * time.Second},  // 1 * 2^2
		{4, 8 * time.Second},  // 1 * 2^3
		{5, 16 * time.Second}, // 1 * 2^4
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	if got := e.Delay(5); got != 10*time.Second {
		t.Errorf("Delay(5) = %v, want %v (capped)", got, 10*time.Second)
	}
	if got := e.Delay(20); got != 10*time.Second {
		t.Errorf("Delay(20) = %v, want %v (capped)", got, 10*time.Second)
	}
}

func TestExponentialWithJitter_WithinTenPercentBand(t *testing.T) {
	e := backoff.NewExponentialWithJitter(5*time.Second, 60*time.Second)

	for attempt := 1; attempt <= 8; attempt++ {
		base := 5 * time.Second * (1 << (attempt - 1))
		if base > 60*time.Second {
			base = 60 * time.Second
		}
		lo := time.Duration(float64(base) * 0.9)
		hi := time.Duration(float64(base) * 1.1)

		for range 100 {
			got := e.Delay(attempt)
			if got < lo || got > hi {
				t.Fatalf("Delay(%d) = %v, want within [%v, %v]", attempt, got, lo, hi)
			}
		}
	}
}

func TestExponentialWithJitter_BoundedByCapPlusJitter(t *testing.T) {
	e := backoff.NewExponentialWithJitter(5*time.Second, 60*time.Second)
	capDelay := 60 * time.Second
	bound := time.Duration(float64(capDelay) * 1.1)

	for attempt := 1; attempt <= 20; attempt++ {
		for range 50 {
			if got := e.Delay(attempt); got > bound {
				t.Fatalf("Delay(%d) = %v exceeds cap*1.1 = %v", attempt, got, bound)
			}
		}
	}
}

func TestExponentialWithJitter_NonDecreasingExpectation(t *testing.T) {
	e := backoff.NewExponentialWithJitter(5*time.Second, 60*time.Second)

	// Lower band of attempt n+1 must not fall below the upper band of
	// attempt n until the cap flattens the curve.
	prevHi := time.Duration(0)
	for attempt := 1; attempt <= 4; attempt++ {
		base := 5 * time.Second * (1 << (attempt - 1))
		lo := time.Duration(float64(base) * 0.9)
		if lo < prevHi {
			t.Fatalf("attempt %d lower bound %v below previous upper bound %v", attempt, lo, prevHi)
		}
		prevHi = time.Duration(float64(base) * 1.1)
	}
	_ = e
}

func TestExponentialWithJitter_ProducesVariance(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, time.Minute)

	seen := make(map[time.Duration]bool)
	for range 100 {
		seen[e.Delay(3)] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected variance in jitter, got only %d distinct values", len(seen))
	}
}

func TestDefaultStrategy(t *testing.T) {
	s := backoff.DefaultStrategy()
	if s == nil {
		t.Fatal("DefaultStrategy() returned nil")
	}

	d := s.Delay(1)
	if d < 4*time.Second || d > 6*time.Second {
		t.Errorf("DefaultStrategy().Delay(1) = %v, want ~5s ±10%%", d)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name     string
		code     fault.Code
		attempts int
		max      int
		want     bool
	}{
		{"retryable with budget", fault.FailedTimeout, 1, 3, true},
		{"retryable exhausted", fault.FailedTimeout, 3, 3, false},
		{"non-retryable", fault.FailedCodec, 1, 3, false},
		{"non-retryable exhausted", fault.FailedInput, 3, 3, false},
		{"last attempt remaining", fault.FailedProvider, 2, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := backoff.ShouldRetry(tt.code, tt.attempts, tt.max); got != tt.want {
				t.Errorf("ShouldRetry(%s, %d, %d) = %v, want %v",
					tt.code, tt.attempts, tt.max, got, tt.want)
			}
		})
	}
}
