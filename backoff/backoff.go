// Package backoff provides retry delay strategies for failed jobs.
// All strategies are safe for concurrent use (they are stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each attempt.
// Delay = min(Base * 2^(attempt-1), Cap).
type Exponential struct {
	Base time.Duration
	Cap  time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(base, capDelay time.Duration) *Exponential {
	return &Exponential{Base: base, Cap: capDelay}
}

// Delay returns Base * 2^(attempt-1), capped at Cap.
func (e *Exponential) Delay(attempt int) time.Duration {
	d := time.Duration(float64(e.Base) * math.Pow(2, float64(attempt-1)))
	if e.Cap > 0 && d > e.Cap {
		return e.Cap
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (±10%)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies ±10% jitter to a capped exponential base.
// Delay = min(Base * 2^(attempt-1), Cap) * random(0.9, 1.1).
// The variance spreads retries so queued redeliveries don't thunder in
// lockstep, while keeping delays monotonically non-decreasing in
// expectation and bounded by Cap * 1.1.
type ExponentialWithJitter struct {
	Base time.Duration
	Cap  time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with ±10% jitter.
func NewExponentialWithJitter(base, capDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Base: base, Cap: capDelay}
}

// Delay returns the capped exponential delay scaled by a random factor in
// [0.9, 1.1].
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	d := float64(e.Base) * math.Pow(2, float64(attempt-1))
	if e.Cap > 0 && d > float64(e.Cap) {
		d = float64(e.Cap)
	}
	factor := 0.9 + rand.Float64()*0.2 //nolint:gosec // jitter intentionally uses non-crypto rand
	return time.Duration(d * factor)
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the backoff used by the worker:
// ExponentialWithJitter with 5s base and 60s cap.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(5*time.Second, 60*time.Second)
}
