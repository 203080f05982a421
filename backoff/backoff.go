// Package backoff computes how long a failed job waits before its next
// attempt. Strategies are stateless and safe for concurrent use; a retry
// rule on a job type carries one, and the engine falls back to
// DefaultStrategy for failures no rule matches.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before retry attempt n (1-indexed).
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Func adapts a plain function to Strategy.
type Func func(attempt int) time.Duration

// Delay calls f.
func (f Func) Delay(attempt int) time.Duration { return f(attempt) }

// Constant waits the same interval before every attempt.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration { return c.Interval }

// Exponential doubles the delay each attempt: min(Initial * 2^(n-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *Exponential) Delay(attempt int) time.Duration {
	return capped(float64(e.Initial)*math.Pow(2, float64(attempt-1)), e.Max)
}

// ExponentialWithJitter picks a random delay in
// [0, min(Initial * 2^(n-1), Max)] (full jitter).
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential strategy with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration bounded by the exponential ceiling.
func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	ceiling := capped(float64(e.Initial)*math.Pow(2, float64(attempt-1)), e.Max)
	return time.Duration(rand.Float64() * float64(ceiling)) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// Polynomial waits attempt^4 + 2 seconds plus up to Jitter of that base,
// the "polynomially longer" curve: 3s, 18s, 83s, 258s, ...
type Polynomial struct {
	// Jitter is the fraction of the base delay added at random. Zero
	// makes the strategy deterministic.
	Jitter float64
}

// NewPolynomial creates a polynomial strategy with the given jitter fraction.
func NewPolynomial(jitter float64) *Polynomial {
	return &Polynomial{Jitter: jitter}
}

// Delay returns (attempt^4 + 2)s plus random jitter.
func (p *Polynomial) Delay(attempt int) time.Duration {
	base := (math.Pow(float64(attempt), 4) + 2) * float64(time.Second)
	if p.Jitter > 0 {
		base += rand.Float64() * p.Jitter * base //nolint:gosec // jitter intentionally uses non-crypto rand
	}
	return time.Duration(base)
}

// DefaultStrategy is used when a failure matches no retry rule:
// exponential with full jitter, 1s initial, 1m max.
func DefaultStrategy() Strategy {
	return NewExponentialWithJitter(1*time.Second, 1*time.Minute)
}

func capped(d float64, maxDelay time.Duration) time.Duration {
	if maxDelay > 0 && d > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(d)
}
