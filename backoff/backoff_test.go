package backoff_test

import (
	"testing"
	"time"

	"github.com/xraph/performs/backoff"
)

func TestConstant_ReturnsFixedDelay(t *testing.T) {
	c := backoff.NewConstant(3 * time.Second)
	for attempt := 1; attempt <= 5; attempt++ {
		if got := c.Delay(attempt); got != 3*time.Second {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, 3*time.Second)
		}
	}
}

func TestFunc_Adapts(t *testing.T) {
	f := backoff.Func(func(attempt int) time.Duration {
		return time.Duration(attempt) * time.Minute
	})
	if got := f.Delay(3); got != 3*time.Minute {
		t.Errorf("Delay(3) = %v, want 3m", got)
	}
}

func TestExponential_DoublesEachAttempt(t *testing.T) {
	e := backoff.NewExponential(time.Second, time.Hour)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
	}
	for _, tt := range tests {
		if got := e.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CapsAtMax(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)
	if got := e.Delay(20); got != 10*time.Second {
		t.Errorf("Delay(20) = %v, want %v (capped at Max)", got, 10*time.Second)
	}
}

func TestExponentialWithJitter_WithinBounds(t *testing.T) {
	e := backoff.NewExponentialWithJitter(time.Second, 10*time.Second)

	for attempt := 1; attempt <= 5; attempt++ {
		for range 100 {
			got := e.Delay(attempt)
			if got < 0 || got > 10*time.Second {
				t.Errorf("Delay(%d) = %v, want within [0, 10s]", attempt, got)
			}
		}
	}
}

func TestPolynomial_Deterministic(t *testing.T) {
	p := backoff.NewPolynomial(0)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 3 * time.Second},
		{2, 18 * time.Second},
		{3, 83 * time.Second},
		{4, 258 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolynomial_JitterAddsOnly(t *testing.T) {
	p := backoff.NewPolynomial(0.15)
	for range 100 {
		got := p.Delay(2)
		if got < 18*time.Second || got > 18*time.Second+2700*time.Millisecond {
			t.Fatalf("Delay(2) = %v, want within [18s, 20.7s]", got)
		}
	}
}

func TestDefaultStrategy_BoundedByInitial(t *testing.T) {
	d := backoff.DefaultStrategy().Delay(1)
	if d < 0 || d > time.Second {
		t.Errorf("DefaultStrategy().Delay(1) = %v, want within [0, 1s]", d)
	}
}
