// Package backoff computes the wait between query retry attempts.
package backoff

import (
	"math/rand"
	"time"
)

// Strategy maps a zero-based retry attempt to the delay that precedes it.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Func adapts a plain function to Strategy.
type Func func(attempt int) time.Duration

// Delay implements Strategy.
func (f Func) Delay(attempt int) time.Duration {
	return f(attempt)
}

// Exponential grows the delay by Multiplier per attempt starting at Initial
// and never exceeds Max. Jitter in [0, 1] adds up to that fraction of the
// delay on top, still capped at Max.
type Exponential struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Default is 1s doubling per attempt, capped at 30s, without jitter.
func Default() Exponential {
	return Exponential{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
	}
}

// Delay implements Strategy.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^30 already overflows any sane cap
	if attempt > 30 {
		attempt = 30
	}

	multiplier := e.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	delay := time.Duration(float64(e.Initial) * pow(multiplier, attempt))
	if e.Max > 0 && (delay < 0 || delay > e.Max) {
		delay = e.Max
	}

	jitter := clampJitter(e.Jitter)
	if jitter > 0 {
		delay += time.Duration(float64(delay) * jitter * rand.Float64())
		if e.Max > 0 && delay > e.Max {
			delay = e.Max
		}
	}
	return delay
}

// Constant waits the same duration before every attempt.
type Constant time.Duration

// Delay implements Strategy.
func (c Constant) Delay(int) time.Duration {
	return time.Duration(c)
}

func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
