// Package services – retry backoff.
//
// Failed items are rescheduled, not slept on: the computed delay lands in
// the item's next_attempt_at column and the scheduler simply skips the item
// until the instant passes. That keeps the worker pool free for other
// owners while a flaky item cools off.
package services

import (
	"math/rand"
	"time"
)

// Backoff computes exponential retry delays with jitter.
type Backoff struct {
	Base   time.Duration // delay before the first retry
	Cap    time.Duration // upper bound for any delay
	Jitter float64       // +/- fraction applied to the computed delay

	// rnd allows deterministic tests; nil uses the shared source.
	rnd *rand.Rand
}

// NewBackoff constructs a Backoff with the given base, cap, and jitter
// fraction in [0,1).
func NewBackoff(base, cap time.Duration, jitter float64) *Backoff {
	return &Backoff{Base: base, Cap: cap, Jitter: jitter}
}

// Delay returns the delay to apply before the given retry attempt
// (attempt 1 is the first retry). Growth is base*2^(attempt-1), clamped to
// the cap, with +/- Jitter fraction of randomness. Without jitter the
// sequence is non-decreasing and bounded by Cap.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Cap {
			d = b.Cap
			break
		}
	}
	if d > b.Cap {
		d = b.Cap
	}

	if b.Jitter > 0 {
		f := b.float64()
		// Spread across [-Jitter, +Jitter).
		scale := 1 + b.Jitter*(2*f-1)
		d = time.Duration(float64(d) * scale)
		if d > b.Cap {
			d = b.Cap
		}
		if d < 0 {
			d = 0
		}
	}
	return d
}

func (b *Backoff) float64() float64 {
	if b.rnd != nil {
		return b.rnd.Float64()
	}
	return rand.Float64()
}
