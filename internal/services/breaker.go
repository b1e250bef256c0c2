// Package services – circuit breaker.
//
// One breaker guards the remote endpoint for the whole process. Without it,
// every queued item's independent retry loop would hammer a saturated or
// down backend; with it, sustained failure flips the breaker open and calls
// fail fast with ErrBreakerOpen until a cooldown elapses.
//
// States: CLOSED -> OPEN -> HALF_OPEN -> CLOSED. In HALF_OPEN exactly one
// probe call is admitted; its outcome decides whether the breaker closes or
// re-opens with a grown cooldown.
package services

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's current state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the lowercase state name for logs and metrics.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker wraps remote calls with fail-fast protection.
// Safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold   int           // consecutive failures within the window to trip
	window      time.Duration // rolling window for the failure streak
	cooldown    time.Duration // initial open duration
	maxCooldown time.Duration // cap for grown cooldowns

	state         BreakerState
	failures      int       // consecutive failures in the current window
	windowStart   time.Time // start of the current failure window
	openedAt      time.Time
	curCooldown   time.Duration
	probeInFlight bool // HALF_OPEN admits a single probe

	// now allows tests to control time.
	now func() time.Time
}

// NewCircuitBreaker constructs a closed breaker.
func NewCircuitBreaker(threshold int, window, cooldown, maxCooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:   threshold,
		window:      window,
		cooldown:    cooldown,
		maxCooldown: maxCooldown,
		state:       BreakerClosed,
		curCooldown: cooldown,
		now:         time.Now,
	}
}

// State returns the breaker's current state, advancing OPEN to HALF_OPEN
// when the cooldown has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()
	return cb.state
}

// Allow reports whether a call may proceed right now. In HALF_OPEN only the
// first caller is admitted as the probe; everyone else fails fast until the
// probe reports back. Callers that receive true must report the outcome via
// Success or Failure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if cb.probeInFlight {
			return false
		}
		cb.probeInFlight = true
		return true
	default:
		return false
	}
}

// Do runs fn under the breaker. When the breaker refuses the call it
// returns ErrBreakerOpen without invoking fn; otherwise fn's error decides
// the success/failure report.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if !cb.Allow() {
		return ErrBreakerOpen
	}
	err := fn()
	if err != nil {
		cb.Failure()
		return err
	}
	cb.Success()
	return nil
}

// Success reports a successful call: a HALF_OPEN probe closes the breaker
// and resets counters and the cooldown; in CLOSED the failure streak resets.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen {
		cb.state = BreakerClosed
		cb.curCooldown = cb.cooldown
	}
	cb.failures = 0
	cb.probeInFlight = false
}

// Failure reports a failed call. In CLOSED, the streak counter advances
// (restarting when the rolling window lapsed) and trips the breaker at the
// threshold. A failed HALF_OPEN probe re-opens with a doubled cooldown,
// capped at maxCooldown.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := cb.now()

	switch cb.state {
	case BreakerHalfOpen:
		cb.probeInFlight = false
		cb.curCooldown *= 2
		if cb.curCooldown > cb.maxCooldown {
			cb.curCooldown = cb.maxCooldown
		}
		cb.openLocked(now)
	case BreakerClosed:
		if cb.failures == 0 || now.Sub(cb.windowStart) > cb.window {
			cb.failures = 0
			cb.windowStart = now
		}
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.openLocked(now)
		}
	}
}

func (cb *CircuitBreaker) openLocked(now time.Time) {
	cb.state = BreakerOpen
	cb.openedAt = now
	cb.failures = 0
}

// advanceLocked transitions OPEN to HALF_OPEN once the cooldown elapsed.
func (cb *CircuitBreaker) advanceLocked() {
	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.curCooldown {
		cb.state = BreakerHalfOpen
		cb.probeInFlight = false
	}
}
