// Package services – adaptive batch sizing.
//
// The optimizer tunes how many items a sync pass pulls per scheduler round:
// shrink quickly when the remote struggles, grow slowly under sustained
// success, always inside configured monotonic bounds.
package services

import (
	"sync"
	"time"
)

const (
	// growAfter is how many consecutive clean passes earn a size increase.
	growAfter = 3
	// growStep is the additive increase per earned growth.
	growStep = 5
	// shrinkFailureRate is the per-pass failure ratio that triggers a halving.
	shrinkFailureRate = 0.3
	// slowPassLatency is the average per-call latency above which a pass no
	// longer counts as clean: the size holds but the grow streak resets.
	slowPassLatency = 2 * time.Second
)

// BatchOptimizer recommends the batch size for the next sync pass.
// Safe for concurrent use.
type BatchOptimizer struct {
	mu sync.Mutex

	min, max int
	current  int
	cleanRun int // consecutive passes below the shrink threshold
}

// NewBatchOptimizer constructs an optimizer bounded to [min, max] starting
// at initial.
func NewBatchOptimizer(min, max, initial int) *BatchOptimizer {
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}
	return &BatchOptimizer{min: min, max: max, current: initial}
}

// Recommend returns the current batch size recommendation.
func (o *BatchOptimizer) Recommend() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Observe feeds one pass's outcome into the optimizer. Passes with a
// failure ratio at or above shrinkFailureRate halve the size (clamped to
// min) and reset the clean streak; clean passes grow the size additively
// once every growAfter passes (clamped to max). A pass whose average call
// latency is at or above slowPassLatency keeps its size but resets the
// streak, so growth requires sustained fast passes. Empty passes are
// neutral.
func (o *BatchOptimizer) Observe(attempted, failed int, avgLatency time.Duration) {
	if attempted == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if float64(failed)/float64(attempted) >= shrinkFailureRate {
		o.cleanRun = 0
		o.current /= 2
		if o.current < o.min {
			o.current = o.min
		}
		return
	}

	if avgLatency >= slowPassLatency {
		o.cleanRun = 0
		return
	}

	o.cleanRun++
	if o.cleanRun >= growAfter {
		o.cleanRun = 0
		o.current += growStep
		if o.current > o.max {
			o.current = o.max
		}
	}
}
