package services

import (
	"testing"
	"time"
)

func TestBatchOptimizer_InitialClamp(t *testing.T) {
	if got := NewBatchOptimizer(5, 50, 2).Recommend(); got != 5 {
		t.Fatalf("initial below min: got %d; want 5", got)
	}
	if got := NewBatchOptimizer(5, 50, 99).Recommend(); got != 50 {
		t.Fatalf("initial above max: got %d; want 50", got)
	}
	if got := NewBatchOptimizer(5, 50, 10).Recommend(); got != 10 {
		t.Fatalf("initial in range: got %d; want 10", got)
	}
}

func TestBatchOptimizer_ShrinksOnFailureRate(t *testing.T) {
	o := NewBatchOptimizer(5, 50, 40)

	o.Observe(10, 3, 0) // exactly 30% fails: shrink
	if got := o.Recommend(); got != 20 {
		t.Fatalf("after 30%% failures got %d; want 20", got)
	}
	o.Observe(10, 9, 0)
	if got := o.Recommend(); got != 10 {
		t.Fatalf("second shrink got %d; want 10", got)
	}
	o.Observe(10, 10, 0)
	o.Observe(10, 10, 0)
	if got := o.Recommend(); got != 5 {
		t.Fatalf("shrink must clamp to min, got %d", got)
	}
}

func TestBatchOptimizer_GrowsAfterCleanStreak(t *testing.T) {
	o := NewBatchOptimizer(5, 50, 10)

	o.Observe(10, 0, 0)
	o.Observe(10, 2, 0) // 20% is still clean
	if got := o.Recommend(); got != 10 {
		t.Fatalf("grew too early: got %d; want 10", got)
	}
	o.Observe(10, 0, 0)
	if got := o.Recommend(); got != 15 {
		t.Fatalf("after 3 clean passes got %d; want 15", got)
	}
}

func TestBatchOptimizer_FailureResetsCleanStreak(t *testing.T) {
	o := NewBatchOptimizer(5, 50, 10)

	o.Observe(10, 0, 0)
	o.Observe(10, 0, 0)
	o.Observe(10, 5, 0) // shrink and reset the streak
	o.Observe(10, 0, 0)
	o.Observe(10, 0, 0)
	if got := o.Recommend(); got != 5 {
		t.Fatalf("streak must restart after a shrink: got %d; want 5", got)
	}
	o.Observe(10, 0, 0)
	if got := o.Recommend(); got != 10 {
		t.Fatalf("after new clean streak got %d; want 10", got)
	}
}

func TestBatchOptimizer_GrowthClampsToMax(t *testing.T) {
	o := NewBatchOptimizer(5, 12, 10)
	for i := 0; i < 3; i++ {
		o.Observe(10, 0, 0)
	}
	if got := o.Recommend(); got != 12 {
		t.Fatalf("growth must clamp to max: got %d; want 12", got)
	}
}

func TestBatchOptimizer_SlowPassHoldsSizeAndResetsStreak(t *testing.T) {
	o := NewBatchOptimizer(5, 50, 10)

	o.Observe(10, 0, 0)
	o.Observe(10, 0, 0)
	o.Observe(10, 0, 3*time.Second) // clean but slow: no growth, streak resets
	if got := o.Recommend(); got != 10 {
		t.Fatalf("slow pass must not change the size: got %d; want 10", got)
	}
	o.Observe(10, 0, time.Second)
	o.Observe(10, 0, time.Second)
	if got := o.Recommend(); got != 10 {
		t.Fatalf("streak must restart after a slow pass: got %d; want 10", got)
	}
	o.Observe(10, 0, time.Second)
	if got := o.Recommend(); got != 15 {
		t.Fatalf("after 3 fast clean passes got %d; want 15", got)
	}
}

func TestBatchOptimizer_EmptyPassIsNeutral(t *testing.T) {
	o := NewBatchOptimizer(5, 50, 10)
	for i := 0; i < 10; i++ {
		o.Observe(0, 0, 0)
	}
	if got := o.Recommend(); got != 10 {
		t.Fatalf("empty passes must not move the size: got %d; want 10", got)
	}
}
