package services

import (
	"math/rand"
	"testing"
	"time"
)

func TestBackoffDelay_DoublesAndClamps(t *testing.T) {
	b := NewBackoff(2*time.Second, 5*time.Minute, 0)

	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		64 * time.Second,
		128 * time.Second,
		256 * time.Second,
		5 * time.Minute,
		5 * time.Minute,
	}
	for i, w := range want {
		if got := b.Delay(i + 1); got != w {
			t.Fatalf("Delay(%d) = %v; want %v", i+1, got, w)
		}
	}
}

func TestBackoffDelay_AttemptFloor(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute, 0)
	if got := b.Delay(0); got != time.Second {
		t.Fatalf("Delay(0) = %v; want %v", got, time.Second)
	}
	if got := b.Delay(-3); got != time.Second {
		t.Fatalf("Delay(-3) = %v; want %v", got, time.Second)
	}
}

func TestBackoffDelay_JitterStaysInBounds(t *testing.T) {
	b := NewBackoff(10*time.Second, 5*time.Minute, 0.2)
	b.rnd = rand.New(rand.NewSource(42))

	lo := time.Duration(float64(10*time.Second) * 0.8)
	hi := time.Duration(float64(10*time.Second) * 1.2)
	for i := 0; i < 200; i++ {
		d := b.Delay(1)
		if d < lo || d > hi {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, lo, hi)
		}
	}
}

func TestBackoffDelay_JitterNeverExceedsCap(t *testing.T) {
	b := NewBackoff(2*time.Second, 5*time.Minute, 0.2)
	b.rnd = rand.New(rand.NewSource(7))

	for i := 0; i < 100; i++ {
		if d := b.Delay(20); d > 5*time.Minute {
			t.Fatalf("delay %v exceeds cap", d)
		}
	}
}
