// Package timing provides the wait primitive used by the waveform generator
// and the sampling engine.
package timing

import (
	"sync"
	"time"
)

// sleepMargin is the part of a wait that is always busy-waited.
// The scheduler can't wake a goroutine with microsecond accuracy.
const sleepMargin = 2 * time.Millisecond

// Clock measures time as an offset from its epoch and blocks until a deadline.
type Clock interface {
	// Now returns the time elapsed since the epoch of the clock.
	Now() time.Duration
	// WaitUntil blocks until Now() >= t.
	WaitUntil(t time.Duration)
}

// Wait blocks for d.
func Wait(c Clock, d time.Duration) {
	c.WaitUntil(c.Now() + d)
}

// Spin is a Clock based on the monotonic wall clock.
// Waits shorter than sleepMargin are busy-waited.
type Spin struct {
	epoch time.Time
}

// NewSpin returns a Spin clock with epoch now.
func NewSpin() *Spin {
	return &Spin{epoch: time.Now()}
}

func (s *Spin) Now() time.Duration {
	return time.Since(s.epoch)
}

func (s *Spin) WaitUntil(t time.Duration) {
	if d := t - s.Now(); d > sleepMargin {
		time.Sleep(d - sleepMargin)
	}

	for s.Now() < t {
	}
}

// Virtual is a Clock that never blocks: waiting moves the clock forward.
// It makes every capture cycle deterministic in tests and in the sim backend.
type Virtual struct {
	mu  sync.Mutex
	now time.Duration
}

// NewVirtual returns a Virtual clock at offset 0.
func NewVirtual() *Virtual {
	return &Virtual{}
}

func (v *Virtual) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) WaitUntil(t time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t > v.now {
		v.now = t
	}
}

// Advance moves the clock forward by d.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now += d
}
