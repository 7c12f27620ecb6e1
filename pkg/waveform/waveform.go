// Package waveform generates the latch pulse and the clock train of the
// controller port.
//
// Every 16.67ms the console sends a 12µs wide, positive going latch pulse.
// This instructs the parallel-in serial-out shift register in the controller
// to latch the state of all buttons. Afterwards 16 clock cycles with 12µs per
// cycle shift the latched bits out of the data line, one bit per cycle.
//
//	               12µs
//	            -->|   |<--
//	                ---
//	Latch       ---|   |-------------------------------------
//	            -----------   -   -   -   -   -   ------------
//	Clock                  | | | | | | | | | | | |
//	                        -   -   -   -   -   -
//
// The clock idles high. Its first pulse is an 11µs leading high segment, one
// microsecond shorter than the latch, so the first falling clock edge happens
// while bit 0 is already valid on the data line.
package waveform

import (
	"time"

	"snesio/pkg/port"
)

const (
	// LatchWidth is the width of the latch pulse.
	LatchWidth = 12 * time.Microsecond
	// LeadWidth is the width of the phase-shifted leading clock pulse.
	LeadWidth = 11 * time.Microsecond
	// HalfCycle is the half period of a regular clock cycle.
	HalfCycle = 6 * time.Microsecond
	// Cycle is the full period of a regular clock cycle.
	Cycle = 2 * HalfCycle
	// Cycles is the count of regular clock cycles in a clock train.
	Cycles = 16
)

// Segment is a part of a waveform with a constant level.
type Segment struct {
	Duration time.Duration
	Level    port.Level
}

// Spec is the immutable description of a pulse train.
type Spec struct {
	Name     string
	Idle     port.Level
	Segments []Segment
}

// Transition is a level change at an offset from the start of the waveform.
type Transition struct {
	At    time.Duration
	Level port.Level
}

var (
	// LatchPulse is a single active high pulse, the line idles low.
	LatchPulse = Spec{
		Name:     "latch",
		Idle:     port.Low,
		Segments: []Segment{{Duration: LatchWidth, Level: port.High}},
	}

	// ClockTrain is the leading pulse followed by 16 regular half-duty cycles, the line idles high.
	ClockTrain = clockTrain()
)

func clockTrain() Spec {
	s := Spec{
		Name:     "clock",
		Idle:     port.High,
		Segments: make([]Segment, 0, 1+2*Cycles),
	}

	s.Segments = append(s.Segments, Segment{Duration: LeadWidth, Level: port.High})
	for i := 0; i < Cycles; i++ {
		s.Segments = append(s.Segments,
			Segment{Duration: HalfCycle, Level: port.Low},
			Segment{Duration: HalfCycle, Level: port.High})
	}
	return s
}

// Duration returns the total duration of the waveform.
func (s Spec) Duration() (d time.Duration) {
	for _, seg := range s.Segments {
		d += seg.Duration
	}
	return d
}

// Transitions returns the level changes of the waveform, including the return to idle.
func (s Spec) Transitions() []Transition {
	var t []Transition
	var at time.Duration

	level := s.Idle
	for _, seg := range s.Segments {
		if seg.Level != level {
			t = append(t, Transition{At: at, Level: seg.Level})
			level = seg.Level
		}
		at += seg.Duration
	}

	if level != s.Idle {
		t = append(t, Transition{At: at, Level: s.Idle})
	}
	return t
}

// Edges returns the count of level changes of the waveform.
func (s Spec) Edges() int {
	return len(s.Transitions())
}
