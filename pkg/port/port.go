// Package port holds the definition of a physical port line
package port

import (
	"errors"
	"io"
)

var ErrInvalidPull = errors.New("invalid pull configuration")

// Level is the electrical state of a line.
type Level bool

const (
	// Low indicates a logical 0.
	Low Level = false
	// High indicates a logical 1.
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Pull is the bias of an input line.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// ParsePull converts the config terminator string to a Pull.
func ParsePull(s string) (Pull, error) {
	switch s {
	case "pullup", "":
		return PullUp, nil
	case "pulldown":
		return PullDown, nil
	case "none":
		return PullNone, nil
	default:
		return PullNone, ErrInvalidPull
	}
}

// Input is a digital line that is polled by the sampling engine.
type Input interface {
	// Read returns the current level of the line.
	Read() Level
	io.Closer
}

// Output is a digital line driven by the waveform generator.
type Output interface {
	// Write drives the line to level l.
	Write(l Level)
	io.Closer
}
