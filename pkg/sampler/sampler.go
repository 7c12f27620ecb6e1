// Package sampler reads one raw frame from a controller port by driving the
// waveform generator and sampling the data line in step with it.
package sampler

import (
	"errors"
	"fmt"
	"time"

	"snesio/pkg/port"
	"snesio/pkg/timing"
	"snesio/pkg/waveform"
)

var ErrInvalidStrategy = errors.New("invalid sampling strategy")

// Frame is a raw 16 bit frame, bit n holds the level sampled in clock cycle n.
type Frame uint16

const (
	// Bits is the count of clock cycles of a frame.
	Bits = waveform.Cycles
	// ValidBits is the count of bits carrying button state.
	ValidBits = 12
	// ValidMask selects the button bits of a frame.
	ValidMask Frame = 1<<ValidBits - 1

	// SettleDelay aligns the first sample with the latch and the propagation delay.
	SettleDelay = 3 * time.Microsecond
)

// FrameDuration is the fixed duration of a capture.
var FrameDuration = waveform.ClockTrain.Duration()

func (f Frame) String() string {
	return fmt.Sprintf("%#04x", uint16(f))
}

// Engine captures frames.
type Engine interface {
	// CaptureFrame runs one protocol cycle and returns the sampled frame.
	// It always returns after FrameDuration.
	CaptureFrame() Frame
}

// FramingCounter is implemented by engines that can detect misaligned captures.
type FramingCounter interface {
	// Misframed returns the count of captures with an unexpected bit count.
	Misframed() uint64
}

// Strategy selects the Engine implementation.
type Strategy string

const (
	// StrategyBitBang samples the data line in software.
	StrategyBitBang Strategy = "bitbang"
	// StrategyPeripheral shifts the data line with a serial receiver clocked by XNOR(latch, clock).
	StrategyPeripheral Strategy = "peripheral"
)

// ParseStrategy converts a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyBitBang:
		return StrategyBitBang, nil
	case StrategyPeripheral:
		return StrategyPeripheral, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}

// New builds the engine of strategy s on the given lines.
func New(s Strategy, latch, clock port.Output, data port.Input, clk timing.Clock) (Engine, error) {
	switch s {
	case StrategyBitBang:
		return NewBitBang(waveform.NewGenerator(latch, clock, clk), data), nil
	case StrategyPeripheral:
		rx := NewXNORShifter(data)
		l, c := rx.Wrap(latch, clock)
		return NewPeripheral(waveform.NewGenerator(l, c, clk), rx), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
	}
}
