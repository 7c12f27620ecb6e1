package sampler

import (
	"time"

	"snesio/pkg/port"
	"snesio/pkg/waveform"
)

// BitBang samples the data line in software, in the same timeline that
// emits the latch pulse and the clock train.
type BitBang struct {
	gen   *waveform.Generator
	data  port.Input
	frame Frame
}

// NewBitBang returns a software sampling engine.
// The sample points are:
//
//	settle (3µs) + n * cycle (12µs) + half cycle (6µs)
//
// i.e. in the middle of the low phase of clock cycle n.
func NewBitBang(gen *waveform.Generator, data port.Input) *BitBang {
	e := &BitBang{gen: gen, data: data}

	samples := make(waveform.Timeline, 0, Bits+1)
	for n := 0; n < Bits; n++ {
		samples = append(samples, waveform.Action{
			At: SettleDelay + time.Duration(n)*waveform.Cycle + waveform.HalfCycle,
			Do: e.sampler(n),
		})
	}

	// the remaining half period of the last cycle
	samples = append(samples, waveform.Action{At: SettleDelay + Bits*waveform.Cycle, Do: func() {}})

	gen.Attach(samples)
	return e
}

func (e *BitBang) sampler(n int) func() {
	mask := Frame(1) << n
	return func() {
		l := e.data.Read()
		// the reserved cycles are timed and read but never written
		if n < ValidBits && l == port.High {
			e.frame |= mask
		}
	}
}

// CaptureFrame emits latch and clock train and samples 16 bits.
func (e *BitBang) CaptureFrame() Frame {
	e.frame = 0
	e.gen.EmitLatch()
	e.gen.EmitClockTrain()
	return e.frame
}
