package sampler

import (
	"sync"
	"sync/atomic"

	"github.com/womat/debug"

	"snesio/pkg/port"
	"snesio/pkg/waveform"
)

// FramedBits is the count of bits shifted by the serial receiver per capture.
// The peripheral samples one cycle early, the first bit is a dummy cycle.
const FramedBits = Bits + 1

// ShiftReceiver is a synchronous serial receiver shifting the data line.
type ShiftReceiver interface {
	// Reset clears the receive register.
	Reset()
	// Received returns the shifted bits (first bit in bit 0) and their count.
	Received() (uint32, int)
}

// XNORShifter is a serial receiver clocked by XNOR(latch, clock).
//
// A serial receive peripheral would sample on the wrong clock edge because the
// clock idles high. Deriving its clock from XNOR(latch, clock) yields a rising
// edge at the start of the latch pulse, at the end of the latch pulse and at
// every falling edge of the regular clock cycles: 17 edges, the first of which
// is a dummy cycle.
type XNORShifter struct {
	mu      sync.Mutex
	data    port.Input
	latch   port.Level
	clock   port.Level
	derived port.Level
	reg     uint32
	n       int
}

// NewXNORShifter returns a receiver shifting data.
func NewXNORShifter(data port.Input) *XNORShifter {
	s := &XNORShifter{
		data:  data,
		latch: waveform.LatchPulse.Idle,
		clock: waveform.ClockTrain.Idle,
	}
	s.derived = s.latch == s.clock
	return s
}

// Wrap returns latch and clock lines that feed the derived clock.
func (s *XNORShifter) Wrap(latch, clock port.Output) (port.Output, port.Output) {
	return &tap{Output: latch, set: func(l port.Level) { s.observe(&s.latch, l) }},
		&tap{Output: clock, set: func(l port.Level) { s.observe(&s.clock, l) }}
}

func (s *XNORShifter) observe(line *port.Level, l port.Level) {
	s.mu.Lock()
	defer s.mu.Unlock()

	*line = l
	derived := port.Level(s.latch == s.clock)
	if derived == port.High && s.derived == port.Low {
		if s.n < 32 && s.data.Read() == port.High {
			s.reg |= 1 << s.n
		}
		s.n++
	}
	s.derived = derived
}

func (s *XNORShifter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg, s.n = 0, 0
}

func (s *XNORShifter) Received() (uint32, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg, s.n
}

// tap drives the wrapped line first, then reports the level.
type tap struct {
	port.Output
	set func(port.Level)
}

func (t *tap) Write(l port.Level) {
	t.Output.Write(l)
	t.set(l)
}

// Peripheral captures frames with a ShiftReceiver. The generator must drive
// the lines the receiver is clocked by.
type Peripheral struct {
	gen       *waveform.Generator
	rx        ShiftReceiver
	misframed atomic.Uint64
}

// NewPeripheral returns a peripheral assisted sampling engine.
func NewPeripheral(gen *waveform.Generator, rx ShiftReceiver) *Peripheral {
	return &Peripheral{gen: gen, rx: rx}
}

// CaptureFrame emits latch and clock train and drops the dummy cycle of the 17 received bits.
// A capture with a different bit count is still returned, but counted and logged.
func (e *Peripheral) CaptureFrame() Frame {
	e.rx.Reset()
	e.gen.EmitLatch()
	e.gen.EmitClockTrain()

	raw, n := e.rx.Received()
	if n != FramedBits {
		e.misframed.Add(1)
		debug.DebugLog.Printf("peripheral received %d bits, want %d: check the derived clock", n, FramedBits)
	}
	return Frame(raw>>1) & ValidMask
}

// Misframed returns the count of captures without exactly FramedBits received bits.
func (e *Peripheral) Misframed() uint64 {
	return e.misframed.Load()
}
