package sampler

import (
	"errors"
	"testing"

	"snesio/pkg/emulator"
	"snesio/pkg/port"
	"snesio/pkg/timing"
	"snesio/pkg/waveform"
)

// stuckLine is a data line that never changes.
type stuckLine port.Level

func (s stuckLine) Read() port.Level { return port.Level(s) }
func (s stuckLine) Close() error     { return nil }

func newEngine(t *testing.T, s Strategy, c *emulator.Controller, clk timing.Clock) Engine {
	t.Helper()

	e, err := New(s, c.Latch(), c.Clock(), c.Data(), clk)
	if err != nil {
		t.Fatalf("New(%s): %v", s, err)
	}
	return e
}

func TestCaptureFrame(t *testing.T) {
	tests := []struct {
		name    string
		buttons uint16
		want    Frame
	}{
		{"released", 0x0FFF, 0x0FFF},
		{"all pressed", 0x0000, 0x0000},
		{"B pressed", 0x0FFE, 0x0FFE},
		{"R pressed", 0x07FF, 0x07FF},
		{"alternating", 0x0A5A, 0x0A5A},
		{"reserved bits are not written", 0xFFFF, 0x0FFF},
		{"reserved bits with pressed buttons", 0xF0F0, 0x00F0},
	}

	for _, s := range []Strategy{StrategyBitBang, StrategyPeripheral} {
		for _, tc := range tests {
			c := emulator.New()
			e := newEngine(t, s, c, timing.NewVirtual())

			c.SetButtons(tc.buttons)
			if got := e.CaptureFrame(); got != tc.want {
				t.Errorf("%s/%s: CaptureFrame() = %v, want %v", s, tc.name, got, tc.want)
			}
			if c.Latches() != 1 {
				t.Errorf("%s/%s: %d latch pulses, want 1", s, tc.name, c.Latches())
			}
		}
	}
}

func TestCaptureFrameDuration(t *testing.T) {
	for _, s := range []Strategy{StrategyBitBang, StrategyPeripheral} {
		for _, level := range []port.Level{port.Low, port.High} {
			clk := timing.NewVirtual()
			c := emulator.New()

			var e Engine
			switch s {
			case StrategyBitBang:
				e = NewBitBang(newGenerator(c, clk), stuckLine(level))
			default:
				rx := NewXNORShifter(stuckLine(level))
				l, k := rx.Wrap(c.Latch(), c.Clock())
				e = NewPeripheral(newGeneratorOn(l, k, clk), rx)
			}

			for i := 0; i < 3; i++ {
				start := clk.Now()
				e.CaptureFrame()
				if d := clk.Now() - start; d != FrameDuration {
					t.Errorf("%s/%v: capture %d took %v, want %v", s, level, i, d, FrameDuration)
				}
			}
		}
	}
}

func TestXNORShifterFraming(t *testing.T) {
	c := emulator.New()
	c.SetButtons(0x0ABC)

	rx := NewXNORShifter(c.Data())
	l, k := rx.Wrap(c.Latch(), c.Clock())
	e := NewPeripheral(newGeneratorOn(l, k, timing.NewVirtual()), rx)

	if got := e.CaptureFrame(); got != 0x0ABC {
		t.Errorf("CaptureFrame() = %v, want 0x0abc", got)
	}

	raw, n := rx.Received()
	if n != FramedBits {
		t.Fatalf("received %d bits, want %d", n, FramedBits)
	}
	// the dummy cycle samples bit 0 while the latch is high
	if raw&1 != 0 {
		t.Errorf("dummy bit = %d, want bit 0 of 0x0abc (0)", raw&1)
	}
	if Frame(raw>>1)&ValidMask != 0x0ABC {
		t.Errorf("raw %#x is not the frame shifted by one cycle", raw)
	}
}

// timedLine records the writes to an output line.
type timedLine struct {
	port.Output
	clk    timing.Clock
	writes []waveform.Transition
}

func (l *timedLine) Write(v port.Level) {
	l.Output.Write(v)
	l.writes = append(l.writes, waveform.Transition{At: l.clk.Now(), Level: v})
}

func TestCaptureFramePhase(t *testing.T) {
	for _, s := range []Strategy{StrategyBitBang, StrategyPeripheral} {
		clk := timing.NewVirtual()
		c := emulator.New()
		c.SetButtons(0x0ABC)

		latch := &timedLine{Output: c.Latch(), clk: clk}
		clock := &timedLine{Output: c.Clock(), clk: clk}
		e, err := New(s, latch, clock, c.Data(), clk)
		if err != nil {
			t.Fatal(err)
		}
		latch.writes, clock.writes = nil, nil

		start := clk.Now()
		if got := e.CaptureFrame(); got != 0x0ABC {
			t.Errorf("%s: CaptureFrame() = %v, want 0x0abc", s, got)
		}
		if d := clk.Now() - start; d != FrameDuration {
			t.Errorf("%s: capture took %v, want %v", s, d, FrameDuration)
		}
		if len(latch.writes) == 0 || len(clock.writes) == 0 {
			t.Fatalf("%s: no edges emitted", s)
		}
		if d := clock.writes[0].At - latch.writes[0].At; d != waveform.LeadWidth {
			t.Errorf("%s: first clock fall %v after the latch rise, want %v", s, d, waveform.LeadWidth)
		}
	}
}

// shortReceiver is a receiver that misses the last clock edge.
type shortReceiver struct{ resets int }

func (r *shortReceiver) Reset()                  { r.resets++ }
func (r *shortReceiver) Received() (uint32, int) { return 0x1FFFE >> 1, FramedBits - 1 }

func TestPeripheralCountsMisframedCaptures(t *testing.T) {
	c := emulator.New()
	rx := &shortReceiver{}
	e := NewPeripheral(newGenerator(c, timing.NewVirtual()), rx)

	for i := 0; i < 2; i++ {
		e.CaptureFrame()
	}
	if got := e.Misframed(); got != 2 {
		t.Errorf("Misframed() = %d, want 2", got)
	}
	if rx.resets != 2 {
		t.Errorf("receiver reset %d times, want 2", rx.resets)
	}

	ok := NewXNORShifter(c.Data())
	l, k := ok.Wrap(c.Latch(), c.Clock())
	good := NewPeripheral(newGeneratorOn(l, k, timing.NewVirtual()), ok)
	good.CaptureFrame()
	if got := good.Misframed(); got != 0 {
		t.Errorf("Misframed() of a correctly clocked receiver = %d, want 0", got)
	}

	var _ FramingCounter = good
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
		err  error
	}{
		{"", StrategyBitBang, nil},
		{"bitbang", StrategyBitBang, nil},
		{"peripheral", StrategyPeripheral, nil},
		{"spi", "", ErrInvalidStrategy},
	}

	for _, tc := range tests {
		got, err := ParseStrategy(tc.in)
		if !errors.Is(err, tc.err) || got != tc.want {
			t.Errorf("ParseStrategy(%q) = %q, %v, want %q, %v", tc.in, got, err, tc.want, tc.err)
		}
	}
}

func newGenerator(c *emulator.Controller, clk timing.Clock) *waveform.Generator {
	return newGeneratorOn(c.Latch(), c.Clock(), clk)
}

func newGeneratorOn(latch, clock port.Output, clk timing.Clock) *waveform.Generator {
	return waveform.NewGenerator(latch, clock, clk)
}
