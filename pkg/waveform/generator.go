package waveform

import (
	"sort"
	"time"

	"snesio/pkg/port"
	"snesio/pkg/timing"
)

// Action is a function executed at an offset from the start of a Timeline.
type Action struct {
	At time.Duration
	Do func()
}

// Timeline is a sequence of actions ordered by offset.
type Timeline []Action

// Merge combines timelines into one ordered timeline.
// Actions with the same offset keep the order of the arguments.
func Merge(timelines ...Timeline) Timeline {
	var m Timeline
	for _, t := range timelines {
		m = append(m, t...)
	}

	sort.SliceStable(m, func(i, j int) bool { return m[i].At < m[j].At })
	return m
}

// Duration returns the offset of the last action.
func (t Timeline) Duration() time.Duration {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].At
}

// Run executes the actions in order. Each action waits for its absolute
// deadline (start + offset), so the delay of one action doesn't shift the
// following ones.
func (t Timeline) Run(clk timing.Clock) {
	start := clk.Now()
	for _, a := range t {
		clk.WaitUntil(start + a.At)
		a.Do()
	}
}

// Play returns the timeline that emits spec on out.
func Play(spec Spec, out port.Output) Timeline {
	tr := spec.Transitions()
	t := make(Timeline, 0, len(tr))
	for _, x := range tr {
		level := x.Level
		t = append(t, Action{At: x.At, Do: func() { out.Write(level) }})
	}

	// the last segment ends at the spec duration even if it doesn't change the level
	if d := spec.Duration(); len(t) == 0 || t[len(t)-1].At < d {
		t = append(t, Action{At: d, Do: func() {}})
	}
	return t
}

// Generator drives the latch and clock lines of one controller port.
//
// EmitLatch arms the latch pulse and EmitClockTrain starts both waveforms
// together, so the leading clock pulse overlaps the latch pulse as the
// protocol requires. The clock falls LeadWidth after the latch rises.
type Generator struct {
	latch port.Output
	clock port.Output
	clk   timing.Clock

	latchTimeline Timeline
	clockTimeline Timeline
	attached      Timeline

	// cycle is latch, clock and attached actions, train is clock and attached actions
	cycle Timeline
	train Timeline
	armed bool
}

// NewGenerator sets both lines to their idle levels and prepares the timelines.
func NewGenerator(latch, clock port.Output, clk timing.Clock) *Generator {
	latch.Write(LatchPulse.Idle)
	clock.Write(ClockTrain.Idle)

	g := &Generator{
		latch:         latch,
		clock:         clock,
		clk:           clk,
		latchTimeline: Play(LatchPulse, latch),
		clockTimeline: Play(ClockTrain, clock),
	}
	g.build()
	return g
}

// Attach adds actions to every emission, e.g. the sample points of the data
// line. Offsets are relative to the start of the clock train. Actions at the
// same offset as an edge run after the edge.
func (g *Generator) Attach(t Timeline) {
	g.attached = t
	g.build()
}

func (g *Generator) build() {
	g.cycle = Merge(g.latchTimeline, g.clockTimeline, g.attached)
	g.train = Merge(g.clockTimeline, g.attached)
}

// EmitLatch arms LatchPulse. It doesn't block: the pulse starts with the next
// EmitClockTrain, on the same time base as the clock train.
func (g *Generator) EmitLatch() {
	g.armed = true
}

// EmitClockTrain emits ClockTrain once, together with an armed latch pulse and
// the attached actions. It returns after the train is complete.
func (g *Generator) EmitClockTrain() {
	t := g.train
	if g.armed {
		t = g.cycle
		g.armed = false
	}
	t.Run(g.clk)
}
