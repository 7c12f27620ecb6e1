// Package pipeline runs one controller port: capture a frame, filter it,
// commit it and optionally re-transmit it, in a loop until stopped.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/womat/debug"

	"snesio/pkg/consensus"
	"snesio/pkg/encoder"
	"snesio/pkg/port"
	"snesio/pkg/sampler"
	"snesio/pkg/state"
	"snesio/pkg/timing"
	"snesio/pkg/waveform"
)

var (
	ErrInvalidCadence = errors.New("invalid latch cadence")
	ErrNoTransmitter  = errors.New("pass-through enabled without transmitter")
	ErrStopped        = errors.New("pipeline stopped")
)

// DefaultInterval is the delay between two captures (60Hz).
const DefaultInterval = 16 * time.Millisecond

// Cadence defines what starts a capture.
type Cadence string

const (
	// CadenceAuto captures every Interval.
	CadenceAuto Cadence = "auto"
	// CadenceManual captures on Trigger.
	CadenceManual Cadence = "manual"
)

// ParseCadence converts a config string to a Cadence.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case "", CadenceAuto:
		return CadenceAuto, nil
	case CadenceManual:
		return CadenceManual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCadence, s)
	}
}

// Hardware provides the lines of a port.
type Hardware interface {
	Input(pin int, pull port.Pull) (port.Input, error)
	Output(pin int, idle port.Level) (port.Output, error)
}

// Config is the configuration of one port.
type Config struct {
	LatchPin int
	ClockPin int
	DataPin  int
	Pull     port.Pull

	Cadence  Cadence
	Interval time.Duration
	Strategy sampler.Strategy

	// PassThrough re-encodes every committed state to Transmitter.
	PassThrough bool
	Transmitter encoder.Transmitter

	// Timer is the time base of the waveforms, a Spin clock if nil.
	Timer timing.Clock
}

// Status is the lifecycle state of a pipeline.
type Status int32

const (
	Stopped Status = iota
	Running
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// Pipeline is one controller port.
type Pipeline struct {
	id     int
	cfg    Config
	store  *state.Store
	engine sampler.Engine
	filter *consensus.Filter
	queue  *encoder.Queue
	lines  []io.Closer

	status  atomic.Int32
	cycles  atomic.Uint64
	trigger chan struct{}
	quit    chan struct{}
	done    chan struct{}
	stop    sync.Once
}

// New acquires the lines of the port and builds the pipeline. Any failure is
// fatal: lines acquired so far are released and an error is returned.
func New(id int, hw Hardware, cfg Config, store *state.Store) (p *Pipeline, err error) {
	if cfg.Cadence, err = ParseCadence(string(cfg.Cadence)); err != nil {
		return nil, err
	}
	if cfg.Strategy, err = sampler.ParseStrategy(string(cfg.Strategy)); err != nil {
		return nil, err
	}
	if cfg.PassThrough && cfg.Transmitter == nil {
		return nil, ErrNoTransmitter
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timer == nil {
		cfg.Timer = timing.NewSpin()
	}
	if store == nil {
		store = state.New()
	}

	p = &Pipeline{
		id:      id,
		cfg:     cfg,
		store:   store,
		filter:  consensus.New(store),
		trigger: make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	defer func() {
		if err != nil {
			p.release()
			p = nil
		}
	}()

	latch, err := hw.Output(cfg.LatchPin, waveform.LatchPulse.Idle)
	if err != nil {
		return p, fmt.Errorf("port %d latch pin %d: %w", id, cfg.LatchPin, err)
	}
	p.lines = append(p.lines, latch)

	clock, err := hw.Output(cfg.ClockPin, waveform.ClockTrain.Idle)
	if err != nil {
		return p, fmt.Errorf("port %d clock pin %d: %w", id, cfg.ClockPin, err)
	}
	p.lines = append(p.lines, clock)

	data, err := hw.Input(cfg.DataPin, cfg.Pull)
	if err != nil {
		return p, fmt.Errorf("port %d data pin %d: %w", id, cfg.DataPin, err)
	}
	p.lines = append(p.lines, data)

	if p.engine, err = sampler.New(cfg.Strategy, latch, clock, data, cfg.Timer); err != nil {
		return p, err
	}

	if cfg.PassThrough {
		p.queue = encoder.NewQueue(cfg.Transmitter)
	}
	return p, nil
}

// Start starts the capture loop.
func (p *Pipeline) Start() {
	p.status.Store(int32(Running))
	debug.InfoLog.Printf("port %d: started (%s, %s cadence, every %v)", p.id, p.cfg.Strategy, p.cfg.Cadence, p.cfg.Interval)
	go p.run()
}

// Stop requests the loop to exit after the current iteration, waits for it and
// releases the lines. The committed state stays readable.
func (p *Pipeline) Stop() error {
	var err error
	p.stop.Do(func() {
		close(p.quit)
		if Status(p.status.Load()) == Running {
			<-p.done
		}
		err = p.release()
		p.status.Store(int32(Stopped))
		debug.InfoLog.Printf("port %d: stopped after %d cycles", p.id, p.cycles.Load())
	})
	return err
}

// Trigger requests a capture of a manual cadence pipeline. It never blocks.
func (p *Pipeline) Trigger() error {
	if Status(p.status.Load()) != Running {
		return ErrStopped
	}

	select {
	case p.trigger <- struct{}{}:
	default:
	}
	return nil
}

// State returns the committed controller state.
func (p *Pipeline) State() uint16 {
	return p.store.Load()
}

// Status returns the lifecycle state.
func (p *Pipeline) Status() Status {
	return Status(p.status.Load())
}

// Info is a snapshot of the counters of a pipeline.
type Info struct {
	ID         int
	Status     string
	State      uint16
	Updated    time.Time
	Cycles     uint64
	Commits    uint64
	Rejections uint64
	Misframed  uint64
	Sent       uint64
	Dropped    uint64
}

// Info returns a snapshot of the pipeline.
func (p *Pipeline) Info() Info {
	st := p.filter.Stats()
	i := Info{
		ID:         p.id,
		Status:     p.Status().String(),
		State:      p.store.Load(),
		Updated:    p.store.Updated(),
		Cycles:     p.cycles.Load(),
		Commits:    st.Commits,
		Rejections: st.Rejections,
	}
	if fc, ok := p.engine.(sampler.FramingCounter); ok {
		i.Misframed = fc.Misframed()
	}
	if p.queue != nil {
		i.Sent, i.Dropped = p.queue.Sent(), p.queue.Dropped()
	}
	return i
}

func (p *Pipeline) run() {
	defer close(p.done)

	// the capture timing must not migrate between threads
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t := time.NewTimer(p.cfg.Interval)
	if !t.Stop() {
		<-t.C
	}

	for {
		if p.cfg.Cadence == CadenceManual {
			select {
			case <-p.quit:
				return
			case <-p.trigger:
			}
		}

		p.cycle()

		if p.cfg.Cadence == CadenceManual {
			continue
		}

		t.Reset(p.cfg.Interval)
		select {
		case <-p.quit:
			return
		case <-t.C:
		}
	}
}

// cycle captures a frame, offers it to the filter and queues the committed state.
func (p *Pipeline) cycle() {
	f := p.engine.CaptureFrame()
	if p.filter.TryCommit(f) {
		debug.TraceLog.Printf("port %d: committed %v", p.id, f)
	}

	if p.queue != nil {
		p.queue.Offer(encoder.Encode(p.store.Load()))
	}
	p.cycles.Add(1)
}

func (p *Pipeline) release() error {
	var errs []error
	if p.queue != nil {
		errs = append(errs, p.queue.Close())
	}
	for i := len(p.lines) - 1; i >= 0; i-- {
		errs = append(errs, p.lines[i].Close())
	}
	p.lines = nil
	return errors.Join(errs...)
}
