package raspberry

import (
	"fmt"
	"sync"

	"snesio/pkg/emulator"
	"snesio/pkg/port"
)

// SimChip emulates lines in memory. Pins attached to an emulated controller
// are wired to its latch, clock and data lines; all other pins are plain
// memory lines.
type SimChip struct {
	registry

	mu    sync.Mutex
	wires map[int]wire
	ctrls map[int]*emulator.Controller
}

type role int

const (
	roleLatch role = iota
	roleClock
	roleData
)

type wire struct {
	ctrl *emulator.Controller
	role role
}

// NewSim returns an empty emulated chip.
func NewSim() *SimChip {
	return &SimChip{
		wires: map[int]wire{},
		ctrls: map[int]*emulator.Controller{},
	}
}

// Attach wires a new emulated controller to the given pins.
// The controller is identified by its data pin.
func (c *SimChip) Attach(latch, clock, data int) (*emulator.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range []int{latch, clock, data} {
		if _, ok := c.wires[p]; ok {
			return nil, fmt.Errorf("%w: pin %v already attached", ErrPinInUse, p)
		}
	}

	ctrl := emulator.New()
	c.wires[latch] = wire{ctrl, roleLatch}
	c.wires[clock] = wire{ctrl, roleClock}
	c.wires[data] = wire{ctrl, roleData}
	c.ctrls[data] = ctrl
	return ctrl, nil
}

// Controller returns the emulated controller attached to data pin p.
func (c *SimChip) Controller(p int) (*emulator.Controller, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctrl, ok := c.ctrls[p]
	return ctrl, ok
}

func (c *SimChip) Close() error {
	return nil
}

func (c *SimChip) Input(p int, pull port.Pull) (port.Input, error) {
	if err := c.claim(p); err != nil {
		return nil, err
	}

	c.mu.Lock()
	w, ok := c.wires[p]
	c.mu.Unlock()

	var in port.Input
	switch {
	case ok && w.role == roleData:
		in = w.ctrl.Data()
	case ok:
		c.release(p)
		return nil, fmt.Errorf("%w: pin %v is a controller input", ErrInvalidParam, p)
	default:
		in = &memLine{level: port.Level(pull == port.PullUp)}
	}

	return &input{Input: in, release: func() { c.release(p) }}, nil
}

func (c *SimChip) Output(p int, idle port.Level) (port.Output, error) {
	if err := c.claim(p); err != nil {
		return nil, err
	}

	c.mu.Lock()
	w, ok := c.wires[p]
	c.mu.Unlock()

	var out port.Output
	switch {
	case ok && w.role == roleLatch:
		out = w.ctrl.Latch()
	case ok && w.role == roleClock:
		out = w.ctrl.Clock()
	case ok:
		c.release(p)
		return nil, fmt.Errorf("%w: pin %v is a controller output", ErrInvalidParam, p)
	default:
		out = &memLine{}
	}

	out.Write(idle)
	return &output{Output: out, release: func() { c.release(p) }}, nil
}

// memLine is an unconnected line: it reads back what was written.
type memLine struct {
	mu    sync.Mutex
	level port.Level
}

func (m *memLine) Read() port.Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *memLine) Write(l port.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = l
}

func (m *memLine) Close() error { return nil }
