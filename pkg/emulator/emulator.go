// Package emulator simulates the parallel-in serial-out shift register of a
// controller. It is attached to the lines of the sim backend and used in tests.
package emulator

import (
	"sync"

	"snesio/pkg/port"
)

// Released is the button word of a controller without pressed buttons
// (active low, only the 12 validated bits are set).
const Released uint16 = 0x0FFF

// Source returns the button word latched by the next latch pulse.
type Source func() uint16

// Controller is an emulated controller.
type Controller struct {
	mu      sync.Mutex
	buttons uint16
	source  Source
	latched bool
	clock   port.Level
	reg     uint16
	latches int
}

// New returns a controller without pressed buttons.
func New() *Controller {
	return &Controller{buttons: Released, clock: port.High}
}

// SetButtons sets the button word (bit 0 is shifted out first, low = pressed).
func (c *Controller) SetButtons(v uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buttons = v
}

// SetSource replaces the button word by a generator called on every latch.
func (c *Controller) SetSource(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = s
}

// Latches returns the count of received latch pulses.
func (c *Controller) Latches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latches
}

// Latch returns the latch input of the controller.
func (c *Controller) Latch() port.Output {
	return lineFunc(c.latch)
}

// Clock returns the clock input of the controller.
func (c *Controller) Clock() port.Output {
	return lineFunc(c.shift)
}

// Data returns the serial data output of the controller.
func (c *Controller) Data() port.Input {
	return dataLine{c}
}

func (c *Controller) latch(l port.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l == port.High && !c.latched {
		c.latches++
		if c.source != nil {
			c.buttons = c.source()
		}
	}

	c.latched = bool(l)
	if c.latched {
		c.reg = c.buttons
	}
}

func (c *Controller) shift(l port.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// the register shifts on the rising edge, a high latch holds the parallel load
	if l == port.High && c.clock == port.Low && !c.latched {
		c.reg >>= 1
	}
	c.clock = l
}

func (c *Controller) data() port.Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg&1 == 1
}

type lineFunc func(port.Level)

func (f lineFunc) Write(l port.Level) { f(l) }
func (f lineFunc) Close() error       { return nil }

type dataLine struct{ c *Controller }

func (d dataLine) Read() port.Level { return d.c.data() }
func (d dataLine) Close() error     { return nil }
