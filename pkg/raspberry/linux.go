//go:build linux

package raspberry

import (
	"fmt"

	"github.com/warthog618/gpio"
	"github.com/warthog618/gpiod"
	"github.com/womat/debug"

	"snesio/pkg/port"
)

// maxMemPin is the highest BCM GPIO number of the memory mapped range.
const maxMemPin = 53

// MemChip drives the pins through the memory mapped /dev/gpiomem.
type MemChip struct {
	registry
}

// openGPIOMem opens the GPIO memory range from /dev/gpiomem.
func openGPIOMem() (Chip, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}
	return &MemChip{}, nil
}

// Close unmaps GPIO memory.
func (c *MemChip) Close() error {
	return gpio.Close()
}

// Input sets the pin as input. The pin number provided is the BCM GPIO number.
func (c *MemChip) Input(p int, pull port.Pull) (port.Input, error) {
	if err := c.claimMem(p); err != nil {
		return nil, err
	}

	pin := gpio.NewPin(p)
	pin.Input()
	switch pull {
	case port.PullUp:
		pin.PullUp()
	case port.PullDown:
		pin.PullDown()
	default:
		pin.PullNone()
	}

	return &input{Input: memPin{pin}, release: func() { c.release(p) }}, nil
}

// Output sets the pin as output and drives it to idle.
func (c *MemChip) Output(p int, idle port.Level) (port.Output, error) {
	if err := c.claimMem(p); err != nil {
		return nil, err
	}

	pin := gpio.NewPin(p)
	pin.Write(gpio.Level(idle))
	pin.Output()

	return &output{Output: memPin{pin}, release: func() { c.release(p) }}, nil
}

func (c *MemChip) claimMem(p int) error {
	if p > maxMemPin {
		return fmt.Errorf("%w: pin %v", ErrInvalidParam, p)
	}
	return c.claim(p)
}

type memPin struct {
	pin *gpio.Pin
}

func (m memPin) Read() port.Level   { return port.Level(m.pin.Read()) }
func (m memPin) Write(l port.Level) { m.pin.Write(gpio.Level(l)) }

// Close returns the pin to input mode.
func (m memPin) Close() error {
	m.pin.Input()
	return nil
}

// CdevChip represents the GPIO character device that controls a set of lines.
type CdevChip struct {
	registry
	chip *gpiod.Chip
}

// openGPIOD opens the GPIO character device gpiochip0.
func openGPIOD() (Chip, error) {
	c, err := gpiod.NewChip("gpiochip0", gpiod.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}
	return &CdevChip{chip: c}, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *CdevChip) Close() error {
	return c.chip.Close()
}

// Input requests control of a single line as input.
// If granted, control is maintained until the line is closed.
func (c *CdevChip) Input(p int, pull port.Pull) (port.Input, error) {
	if err := c.claim(p); err != nil {
		return nil, err
	}

	var l *gpiod.Line
	var err error
	switch pull {
	case port.PullUp:
		l, err = c.chip.RequestLine(p, gpiod.AsInput, gpiod.WithPullUp)
	case port.PullDown:
		l, err = c.chip.RequestLine(p, gpiod.AsInput, gpiod.WithPullDown)
	default:
		l, err = c.chip.RequestLine(p, gpiod.AsInput)
	}
	if err != nil {
		c.release(p)
		return nil, err
	}

	return &input{Input: cdevLine{l}, release: func() { c.release(p) }}, nil
}

// Output requests control of a single line as output.
func (c *CdevChip) Output(p int, idle port.Level) (port.Output, error) {
	if err := c.claim(p); err != nil {
		return nil, err
	}

	l, err := c.chip.RequestLine(p, gpiod.AsOutput(value(idle)))
	if err != nil {
		c.release(p)
		return nil, err
	}

	return &output{Output: cdevLine{l}, release: func() { c.release(p) }}, nil
}

type cdevLine struct {
	line *gpiod.Line
}

// Read returns the line value, a failed read is reported as high (idle data line).
func (c cdevLine) Read() port.Level {
	v, err := c.line.Value()
	if err != nil {
		debug.ErrorLog.Printf("can't read line %v: %v", c.line.Offset(), err)
		return port.High
	}
	return v == 1
}

func (c cdevLine) Write(l port.Level) {
	if err := c.line.SetValue(value(l)); err != nil {
		debug.ErrorLog.Printf("can't set line %v: %v", c.line.Offset(), err)
	}
}

func (c cdevLine) Close() error {
	return c.line.Close()
}

func value(l port.Level) int {
	if l {
		return 1
	}
	return 0
}
