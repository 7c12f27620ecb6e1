package raspberry

import (
	"fmt"

	"github.com/womat/debug"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"snesio/pkg/port"
)

// PeriphChip uses the pins registered by the periph.io host drivers.
type PeriphChip struct {
	registry
}

func openPeriph() (Chip, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return &PeriphChip{}, nil
}

// Close is a no-op, periph drivers stay loaded for the lifetime of the process.
func (c *PeriphChip) Close() error {
	return nil
}

func (c *PeriphChip) pin(p int) (gpio.PinIO, error) {
	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", p))
	if pin == nil {
		return nil, fmt.Errorf("%w: pin %v", ErrInvalidParam, p)
	}
	if err := c.claim(p); err != nil {
		return nil, err
	}
	return pin, nil
}

func (c *PeriphChip) Input(p int, pull port.Pull) (port.Input, error) {
	pin, err := c.pin(p)
	if err != nil {
		return nil, err
	}

	bias := gpio.Float
	switch pull {
	case port.PullUp:
		bias = gpio.PullUp
	case port.PullDown:
		bias = gpio.PullDown
	}

	if err = pin.In(bias, gpio.NoEdge); err != nil {
		c.release(p)
		return nil, err
	}
	return &input{Input: periphPin{pin}, release: func() { c.release(p) }}, nil
}

func (c *PeriphChip) Output(p int, idle port.Level) (port.Output, error) {
	pin, err := c.pin(p)
	if err != nil {
		return nil, err
	}

	if err = pin.Out(gpio.Level(idle)); err != nil {
		c.release(p)
		return nil, err
	}
	return &output{Output: periphPin{pin}, release: func() { c.release(p) }}, nil
}

type periphPin struct {
	pin gpio.PinIO
}

func (p periphPin) Read() port.Level {
	return port.Level(p.pin.Read())
}

func (p periphPin) Write(l port.Level) {
	if err := p.pin.Out(gpio.Level(l)); err != nil {
		debug.ErrorLog.Printf("can't set %v: %v", p.pin, err)
	}
}

// Close returns the pin to a floating input.
func (p periphPin) Close() error {
	return p.pin.In(gpio.Float, gpio.NoEdge)
}
