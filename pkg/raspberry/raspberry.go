// Package raspberry provides the GPIO lines of the controller ports.
//
// A pin can be requested once per chip. Requesting a pin twice, e.g. two ports
// configured with the same latch pin, fails with ErrPinInUse.
package raspberry

import (
	"errors"
	"fmt"
	"sync"

	"snesio/pkg/port"
)

var (
	ErrInvalidParam  = fmt.Errorf("invalid parameters")
	ErrPinInUse      = errors.New("pin already used")
	ErrUnknownDriver = errors.New("unknown gpio driver")
	ErrUnsupported   = errors.New("gpio driver not supported on this platform")
)

// Names of the gpio drivers.
const (
	// DriverGPIOMem maps /dev/gpiomem, the only driver fast enough for bit-banging.
	DriverGPIOMem = "gpiomem"
	// DriverGPIOD uses the GPIO character device.
	DriverGPIOD = "gpiod"
	// DriverPeriph uses periph.io host drivers.
	DriverPeriph = "periph"
	// DriverSim emulates lines and controllers in memory.
	DriverSim = "sim"
)

// consumer is the label of requested lines.
const consumer = "snesio"

// Chip represents a set of GPIO lines.
type Chip interface {
	// Input requests pin as input line with the given bias.
	Input(pin int, pull port.Pull) (port.Input, error)
	// Output requests pin as output line and drives it to idle.
	Output(pin int, idle port.Level) (port.Output, error)
	// Close releases the chip. Lines must be closed independently.
	Close() error
}

// Open opens the chip of the given driver.
func Open(driver string) (Chip, error) {
	switch driver {
	case DriverGPIOMem, "":
		return openGPIOMem()
	case DriverGPIOD:
		return openGPIOD()
	case DriverPeriph:
		return openPeriph()
	case DriverSim:
		return NewSim(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// registry keeps track of the requested pins of a chip.
type registry struct {
	mu   sync.Mutex
	pins map[int]bool
}

func (r *registry) claim(p int) error {
	if p < 0 {
		return fmt.Errorf("%w: pin %v", ErrInvalidParam, p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pins == nil {
		r.pins = map[int]bool{}
	}
	if r.pins[p] {
		return fmt.Errorf("%w: pin %v", ErrPinInUse, p)
	}
	r.pins[p] = true
	return nil
}

func (r *registry) release(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pins, p)
}

// input releases its pin on Close.
type input struct {
	port.Input
	release func()
	once    sync.Once
}

func (i *input) Close() (err error) {
	i.once.Do(func() {
		err = i.Input.Close()
		i.release()
	})
	return err
}

// output releases its pin on Close.
type output struct {
	port.Output
	release func()
	once    sync.Once
}

func (o *output) Close() (err error) {
	o.once.Do(func() {
		err = o.Output.Close()
		o.release()
	})
	return err
}
