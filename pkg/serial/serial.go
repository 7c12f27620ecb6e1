// Package serial opens the byte serial ports used by the diagnostic console
// and by the pass-through transmitter.
package serial

import (
	"errors"
	"fmt"
	"io"

	"github.com/tarm/serial"
)

var ErrNoDevice = errors.New("no serial device configured")

// DefaultBaud is the baud rate of the diagnostic console.
const DefaultBaud = 57600

// Port is a write only byte serial port.
type Port interface {
	io.WriteCloser
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyAMA0", "/dev/ttyUSB0")
	Device string
	// Baud rate, DefaultBaud if 0
	Baud int
}

// config returns the tarm configuration of c.
func (c Config) config() (*serial.Config, error) {
	if c.Device == "" {
		return nil, ErrNoDevice
	}

	baud := c.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	return &serial.Config{Name: c.Device, Baud: baud}, nil
}

// Open opens the serial port described by cfg.
func Open(cfg Config) (Port, error) {
	c, err := cfg.config()
	if err != nil {
		return nil, err
	}

	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return p, nil
}
