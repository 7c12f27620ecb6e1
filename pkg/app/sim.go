package app

import (
	"errors"
	"fmt"

	"snesio/pkg/emulator"
	"snesio/pkg/pipeline"

	"github.com/womat/debug"
)

var ErrNoEmulator = errors.New("gpio driver isn't emulated")

// attachEmulators wires an emulated controller to the pins of each configured port.
// It's only used with the sim gpio driver.
func (app *App) attachEmulators() error {
	for _, id := range app.portIDs() {
		c := app.config.Ports[id]
		if _, err := app.sim.Attach(c.Latch, c.Clock, c.Data); err != nil {
			return fmt.Errorf("port %d: %w", id, err)
		}
		debug.DebugLog.Printf("port %d: emulated controller on latch %d, clock %d, data %d", id, c.Latch, c.Clock, c.Data)
	}
	return nil
}

// controller returns the emulated controller of port id.
func (app *App) controller(id int) (*emulator.Controller, error) {
	if app.sim == nil {
		return nil, ErrNoEmulator
	}

	c, ok := app.config.Ports[id]
	if !ok {
		return nil, fmt.Errorf("port %d: %w", id, pipeline.ErrUnknownPort)
	}

	ctrl, ok := app.sim.Controller(c.Data)
	if !ok {
		return nil, fmt.Errorf("port %d: %w", id, ErrNoEmulator)
	}
	return ctrl, nil
}
