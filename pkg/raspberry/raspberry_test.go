package raspberry

import (
	"errors"
	"testing"

	"snesio/pkg/port"
)

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("spidev"); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Open(spidev) error = %v, want %v", err, ErrUnknownDriver)
	}
}

func TestPinInUse(t *testing.T) {
	c, err := Open(DriverSim)
	if err != nil {
		t.Fatal(err)
	}

	out, err := c.Output(26, port.Low)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = c.Input(26, port.PullUp); !errors.Is(err, ErrPinInUse) {
		t.Errorf("second request of pin 26: error = %v, want %v", err, ErrPinInUse)
	}

	// closing the line releases the pin
	if err = out.Close(); err != nil {
		t.Fatal(err)
	}
	if err = out.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err = c.Input(26, port.PullUp); err != nil {
		t.Errorf("request after close: %v", err)
	}

	if _, err = c.Output(-1, port.Low); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("request of pin -1: error = %v, want %v", err, ErrInvalidParam)
	}
}

func TestSimAttach(t *testing.T) {
	c := NewSim()
	ctrl, err := c.Attach(26, 25, 27)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = c.Attach(5, 6, 27); !errors.Is(err, ErrPinInUse) {
		t.Errorf("second attach on pin 27: error = %v, want %v", err, ErrPinInUse)
	}

	got, ok := c.Controller(27)
	if !ok || got != ctrl {
		t.Fatal("Controller(27) doesn't return the attached controller")
	}

	latch, err := c.Output(26, port.Low)
	if err != nil {
		t.Fatal(err)
	}
	data, err := c.Input(27, port.PullUp)
	if err != nil {
		t.Fatal(err)
	}

	ctrl.SetButtons(0x0FFE)
	latch.Write(port.High)
	if data.Read() != port.Low {
		t.Error("data line doesn't show bit 0 of the latched buttons")
	}
	if ctrl.Latches() != 1 {
		t.Errorf("Latches() = %d, want 1", ctrl.Latches())
	}

	if _, err = c.Input(25, port.PullUp); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("clock pin as input: error = %v, want %v", err, ErrInvalidParam)
	}
}

func TestSimMemoryLine(t *testing.T) {
	c := NewSim()

	in, err := c.Input(4, port.PullUp)
	if err != nil {
		t.Fatal(err)
	}
	if in.Read() != port.High {
		t.Error("unconnected pull-up input reads low")
	}

	out, err := c.Output(5, port.High)
	if err != nil {
		t.Fatal(err)
	}
	out.Write(port.Low)
}
