// Package snes maps the validated bits of a controller frame to buttons.
package snes

// Button represents a button on the controller.
type Button struct {
	Name string
	bit  uint8
}

// Button definitions in shift order.
var (
	ButtonB      = Button{"B", 0}
	ButtonY      = Button{"Y", 1}
	ButtonSelect = Button{"Select", 2}
	ButtonStart  = Button{"Start", 3}
	ButtonUp     = Button{"Up", 4}
	ButtonDown   = Button{"Down", 5}
	ButtonLeft   = Button{"Left", 6}
	ButtonRight  = Button{"Right", 7}
	ButtonA      = Button{"A", 8}
	ButtonX      = Button{"X", 9}
	ButtonL      = Button{"L", 10}
	ButtonR      = Button{"R", 11}
)

// Buttons lists all buttons in shift order.
var Buttons = []Button{
	ButtonB, ButtonY, ButtonSelect, ButtonStart,
	ButtonUp, ButtonDown, ButtonLeft, ButtonRight,
	ButtonA, ButtonX, ButtonL, ButtonR,
}

// Mask returns the bit of the button in a frame.
func (b Button) Mask() uint16 {
	return 1 << b.bit
}

// IsDown returns true if the button is pressed in state.
// Note: Buttons are active LOW (0 = pressed, 1 = released).
func IsDown(state uint16, b Button) bool {
	return state&b.Mask() == 0
}

// Pressed returns the names of the pressed buttons.
func Pressed(state uint16) []string {
	p := []string{}
	for _, b := range Buttons {
		if IsDown(state, b) {
			p = append(p, b.Name)
		}
	}
	return p
}

// Changed returns the buttons whose state differs between prev and cur.
func Changed(prev, cur uint16) []Button {
	var c []Button
	for _, b := range Buttons {
		if (prev^cur)&b.Mask() != 0 {
			c = append(c, b)
		}
	}
	return c
}
