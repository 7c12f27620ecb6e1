// Package console formats the committed controller state for the diagnostic console.
package console

import (
	"fmt"
	"io"
	"strings"

	"snesio/pkg/sampler"
)

// Format returns one character per validated bit in shift order:
// '1' for a high (released) and '0' for a low (pressed) bit.
func Format(state uint16) string {
	var b strings.Builder
	b.Grow(sampler.ValidBits)
	for i := 0; i < sampler.ValidBits; i++ {
		if state&(1<<i) != 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Dump writes the state of port as "<port>:<bits>\r\n".
func Dump(w io.Writer, port int, state uint16) error {
	_, err := fmt.Fprintf(w, "%d:%s\r\n", port, Format(state))
	return err
}
