package console

import (
	"bytes"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		state uint16
		want  string
	}{
		{0xFFFF, "111111111111"},
		{0x0FFF, "111111111111"},
		{0x0000, "000000000000"},
		{0x0FFE, "011111111111"},
		{0x07FF, "111111111110"},
	}

	for _, tc := range tests {
		if got := Format(tc.state); got != tc.want {
			t.Errorf("Format(%#04x) = %q, want %q", tc.state, got, tc.want)
		}
	}
}

func TestDump(t *testing.T) {
	var b bytes.Buffer
	if err := Dump(&b, 2, 0x0FFE); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "2:011111111111\r\n"; got != want {
		t.Errorf("Dump() wrote %q, want %q", got, want)
	}
}
