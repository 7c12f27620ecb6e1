//go:build !linux

package raspberry

// openGPIOMem is only available on linux.
func openGPIOMem() (Chip, error) {
	return nil, ErrUnsupported
}

// openGPIOD is only available on linux.
func openGPIOD() (Chip, error) {
	return nil, ErrUnsupported
}
