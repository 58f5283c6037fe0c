//go:build !linux

package thread

// ID returns -1, since thread ids are not available on this platform.
func ID() int {
	return -1
}

// Pin always fails with ErrUnsupported.
func Pin(int) error {
	return ErrUnsupported
}
