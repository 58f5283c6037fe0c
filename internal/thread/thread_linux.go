//go:build linux

package thread

import "golang.org/x/sys/unix"

// ID returns the kernel id of the calling thread.
func ID() int {
	return unix.Gettid()
}

// Pin restricts the calling thread to the given logical CPU.
func Pin(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
