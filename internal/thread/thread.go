// Package thread exposes the identity of the calling OS thread and pins it
// to a CPU. Callers must hold the thread with runtime.LockOSThread for the
// results to stay meaningful.
package thread

import "errors"

// ErrUnsupported is returned by Pin on platforms without thread affinity.
var ErrUnsupported = errors.New("thread affinity not supported on this platform")
