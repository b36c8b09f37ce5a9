package bridge

import (
	"errors"
	"fmt"
)

// ErrNotRunning is returned by Run when Start has not succeeded.
var ErrNotRunning = errors.New("session is not running")

// StartupError means the serial channel could not be opened or configured.
// It is fatal: the bridge exits without doing any further work.
type StartupError struct {
	Device string
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup %s: %v", e.Device, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

// TransportError is a read or write failure on either stream after startup.
// It ends the session.
type TransportError struct {
	Stream string // "host" or "serial"
	Op     string // "read", "write", "poll", "drain"
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stream, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
