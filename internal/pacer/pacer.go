// Package pacer writes command lines to a receiver that has no input
// buffering and no flow control. Bytes go out one at a time with a fixed gap
// after each, and whatever the receiver sends back in the meantime is pulled
// in between writes so nothing is dropped on the floor.
package pacer

import (
	"fmt"
	"io"
	"time"
)

// Terminator is appended to every transmitted line.
const Terminator = '\n'

// Timing holds the inter-byte gaps.
type Timing struct {
	CharDelay time.Duration // after every byte that is not a line terminator
	LineDelay time.Duration // after '\r' or '\n'
}

// Drainer is implemented by writers that can wait for their output queue to
// reach the wire.
type Drainer interface {
	Drain() error
}

// Transmitter paces lines onto w.
type Transmitter struct {
	w      io.Writer
	drain  func() error
	timing Timing
	sleep  func(time.Duration)
	one    [1]byte
}

// New returns a Transmitter. drain is called after every byte to collect
// inbound data; sleep defaults to time.Sleep when nil.
func New(w io.Writer, drain func() error, timing Timing, sleep func(time.Duration)) *Transmitter {
	if sleep == nil {
		sleep = time.Sleep
	}
	if drain == nil {
		drain = func() error { return nil }
	}
	return &Transmitter{w: w, drain: drain, timing: timing, sleep: sleep}
}

// Send writes payload followed by a single terminator, one byte at a time.
// It returns the number of bytes written, terminator included.
func (t *Transmitter) Send(payload []byte) (int, error) {
	written := 0
	for i := 0; i <= len(payload); i++ {
		b := byte(Terminator)
		if i < len(payload) {
			b = payload[i]
		}
		t.one[0] = b
		if _, err := t.w.Write(t.one[:]); err != nil {
			return written, fmt.Errorf("write byte %d: %w", written, err)
		}
		written++

		if b == '\r' || b == '\n' {
			t.sleep(t.timing.LineDelay)
		} else {
			t.sleep(t.timing.CharDelay)
		}

		if err := t.drain(); err != nil {
			return written, fmt.Errorf("drain inbound: %w", err)
		}
	}
	if d, ok := t.w.(Drainer); ok {
		if err := d.Drain(); err != nil {
			return written, fmt.Errorf("flush output: %w", err)
		}
	}
	return written, nil
}
