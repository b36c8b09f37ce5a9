// Package line turns raw byte chunks into logical text lines and back.
//
// A Framer treats "\r\n", a bare "\r" and a bare "\n" as one terminator each,
// drops empty lines, and keeps an unterminated tail until more bytes arrive.
// Text is Latin-1 on the wire, so decoding never fails.
package line

import (
	"bytes"
	"iter"
)

// Framer accumulates bytes and extracts complete logical lines from the front.
// The zero value is ready to use. A Framer is not safe for concurrent use.
type Framer struct {
	buf []byte
}

// Feed appends a chunk of raw bytes.
func (f *Framer) Feed(p []byte) {
	f.buf = append(f.buf, p...)
}

// Buffered returns the number of bytes not yet consumed as lines.
func (f *Framer) Buffered() int { return len(f.buf) }

// Next extracts the next non-empty line. It returns false when the buffer
// holds no complete line.
func (f *Framer) Next() (string, bool) {
	for {
		idx := bytes.IndexAny(f.buf, "\r\n")
		if idx < 0 {
			return "", false
		}
		end := idx + 1
		if end < len(f.buf) && isComplement(f.buf[idx], f.buf[end]) {
			end++
		}
		raw := f.buf[:idx]
		line := Decode(raw)
		f.consume(end)
		if line != "" {
			return line, true
		}
	}
}

// Lines returns a lazy sequence over the complete lines currently buffered.
// Stopping the iteration early leaves the remaining lines in the buffer.
func (f *Framer) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			line, ok := f.Next()
			if !ok || !yield(line) {
				return
			}
		}
	}
}

// Flush returns the unterminated tail, if any, and empties the buffer.
func (f *Framer) Flush() (string, bool) {
	tail := Decode(f.buf)
	f.buf = f.buf[:0]
	return tail, tail != ""
}

// Reset discards everything buffered.
func (f *Framer) Reset() { f.buf = f.buf[:0] }

func (f *Framer) consume(n int) {
	rest := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
}

func isComplement(a, b byte) bool {
	return (a == '\r' && b == '\n') || (a == '\n' && b == '\r')
}

// Split frames a complete string at once, dropping empty lines.
// A trailing unterminated line is included.
func Split(s string) []string {
	var f Framer
	f.Feed([]byte(s))
	var out []string
	for l := range f.Lines() {
		out = append(out, l)
	}
	if tail, ok := f.Flush(); ok {
		out = append(out, tail)
	}
	return out
}
