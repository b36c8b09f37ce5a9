// Package echo separates the device's echo of transmitted lines from the
// output it genuinely produces.
//
// Every transmitted line is queued as a pending echo. Inbound lines are
// matched against the queue oldest first: an exact match is an echo, a prefix
// or suffix match in either direction is a corrupted echo, and anything else
// is real output. At most one pending entry is consumed per inbound line.
//
// When two pending entries share a prefix or suffix, an echo of the newer
// line, exact or corrupted, can consume the older entry. The device echoes in send order,
// so this stays rare and the queue resynchronizes on the next exact match.
package echo

import "strings"

// Verdict classifies an inbound line.
type Verdict int

const (
	// Genuine is device output that must be forwarded to the host.
	Genuine Verdict = iota
	// Echo is an exact echo of a transmitted line.
	Echo
	// PartialEcho is a truncated or corrupted echo of a transmitted line.
	PartialEcho
)

// String returns string representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case Genuine:
		return "genuine"
	case Echo:
		return "echo"
	case PartialEcho:
		return "partial-echo"
	default:
		return "unknown"
	}
}

// Result is the outcome of matching one inbound line.
type Result struct {
	Verdict  Verdict
	Line     string // the normalized inbound line
	Expected string // the pending entry consumed, empty for Genuine
}

// Reconciler holds the ordered queue of pending echoes.
// The zero value is ready to use. It is not safe for concurrent use.
type Reconciler struct {
	pending []string
}

// Normalize returns the form lines are compared in.
func Normalize(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

// Expect queues line as a pending echo. Lines that normalize to nothing are
// never echoed visibly and are not queued.
func (r *Reconciler) Expect(line string) {
	if n := Normalize(line); n != "" {
		r.pending = append(r.pending, n)
	}
}

// Match classifies an inbound line and consumes at most one pending entry.
// Each entry is tried for an exact and then a partial match before moving on
// to the next, so the oldest entry that matches at all wins.
func (r *Reconciler) Match(line string) Result {
	in := Normalize(line)
	if in == "" {
		return Result{Verdict: Genuine, Line: in}
	}

	for i, want := range r.pending {
		switch {
		case want == in:
			r.remove(i)
			return Result{Verdict: Echo, Line: in, Expected: want}
		case overlaps(want, in):
			r.remove(i)
			return Result{Verdict: PartialEcho, Line: in, Expected: want}
		}
	}
	return Result{Verdict: Genuine, Line: in}
}

// Len returns the number of pending echoes.
func (r *Reconciler) Len() int { return len(r.pending) }

// Pending returns a copy of the queue, oldest first.
func (r *Reconciler) Pending() []string {
	out := make([]string, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *Reconciler) remove(i int) {
	r.pending = append(r.pending[:i], r.pending[i+1:]...)
}

func overlaps(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasSuffix(a, b) ||
		strings.HasPrefix(b, a) || strings.HasSuffix(b, a)
}
