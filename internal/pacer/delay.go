package pacer

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMarker introduces the move list of a UCI position command.
const DefaultMarker = " moves "

// DelayPolicy adds settle time after long lines, scaled by how many items
// follow Marker. The receiver replays each listed move before it reads again.
type DelayPolicy struct {
	Threshold int // lines longer than this get extra delay
	Base      time.Duration
	PerItem   time.Duration
	Marker    string
}

// Extra returns the additional delay for line and the item count it is based on.
// Length is counted in characters, one per Latin-1 byte on the wire.
func (p DelayPolicy) Extra(line string) (time.Duration, int) {
	if utf8.RuneCountInString(line) <= p.Threshold {
		return 0, 0
	}
	items := p.Items(line)
	return p.Base + time.Duration(items)*p.PerItem, items
}

// Items counts the whitespace-separated tokens after the first occurrence of
// Marker, matched case-insensitively. Zero when the marker is absent.
func (p DelayPolicy) Items(line string) int {
	marker := p.Marker
	if marker == "" {
		marker = DefaultMarker
	}
	idx := strings.Index(strings.ToLower(line), strings.ToLower(marker))
	if idx < 0 {
		return 0
	}
	return len(strings.Fields(line[idx+len(marker):]))
}
