// Package command holds the few rules the bridge applies to UCI command
// lines; everything else passes through as opaque text.
package command

import (
	"regexp"
	"strings"
)

const (
	// GoKeyword starts a search command whose clock parameters the device
	// does not understand.
	GoKeyword = "go"

	// Sentinel ends the session instead of being transmitted.
	Sentinel = "quit"
)

// StrippedParams are the go parameters removed before transmission.
var StrippedParams = []string{"wtime", "btime", "winc", "binc", "movestogo", "movetime"}

var paramRe = regexp.MustCompile(`(?i)\s+(?:` + strings.Join(StrippedParams, "|") + `)\s+[+-]?\d+`)

// Filter strips the clock and move-count parameters from a go command and
// normalizes its spacing. Other lines are returned unchanged.
func Filter(line string) string {
	if !IsGo(line) {
		return line
	}
	for {
		next := paramRe.ReplaceAllString(line, "")
		if next == line {
			break
		}
		line = next
	}
	return strings.Join(strings.Fields(line), " ")
}

// IsGo reports whether the first token of line is the go keyword.
func IsGo(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && strings.EqualFold(fields[0], GoKeyword)
}

// IsQuit reports whether line is the session sentinel.
func IsQuit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), Sentinel)
}
