package line

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Decode converts Latin-1 bytes to text. Every byte maps to a rune, so it
// cannot fail; the fallback only guards against a decoder error.
func Decode(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}

// Encode converts text to Latin-1 bytes. Runes outside Latin-1 become the
// charmap substitute byte (0x1A).
func Encode(s string) []byte {
	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		// Only reachable on invalid UTF-8 input.
		return []byte(strings.ToValidUTF8(s, "\x1a"))
	}
	return out
}
