package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(f *Framer) []string {
	var out []string
	for l := range f.Lines() {
		out = append(out, l)
	}
	return out
}

func TestFramer_MixedTerminators(t *testing.T) {
	var f Framer
	f.Feed([]byte("abc\r\ndef\rghi\n\n\rjkl"))
	require.Equal(t, []string{"abc", "def", "ghi"}, collect(&f))

	tail, ok := f.Flush()
	require.True(t, ok)
	require.Equal(t, "jkl", tail)
	require.Zero(t, f.Buffered())
}

func TestSplit_MixedTerminators(t *testing.T) {
	require.Equal(t, []string{"abc", "def", "ghi", "jkl"}, Split("abc\r\ndef\rghi\n\n\rjkl"))
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"only terminators", "\r\n\r\n\n\r\r", nil},
		{"lf", "uci\nisready\n", []string{"uci", "isready"}},
		{"crlf", "uci\r\nisready\r\n", []string{"uci", "isready"}},
		{"lfcr counts once", "a\n\rb", []string{"a", "b"}},
		{"leading terminators", "\n\nuci", []string{"uci"}},
		{"whitespace kept", " \nx", []string{" ", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}

func TestFramer_AcrossChunks(t *testing.T) {
	var f Framer

	f.Feed([]byte("posi"))
	require.Empty(t, collect(&f))

	f.Feed([]byte("tion startpos\r"))
	require.Equal(t, []string{"position startpos"}, collect(&f))

	// The LF completing the CRLF arrives in the next chunk and must not
	// produce an extra line.
	f.Feed([]byte("\ngo\n"))
	require.Equal(t, []string{"go"}, collect(&f))
	require.Zero(t, f.Buffered())
}

func TestFramer_LinesStopsEarly(t *testing.T) {
	var f Framer
	f.Feed([]byte("a\nb\nc\n"))

	for l := range f.Lines() {
		require.Equal(t, "a", l)
		break
	}
	require.Equal(t, []string{"b", "c"}, collect(&f))
}

func TestFramer_Reset(t *testing.T) {
	var f Framer
	f.Feed([]byte("partial"))
	f.Reset()
	_, ok := f.Flush()
	require.False(t, ok)
}

func TestCodec_Latin1(t *testing.T) {
	// 0xE9 is é in Latin-1 and not valid UTF-8 on its own.
	require.Equal(t, "café", Decode([]byte{'c', 'a', 'f', 0xE9}))
	require.Equal(t, []byte{'c', 'a', 'f', 0xE9}, Encode("café"))

	// Outside Latin-1: replaced, never an error.
	require.Equal(t, []byte{'a', 0x1A, 'b'}, Encode("a€b"))
	require.Equal(t, "", Decode(nil))
}

func TestFramer_DecodesLatin1(t *testing.T) {
	var f Framer
	f.Feed([]byte{'i', 'd', ' ', 0xC6, '\n'})
	l, ok := f.Next()
	require.True(t, ok)
	require.Equal(t, "id Æ", l)
}
