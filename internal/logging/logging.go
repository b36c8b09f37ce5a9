// Package logging opens the bridge's diagnostic log sink.
//
// The sink is best effort: if the log file cannot be opened the bridge keeps
// running with a discarding logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	console "github.com/phsym/console-slog"
	"golang.org/x/term"
)

// StderrPath selects standard error as the sink.
const StderrPath = "-"

// Options selects where and how records are written.
type Options struct {
	Path   string // file path, StderrPath, or empty for no log
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Sink is an open log destination.
type Sink struct {
	Logger *slog.Logger
	closer io.Closer
}

// Open creates the sink described by opts. A file sink is truncated. When the
// file cannot be opened, Open returns a usable discarding Sink together with
// the error so the caller can report it.
func Open(opts Options, stderr *os.File) (*Sink, error) {
	level := ParseLevel(opts.Level)

	switch opts.Path {
	case "":
		return Discard(), nil
	case StderrPath:
		color := term.IsTerminal(int(stderr.Fd()))
		return &Sink{Logger: slog.New(newHandler(stderr, opts.Format, level, color))}, nil
	}

	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Discard(), fmt.Errorf("open log %s: %w", opts.Path, err)
	}
	return &Sink{Logger: slog.New(newHandler(f, opts.Format, level, false)), closer: f}, nil
}

// New returns a sink writing to w without taking ownership of it.
func New(w io.Writer, opts Options) *Sink {
	return &Sink{Logger: slog.New(newHandler(w, opts.Format, ParseLevel(opts.Level), false))}
}

// Discard returns a sink that drops every record.
func Discard() *Sink {
	return &Sink{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

// Close flushes and releases the underlying file, if any.
func (s *Sink) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(w io.Writer, format string, level slog.Level, color bool) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	}
	return console.NewHandler(w, &console.HandlerOptions{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05.000",
		NoColor:    !color,
	})
}
