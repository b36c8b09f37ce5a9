// Package bridge runs one relay session between a UCI host stream and the
// ELPH serial link.
//
// A single goroutine owns everything: it waits briefly for host input, paces
// each command line onto the serial port byte by byte, and reconciles what
// the device sends back against the lines it is expected to echo. Only lines
// the device produced on its own reach the host.
package bridge

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	serial "github.com/luhtfiimanal/elph-bridge"
	"github.com/luhtfiimanal/elph-bridge/internal/command"
	"github.com/luhtfiimanal/elph-bridge/internal/config"
	"github.com/luhtfiimanal/elph-bridge/internal/echo"
	"github.com/luhtfiimanal/elph-bridge/internal/line"
	"github.com/luhtfiimanal/elph-bridge/internal/pacer"
)

const (
	hostChunk   = 1024
	serialChunk = 4096
)

// Session relays lines between the host and the device.
type Session struct {
	cfg   config.Config
	in    *hostInput
	out   io.Writer
	log   *slog.Logger
	sleep func(time.Duration)

	port     *serial.Port
	tx       *pacer.Transmitter
	delay    pacer.DelayPolicy
	echoes   echo.Reconciler
	outbound line.Framer
	inbound  line.Framer // receive buffer, appended to only by drainSerial
	scratch  []byte

	state  State
	reason CloseReason
	err    error
	start  time.Time
	stats  Stats
}

// Option customizes a Session.
type Option func(*Session)

// WithSleep replaces time.Sleep for pacing, long-line and settle delays.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Session) { s.sleep = fn }
}

// New returns a session in the starting state. in must be a pollable
// descriptor such as os.Stdin or a pipe.
func New(cfg config.Config, in *os.File, out io.Writer, log *slog.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:   cfg,
		in:    newHostInput(in),
		out:   out,
		log:   log,
		sleep: time.Sleep,
		delay: pacer.DelayPolicy{
			Threshold: cfg.LongLineThreshold,
			Base:      cfg.LongLineDelay,
			PerItem:   cfg.PerMoveDelay,
			Marker:    cfg.MovesMarker,
		},
		scratch: make([]byte, serialChunk),
		state:   StartingState,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens and configures the serial channel, discards stale data in both
// directions and waits for the device to settle. A failure is returned as a
// *StartupError and leaves the session closed.
func (s *Session) Start() error {
	if s.state != StartingState {
		return ErrNotRunning
	}
	s.start = time.Now()
	s.emit(slog.LevelInfo, "bridge started")

	port, err := serial.Open(s.cfg.SerialConfig())
	if err != nil {
		return s.failStartup(err)
	}
	if stale, err := port.Buffered(); err == nil && stale > 0 {
		s.stats.BytesDiscarded = int64(stale)
		s.emit(slog.LevelInfo, "discarding stale input", "bytes", stale)
	}
	if err := port.Reset(); err != nil {
		port.Close()
		return s.failStartup(err)
	}
	s.port = port
	s.tx = pacer.New(port, s.drainSerial, pacer.Timing{
		CharDelay: s.cfg.CharDelay,
		LineDelay: s.cfg.LineDelay,
	}, s.sleep)
	s.emit(slog.LevelInfo, "serial open", "device", port.Name(), "baud", s.cfg.Baud)

	s.sleep(s.cfg.SettleDelay)
	s.setState(RunningState)
	return nil
}

func (s *Session) failStartup(err error) error {
	serr := &StartupError{Device: s.cfg.Device, Err: err}
	s.emit(slog.LevelError, "serial open failed", "err", serr)
	s.setState(ClosedState)
	return serr
}

// Run drives the main loop until the session closes. It returns nil on a
// normal termination and a *TransportError when a stream failed.
func (s *Session) Run(ctx context.Context) error {
	if s.state != RunningState {
		return ErrNotRunning
	}
	// Close logs a failed port release itself; Run reports only why the
	// session ended.
	defer s.Close()

	s.emit(slog.LevelDebug, "entering main loop")
	buf := make([]byte, hostChunk)
	for s.state == RunningState {
		if ctx.Err() != nil {
			s.closing(ReasonCancelled, nil)
			break
		}

		ready, err := s.in.Wait(s.cfg.PollInterval)
		if err != nil {
			s.closing(ReasonTransport, &TransportError{Stream: "host", Op: "poll", Err: err})
			break
		}
		if ready {
			s.pumpHost(buf)
		}
		if s.state != RunningState {
			break
		}
		s.pumpDevice()
	}
	return s.err
}

// Close releases the serial channel. It is called by Run and is safe to call
// more than once.
func (s *Session) Close() error {
	if s.state == ClosedState {
		return nil
	}
	if s.state == RunningState {
		s.closing(ReasonCancelled, nil)
	}
	var err error
	if s.port != nil {
		if err = s.port.Close(); err != nil {
			s.emit(slog.LevelWarn, "serial close failed", "err", err)
		}
	}
	s.emit(slog.LevelInfo, "bridge closed", "reason", s.reason.String(), "stats", s.stats)
	s.setState(ClosedState)
	return err
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Reason returns why the session stopped running.
func (s *Session) Reason() CloseReason { return s.reason }

// Stats returns the session counters.
func (s *Session) Stats() Stats { return s.stats }

// PendingEchoes returns the number of transmitted lines not yet echoed.
func (s *Session) PendingEchoes() int { return s.echoes.Len() }

func (s *Session) pumpHost(buf []byte) {
	n, err := s.in.Read(buf)
	if n > 0 {
		s.outbound.Feed(buf[:n])
		s.sendLines(s.outbound.Lines())
		if s.state != RunningState {
			return
		}
	}

	switch {
	case errors.Is(err, io.EOF):
		s.emit(slog.LevelInfo, "EOF on host input")
		if tail, ok := s.outbound.Flush(); ok {
			if !s.sendLine(tail) {
				return
			}
		}
		s.closing(ReasonHostEOF, nil)
	case err != nil:
		s.closing(ReasonTransport, &TransportError{Stream: "host", Op: "read", Err: err})
	}
}

func (s *Session) sendLines(lines iter.Seq[string]) {
	for l := range lines {
		if !s.sendLine(l) {
			return
		}
	}
}

// sendLine transmits one host line and reports whether the session is still running.
func (s *Session) sendLine(raw string) bool {
	if command.IsQuit(raw) {
		s.emit(slog.LevelInfo, "quit command")
		s.closing(ReasonSentinel, nil)
		return false
	}
	if strings.TrimSpace(raw) == "" {
		s.stats.LinesSkipped++
		return true
	}

	text := command.Filter(raw)
	if text != raw {
		s.emit(slog.LevelDebug, "filtered", "from", raw)
	}
	s.emit(slog.LevelInfo, "TX", "line", text)

	n, err := s.tx.Send(line.Encode(text))
	s.stats.BytesToDevice += int64(n)
	if err != nil {
		s.closing(ReasonTransport, &TransportError{Stream: "serial", Op: "write", Err: err})
		return false
	}
	s.echoes.Expect(text)
	s.stats.LinesSent++

	if d, moves := s.delay.Extra(text); d > 0 {
		s.emit(slog.LevelInfo, "long line delay", "chars", utf8.RuneCountInString(text), "moves", moves, "delay", d)
		s.stats.ExtraDelay += d
		s.sleep(d)
	}
	return true
}

func (s *Session) pumpDevice() {
	if err := s.drainSerial(); err != nil {
		s.closing(ReasonTransport, &TransportError{Stream: "serial", Op: "read", Err: err})
		return
	}
	for raw := range s.inbound.Lines() {
		if !s.reconcile(raw) {
			return
		}
	}
}

// drainSerial moves whatever the device has sent into the receive buffer.
func (s *Session) drainSerial() error {
	for {
		n, err := s.port.ReadAvailable(s.scratch)
		if n > 0 {
			s.inbound.Feed(s.scratch[:n])
			s.stats.BytesFromDev += int64(n)
		}
		if err != nil {
			return err
		}
		if n < len(s.scratch) {
			return nil
		}
	}
}

// reconcile classifies one device line and forwards it when it is genuine
// output. It reports whether the session is still running.
func (s *Session) reconcile(raw string) bool {
	text := strings.TrimSpace(raw)
	if text == "" {
		return true
	}

	res := s.echoes.Match(text)
	switch res.Verdict {
	case echo.Echo:
		s.stats.Echoes++
		s.emit(slog.LevelInfo, "ECHO", "line", text)
	case echo.PartialEcho:
		s.stats.PartialEchoes++
		s.emit(slog.LevelWarn, "PARTIAL_ECHO", "line", text, "expected", res.Expected)
	default:
		s.emit(slog.LevelInfo, "RX", "line", text)
		if _, err := s.out.Write(line.Encode(text + "\n")); err != nil {
			s.emit(slog.LevelWarn, "host write failed", "err", err)
			s.closing(ReasonBrokenPipe, nil)
			return false
		}
		s.stats.LinesForwarded++
	}
	return true
}

func (s *Session) closing(reason CloseReason, err error) {
	if s.state != RunningState {
		return
	}
	s.reason = reason
	s.err = err
	if err != nil {
		s.emit(slog.LevelError, "session failed", "reason", reason.String(), "err", err)
	} else {
		s.emit(slog.LevelInfo, "session ending", "reason", reason.String())
	}
	s.setState(ClosingState)
}

func (s *Session) setState(next State) {
	s.emit(slog.LevelDebug, "state change", "from", s.state.String(), "to", next.String())
	s.state = next
}

// emit logs with the time elapsed since the session started.
func (s *Session) emit(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	if !s.log.Enabled(ctx, level) {
		return
	}
	args = append([]any{slog.Duration("elapsed", time.Since(s.start))}, args...)
	s.log.Log(ctx, level, msg, args...)
}
