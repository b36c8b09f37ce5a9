package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/elph-bridge/internal/config"
)

// syncBuffer is a bytes.Buffer safe to read while the session writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

// fakeDevice plays the ELPH on the master side of a pty. It optionally echoes
// every byte it reads, and answers complete lines through respond.
type fakeDevice struct {
	master  *os.File
	slave   string
	echo    bool
	respond func(line string) []string

	mu  sync.Mutex
	got bytes.Buffer
}

func newFakeDevice(t *testing.T, echo bool, respond func(string) []string) *fakeDevice {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	d := &fakeDevice{master: master, slave: slave.Name(), echo: echo, respond: respond}
	go d.loop()
	return d
}

func (d *fakeDevice) loop() {
	buf := make([]byte, 256)
	var pending []byte
	for {
		n, err := d.master.Read(buf)
		if err != nil {
			return
		}
		chunk := buf[:n]
		d.mu.Lock()
		d.got.Write(chunk)
		d.mu.Unlock()
		if d.echo {
			d.master.Write(chunk)
		}
		for _, b := range chunk {
			if b != '\n' {
				pending = append(pending, b)
				continue
			}
			if d.respond != nil {
				for _, reply := range d.respond(string(pending)) {
					d.master.Write([]byte(reply + "\r\n"))
				}
			}
			pending = pending[:0]
		}
	}
}

func (d *fakeDevice) received() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.got.String()
}

func testConfig(device string) config.Config {
	cfg := config.Default()
	cfg.Device = device
	cfg.CharDelay = 0
	cfg.LineDelay = 0
	cfg.LongLineDelay = 0
	cfg.PerMoveDelay = 0
	cfg.SettleDelay = 0
	cfg.PollInterval = time.Millisecond
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	session *Session
	stdin   *os.File
	stdout  *syncBuffer
	done    chan error
}

func startSession(t *testing.T, cfg config.Config, out io.Writer, opts ...Option) *harness {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })

	stdout, _ := out.(*syncBuffer)
	s := New(cfg, r, out, testLogger(), opts...)
	require.NoError(t, s.Start())
	require.Equal(t, RunningState, s.State())

	h := &harness{session: s, stdin: w, stdout: stdout, done: make(chan error, 1)}
	go func() { h.done <- s.Run(context.Background()) }()
	return h
}

func (h *harness) send(t *testing.T, s string) {
	t.Helper()
	_, err := h.stdin.WriteString(s)
	require.NoError(t, err)
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for session to close")
		return nil
	}
}

func TestSession_ForwardsGenuineOutputOnly(t *testing.T) {
	dev := newFakeDevice(t, true, func(l string) []string {
		if l == "isready" {
			return []string{"readyok"}
		}
		return nil
	})
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	h.send(t, "isready\n")
	require.Eventually(t, func() bool { return h.stdout.String() == "readyok\n" }, time.Second, 5*time.Millisecond)

	h.send(t, "quit\n")
	require.NoError(t, h.wait(t))

	require.Equal(t, "readyok\n", h.stdout.String())
	require.Equal(t, ReasonSentinel, h.session.Reason())
	require.Equal(t, ClosedState, h.session.State())
	require.Zero(t, h.session.PendingEchoes())

	st := h.session.Stats()
	require.Equal(t, 1, st.LinesSent)
	require.Equal(t, 1, st.Echoes)
	require.Equal(t, 1, st.LinesForwarded)
}

func TestSession_UnsolicitedOutputIsForwarded(t *testing.T) {
	dev := newFakeDevice(t, false, nil)
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	_, err := dev.master.Write([]byte("readyok\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return h.stdout.String() == "readyok\n" }, time.Second, 5*time.Millisecond)

	h.send(t, "quit\n")
	require.NoError(t, h.wait(t))
}

func TestSession_QuitSendsNothing(t *testing.T) {
	dev := newFakeDevice(t, false, nil)
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	h.send(t, "uci\nQUIT\nisready\n")
	require.NoError(t, h.wait(t))
	require.Equal(t, ReasonSentinel, h.session.Reason())

	require.Eventually(t, func() bool { return dev.received() == "uci\n" }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, "uci\n", dev.received())
}

func TestSession_FiltersGoCommand(t *testing.T) {
	dev := newFakeDevice(t, true, nil)
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	h.send(t, "go movetime 5000 wtime 3000\r\n")
	require.Eventually(t, func() bool { return dev.received() == "go\n" }, time.Second, 5*time.Millisecond)

	h.send(t, "quit\n")
	require.NoError(t, h.wait(t))
	require.Empty(t, h.stdout.String())
}

func TestSession_PartialEchoIsSuppressed(t *testing.T) {
	dev := newFakeDevice(t, false, func(l string) []string {
		if l == "position startpos moves e2e4" {
			// The device lost the first bytes of its echo.
			return []string{"ition startpos moves e2e4", "info string ok"}
		}
		return nil
	})
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	h.send(t, "position startpos moves e2e4\n")
	require.Eventually(t, func() bool { return h.stdout.String() == "info string ok\n" }, time.Second, 5*time.Millisecond)

	h.send(t, "quit\n")
	require.NoError(t, h.wait(t))

	st := h.session.Stats()
	require.Equal(t, 1, st.PartialEchoes)
	require.Zero(t, st.Echoes)
	require.Zero(t, h.session.PendingEchoes())
}

func TestSession_HostEOFSendsTail(t *testing.T) {
	dev := newFakeDevice(t, false, nil)
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	h.send(t, "ucinewgame\nisready")
	require.NoError(t, h.stdin.Close())

	require.NoError(t, h.wait(t))
	require.Equal(t, ReasonHostEOF, h.session.Reason())
	require.Eventually(t, func() bool { return dev.received() == "ucinewgame\nisready\n" }, time.Second, 5*time.Millisecond)
}

func TestSession_BrokenHostPipe(t *testing.T) {
	dev := newFakeDevice(t, false, func(l string) []string {
		return []string{"id name ELPH"}
	})
	h := startSession(t, testConfig(dev.slave), brokenWriter{})

	h.send(t, "uci\n")
	require.NoError(t, h.wait(t))
	require.Equal(t, ReasonBrokenPipe, h.session.Reason())
	require.True(t, h.session.Reason().Normal())
}

func TestSession_DeviceHangup(t *testing.T) {
	dev := newFakeDevice(t, false, nil)
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	require.NoError(t, dev.master.Close())

	err := h.wait(t)
	var terr *TransportError
	require.True(t, errors.As(err, &terr), "got %v", err)
	require.Equal(t, "serial", terr.Stream)
	require.Equal(t, ReasonTransport, h.session.Reason())
	require.False(t, h.session.Reason().Normal())
}

func TestSession_Cancelled(t *testing.T) {
	dev := newFakeDevice(t, false, nil)
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })

	s := New(testConfig(dev.slave), r, &syncBuffer{}, testLogger())
	require.NoError(t, s.Start())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	require.Equal(t, ReasonCancelled, s.Reason())
	require.Equal(t, ClosedState, s.State())
}

func TestSession_LongLineDelay(t *testing.T) {
	dev := newFakeDevice(t, false, nil)

	var mu sync.Mutex
	var slept []time.Duration
	sleep := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		slept = append(slept, d)
	}

	cfg := testConfig(dev.slave)
	cfg.LongLineThreshold = 20
	cfg.LongLineDelay = 50 * time.Millisecond
	cfg.PerMoveDelay = 25 * time.Millisecond

	h := startSession(t, cfg, &syncBuffer{}, WithSleep(sleep))
	h.send(t, "position startpos moves e2e4 e7e5 g1f3\nisready\nquit\n")
	require.NoError(t, h.wait(t))

	mu.Lock()
	defer mu.Unlock()
	want := 50*time.Millisecond + 3*25*time.Millisecond
	require.Contains(t, slept, want)
	require.Equal(t, want, h.session.Stats().ExtraDelay)
}

func TestSession_DiscardsStaleInput(t *testing.T) {
	dev := newFakeDevice(t, false, nil)
	_, err := dev.master.Write([]byte("bestmove e2e4\r\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	h := startSession(t, testConfig(dev.slave), &syncBuffer{})
	require.Positive(t, h.session.Stats().BytesDiscarded)

	h.send(t, "quit\n")
	require.NoError(t, h.wait(t))
	require.Empty(t, h.stdout.String())
}

func TestSession_RunReportsEndReasonNotCloseResult(t *testing.T) {
	dev := newFakeDevice(t, false, nil)
	h := startSession(t, testConfig(dev.slave), &syncBuffer{})

	h.send(t, "quit\n")
	require.NoError(t, h.wait(t))
	require.Equal(t, ClosedState, h.session.State())
	require.NoError(t, h.session.Close())
}

func TestSession_StartupError(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })

	s := New(testConfig("/dev/elph-does-not-exist"), r, io.Discard, testLogger())
	err = s.Start()

	var serr *StartupError
	require.True(t, errors.As(err, &serr), "got %v", err)
	require.Equal(t, "/dev/elph-does-not-exist", serr.Device)
	require.True(t, strings.HasPrefix(serr.Error(), "startup /dev/elph-does-not-exist"))
	require.Equal(t, ClosedState, s.State())
	require.ErrorIs(t, s.Run(context.Background()), ErrNotRunning)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "starting", StartingState.String())
	require.Equal(t, "running", RunningState.String())
	require.Equal(t, "closing", ClosingState.String())
	require.Equal(t, "closed", ClosedState.String())
	require.Equal(t, "host-eof", ReasonHostEOF.String())
	require.Equal(t, "broken-pipe", ReasonBrokenPipe.String())
}
