package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrHangup is returned by ReadAvailable when the device side of the line is gone.
var ErrHangup = errors.New("serial: device hung up")

// ErrClosed is returned by operations on a closed Port.
var ErrClosed = errors.New("serial: port closed")

// Port is a raw, 8-N-1, flow-control-free Linux serial port.
// It is meant to be driven from a single goroutine; only Close is safe to call concurrently.
type Port struct {
	fd        int
	file      *os.File
	closeOnce sync.Once
	closed    chan struct{}
	config    Config
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration // bounds a single read, rounded up to 100ms steps
}

// Open opens a serial port using the provided Config.
// The port is configured for raw, non-canonical operation with 8 data bits,
// no parity, one stop bit and neither hardware nor software flow control.
func Open(cfg Config) (*Port, error) {
	baud, ok := baudToUnix(cfg.BaudRate)
	if !ok {
		return nil, fmt.Errorf("unsupported baud rate %d", cfg.BaudRate)
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0666)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN

	// 8-N-1, no RTS/CTS
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	// Baud rate
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	// VMIN=0 with VTIME makes every read return after at most ReadTimeout.
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = readTimeoutTenths(cfg.ReadTimeout)

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Turn back into blocking mode now that config is done
	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		closed: make(chan struct{}),
		config: cfg,
	}, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string { return p.config.Device }

// Write writes b to the port.
func (p *Port) Write(b []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	return p.file.Write(b)
}

// ReadAvailable reads whatever the driver has already queued, without waiting.
// It returns 0, nil when nothing is pending and ErrHangup once the line is dead.
func (p *Port) ReadAvailable(buf []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	pfd := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	if _, err := unix.Poll(pfd, 0); err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("poll: %w", err)
	}
	revents := pfd[0].Revents
	if revents&unix.POLLIN != 0 {
		n, err := p.file.Read(buf)
		if err != nil {
			if errors.Is(err, syscall.EIO) || errors.Is(err, io.EOF) {
				return n, ErrHangup
			}
			return n, err
		}
		return n, nil
	}
	if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		return 0, ErrHangup
	}
	return 0, nil
}

// Buffered returns the number of bytes waiting in the driver's input queue.
func (p *Port) Buffered() (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	return unix.IoctlGetInt(p.fd, unix.TIOCINQ)
}

// Reset discards any data pending in both directions.
func (p *Port) Reset() error {
	if p.isClosed() {
		return ErrClosed
	}
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIOFLUSH)
}

// Drain blocks until everything written has been transmitted.
func (p *Port) Drain() error {
	if p.isClosed() {
		return ErrClosed
	}
	// TCSBRK with a non-zero argument is tcdrain(3).
	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// Close releases the port.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.file.Close()
	})
	return err
}

func (p *Port) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func readTimeoutTenths(d time.Duration) uint8 {
	if d <= 0 {
		return 0
	}
	tenths := (d + 100*time.Millisecond - 1) / (100 * time.Millisecond)
	if tenths > 255 {
		tenths = 255
	}
	return uint8(tenths)
}

// SupportedBaud reports whether Open accepts the given baud rate.
func SupportedBaud(baud int) bool {
	_, ok := baudToUnix(baud)
	return ok
}

func baudToUnix(baud int) (uint32, bool) {
	switch baud {
	case 1200:
		return unix.B1200, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	default:
		return 0, false
	}
}
