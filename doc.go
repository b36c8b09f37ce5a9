// Package serial provides a minimal, Linux-only serial port for slow,
// unbuffered embedded receivers such as the ELPH chess computer.
//
// The port is opened in raw (non-canonical) mode with 8 data bits, no parity,
// one stop bit and no flow control. Reads never wait longer than the
// configured read timeout, and ReadAvailable never waits at all, so a single
// control loop can interleave byte-paced writes with draining of whatever the
// device echoes back.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Poll-based, non-blocking draining of pending input
//   - Input/output queue flush (Reset) and transmit drain (Drain)
//   - Hang-up detection surfaced as ErrHangup
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:      "/dev/ttyUSB0",
//	    BaudRate:    19200,
//	    ReadTimeout: 100 * time.Millisecond,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	_ = port.Reset()
//	_, _ = port.Write([]byte("isready\n"))
//
//	buf := make([]byte, 256)
//	n, err := port.ReadAvailable(buf)
//	if err != nil {
//	    log.Println("Read error:", err)
//	}
//	fmt.Printf("Received: %q\n", buf[:n])
package serial
