package bridge

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// hostInput waits for readiness on the host-facing descriptor with a bounded
// timeout, so the loop never blocks on a GUI that has nothing to say.
type hostInput struct {
	file *os.File
	fd   int32
}

func newHostInput(f *os.File) *hostInput {
	return &hostInput{file: f, fd: int32(f.Fd())}
}

// Wait reports whether a Read would not block. Hang-up and error conditions
// count as ready so the following Read can surface them.
func (h *hostInput) Wait(timeout time.Duration) (bool, error) {
	pfd := []unix.PollFd{{Fd: h.fd, Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, pollMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return false, nil
		}
		return false, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if pfd[0].Revents&unix.POLLNVAL != 0 {
		return false, fmt.Errorf("poll: invalid descriptor %d", h.fd)
	}
	return pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0, nil
}

func (h *hostInput) Read(p []byte) (int, error) {
	return h.file.Read(p)
}

// pollMillis converts timeout to poll(2) milliseconds, rounding up so a
// positive timeout never becomes a non-blocking poll.
func pollMillis(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
