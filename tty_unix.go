//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package formkey

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// TTYSource reads raw keys straight from a terminal file descriptor. Timed
// reads use poll(2), so nothing is left reading in the background when a
// timeout expires.
type TTYSource struct {
	byteSource

	fd    int
	tmp   []byte
	state *term.State
}

// NewTTYSource creates a source reading from f. f does not have to be a
// terminal (pipes work too), but MakeRaw only succeeds on one.
func NewTTYSource(f *os.File) *TTYSource {
	s := &TTYSource{
		fd:  int(f.Fd()),
		tmp: make([]byte, 64),
	}
	s.buf = make([]byte, 0, 64)
	s.runeWait = DefaultTiming.Escape
	s.fill = s.poll
	return s
}

// IsTerminal reports whether the source reads from a terminal.
func (s *TTYSource) IsTerminal() bool {
	return term.IsTerminal(s.fd)
}

// MakeRaw puts the terminal into raw mode. Call Restore to undo it.
func (s *TTYSource) MakeRaw() error {
	if s.state != nil {
		return nil
	}
	state, err := term.MakeRaw(s.fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	s.state = state
	return nil
}

// Restore returns the terminal to the mode it had before MakeRaw.
func (s *TTYSource) Restore() error {
	if s.state == nil {
		return nil
	}
	err := term.Restore(s.fd, s.state)
	s.state = nil
	return err
}

func (s *TTYSource) poll(timeout time.Duration) bool {
	if s.err != nil {
		return true
	}

	ms := -1
	if timeout > 0 {
		ms = int(timeout / time.Millisecond)
		if ms == 0 {
			ms = 1
		}
	}

	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			s.err = fmt.Errorf("poll: %w", err)
			return true
		}
		if n == 0 {
			return false
		}
		break
	}

	for {
		n, err := unix.Read(s.fd, s.tmp)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			s.err = fmt.Errorf("read: %w", err)
			return true
		}
		if n == 0 {
			s.err = io.EOF
			return true
		}
		s.buf = append(s.buf, s.tmp[:n]...)
		return true
	}
}
