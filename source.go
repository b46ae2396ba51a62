package formkey

import (
	"io"
	"sync"
	"time"
	"unicode/utf8"
)

// KeySource is the terminal end of the pipeline: it delivers one raw key per
// read and accepts keys back for re-delivery.
type KeySource interface {
	// ReadKey returns the next raw key. A timeout <= 0 blocks until a key
	// arrives; otherwise NoKey is returned if none arrives in time.
	ReadKey(timeout time.Duration) (RawKey, error)

	// Unread pushes k onto the front of the input. The last key unread is
	// the next key read.
	Unread(k RawKey)
}

// pushback is the LIFO re-delivery queue shared by the sources.
type pushback struct {
	mu    sync.Mutex
	stack []RawKey
}

func (p *pushback) Unread(k RawKey) {
	if k == NoKey {
		return
	}
	p.mu.Lock()
	p.stack = append(p.stack, k)
	p.mu.Unlock()
}

func (p *pushback) pop() (RawKey, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.stack) == 0 {
		return NoKey, false
	}
	k := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return k, true
}

// Pending returns how many keys are waiting to be re-delivered.
func (p *pushback) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stack)
}

// byteSource turns a byte stream into raw keys. Multi-byte UTF-8 input is
// assembled into a single rune code; everything else is delivered byte by byte.
type byteSource struct {
	pushback

	buf []byte // unprocessed bytes
	err error

	// runeWait bounds the wait for the rest of a multi-byte character. The
	// decoder sets it to its escape timeout.
	runeWait time.Duration

	// fill appends to buf or sets err. It returns false if the timeout
	// expired before anything arrived.
	fill func(timeout time.Duration) bool
}

func (s *byteSource) setRuneTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTiming.Escape
	}
	s.runeWait = d
}

// ReadKey implements KeySource.
func (s *byteSource) ReadKey(timeout time.Duration) (RawKey, error) {
	if k, ok := s.pop(); ok {
		return k, nil
	}

	for len(s.buf) == 0 {
		if s.err != nil {
			return NoKey, s.err
		}
		if !s.fill(timeout) {
			return NoKey, nil
		}
	}

	b := s.buf[0]
	if b < utf8.RuneSelf {
		s.buf = s.buf[1:]
		return RawKey(b), nil
	}

	// give the rest of a multi-byte rune a short chance to arrive
	for !utf8.FullRune(s.buf) && s.err == nil {
		if !s.fill(s.runeWait) {
			break
		}
	}
	r, size := utf8.DecodeRune(s.buf)
	s.buf = s.buf[size:]
	if r == utf8.RuneError && size == 1 {
		// not UTF-8, hand over the byte as is
		return RawKey(b), nil
	}
	return RawKey(r), nil
}

// ReaderSource reads raw keys from any io.Reader. Timed reads run the
// blocking Read in a goroutine; a read that outlives its timeout is collected
// by the next call.
type ReaderSource struct {
	byteSource

	r   io.Reader
	tmp []byte

	readCh      chan readResult
	readPending bool
}

type readResult struct {
	n   int
	err error
}

// NewReaderSource creates a source over r.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		r:      r,
		tmp:    make([]byte, 32),
		readCh: make(chan readResult, 1),
	}
	s.buf = make([]byte, 0, 64)
	s.runeWait = DefaultTiming.Escape
	s.fill = s.fillAsync
	return s
}

func (s *ReaderSource) fillAsync(timeout time.Duration) bool {
	if s.err != nil {
		return true
	}

	if !s.readPending {
		s.readPending = true
		go func() {
			n, err := s.r.Read(s.tmp)
			s.readCh <- readResult{n, err}
		}()
	}

	var result readResult
	if timeout <= 0 {
		result = <-s.readCh
	} else {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case result = <-s.readCh:
		case <-t.C:
			return false
		}
	}

	s.readPending = false
	s.buf = append(s.buf, s.tmp[:result.n]...)
	if result.err != nil && result.n == 0 {
		s.err = result.err
	}
	return true
}
