package formkey

import (
	"errors"
	"io"
	"time"
)

var errSourceFailed = errors.New("source failed")

// gap in a script makes the next timed read report a timeout. Blocking reads
// skip over it.
const gap RawKey = -2

// scriptSource replays a fixed list of raw keys. It never sleeps: timeouts
// are marked in the script with gap, and a timed read past the end of the
// script also times out. A blocking read past the end returns io.EOF.
type scriptSource struct {
	pushback

	keys []RawKey

	fresh   int // keys taken from the script
	reread  int // keys taken from pushback
	unreads int // calls to Unread
	timed   int // reads that timed out
}

func script(keys ...RawKey) *scriptSource {
	return &scriptSource{keys: keys}
}

// bytesScript turns a string into raw keys, one per byte.
func bytesScript(s string) []RawKey {
	out := make([]RawKey, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = RawKey(s[i])
	}
	return out
}

// runes turns a string into raw keys, one per rune.
func runes(s string) []RawKey {
	var out []RawKey
	for _, r := range s {
		out = append(out, RawKey(r))
	}
	return out
}

func (s *scriptSource) ReadKey(timeout time.Duration) (RawKey, error) {
	if k, ok := s.pop(); ok {
		s.reread++
		return k, nil
	}
	for len(s.keys) > 0 && s.keys[0] == gap {
		s.keys = s.keys[1:]
		if timeout > 0 {
			s.timed++
			return NoKey, nil
		}
	}
	if len(s.keys) == 0 {
		if timeout > 0 {
			s.timed++
			return NoKey, nil
		}
		return NoKey, io.EOF
	}
	k := s.keys[0]
	s.keys = s.keys[1:]
	s.fresh++
	return k, nil
}

func (s *scriptSource) Unread(k RawKey) {
	s.unreads++
	s.pushback.Unread(k)
}

// remaining reports the keys not yet read, pushback first.
func (s *scriptSource) remaining() []RawKey {
	s.mu.Lock()
	var out []RawKey
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i] != rawBreak {
			out = append(out, s.stack[i])
		}
	}
	s.mu.Unlock()
	for _, k := range s.keys {
		if k != gap {
			out = append(out, k)
		}
	}
	return out
}

// decodeAll decodes until the source is exhausted.
func decodeAll(d *Decoder) []Key {
	var keys []Key
	for {
		ev, err := d.Decode()
		if err != nil {
			return keys
		}
		keys = append(keys, ev.Key)
	}
}
