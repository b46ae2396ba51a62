package formkey

import (
	"strconv"
	"strings"
	"time"
)

// Timing holds the timeouts used to tell keys apart. They only affect how
// responsive input feels, never what it decodes to when keys arrive in time.
type Timing struct {
	// EscapeFirst is how long to wait after a lone ESC for the next byte of
	// an escape sequence.
	EscapeFirst time.Duration
	// Escape is the wait between later bytes of a sequence.
	Escape time.Duration
	// Chord is how long to wait for the next key of a multi-key binding.
	Chord time.Duration
}

// DefaultTiming is used when no other timing is configured.
var DefaultTiming = Timing{
	EscapeFirst: 50 * time.Millisecond,
	Escape:      25 * time.Millisecond,
	Chord:       time.Second,
}

// maxSequence bounds how many bytes an escape sequence may accumulate.
const maxSequence = 32

// Decoder turns raw keys from a KeySource into key tokens.
type Decoder struct {
	src   KeySource
	seqs  *SequenceTable
	cache map[RawKey]Key

	escapeFirst time.Duration
	escape      time.Duration

	// LiteralEscape makes an undecodable sequence come out as a plain
	// Escape, with the bytes after it pushed back to be decoded as keys of
	// their own. Otherwise the whole sequence becomes an Unknown key.
	LiteralEscape bool
}

// NewDecoder creates a decoder reading from src. A nil table means
// DefaultSequences.
func NewDecoder(src KeySource, seqs *SequenceTable) *Decoder {
	if seqs == nil {
		seqs = DefaultSequences()
	}
	return &Decoder{
		src:         src,
		seqs:        seqs,
		cache:       make(map[RawKey]Key),
		escapeFirst: DefaultTiming.EscapeFirst,
		escape:      DefaultTiming.Escape,
	}
}

// runeTimer is implemented by sources that wait for the rest of a
// multi-byte character.
type runeTimer interface {
	setRuneTimeout(d time.Duration)
}

// Timeouts sets the escape sequence timeouts. A source that assembles
// multi-byte characters waits rest for their trailing bytes.
func (d *Decoder) Timeouts(first, rest time.Duration) *Decoder {
	d.escapeFirst = first
	d.escape = rest
	if rt, ok := d.src.(runeTimer); ok {
		rt.setRuneTimeout(rest)
	}
	return d
}

// Sequences returns the escape sequence table in use.
func (d *Decoder) Sequences() *SequenceTable {
	return d.seqs
}

// Source returns the underlying key source.
func (d *Decoder) Source() KeySource {
	return d.src
}

// Decode blocks until a key arrives and returns its token.
func (d *Decoder) Decode() (Event, error) {
	ev, _, err := d.DecodeTimeout(0)
	return ev, err
}

// DecodeTimeout waits up to timeout for the first raw key of a token; a
// timeout <= 0 waits forever. ok is false if nothing arrived.
func (d *Decoder) DecodeTimeout(timeout time.Duration) (ev Event, ok bool, err error) {
	raw := rawBreak
	for raw == rawBreak {
		raw, err = d.src.ReadKey(timeout)
		if err != nil {
			return Event{}, false, err
		}
	}
	if raw == NoKey {
		return Event{}, false, nil
	}
	if raw != rawEscape {
		return Event{Key: d.single(raw), Raw: []RawKey{raw}}, true, nil
	}
	ev, err = d.escapeSequence()
	return ev, err == nil, err
}

// Unread pushes an event's raw keys back to the source so they are decoded
// again, to the same key.
func (d *Decoder) Unread(ev Event) {
	if len(ev.Raw) > 0 && ev.Raw[0] == rawEscape {
		d.src.Unread(rawBreak)
	}
	for i := len(ev.Raw) - 1; i >= 0; i-- {
		d.src.Unread(ev.Raw[i])
	}
}

// single decodes one raw key that is not ESC. The result only depends on the
// raw value, so it is cached.
func (d *Decoder) single(raw RawKey) Key {
	if k, ok := d.cache[raw]; ok {
		return k
	}
	k := singleKey(raw)
	d.cache[raw] = k
	return k
}

func singleKey(raw RawKey) Key {
	switch {
	case raw.IsNamed():
		s, mod := raw.Named()
		return Key{Special: s, Mod: mod}
	case raw == rawEscape:
		return KeyEscape
	case raw == 13 || raw == 10:
		return KeyEnter
	case raw == 9:
		return KeyTab
	case raw == 127 || raw == 8:
		return Key{Special: SpecialBackspace}
	case raw == 0:
		return Key{Special: SpecialSpace, Mod: ModCtrl}
	case raw < 27:
		// Ctrl+A through Ctrl+Z (1-26)
		return Key{Rune: rune('a' + raw - 1), Mod: ModCtrl}
	case raw < 32:
		// Ctrl+\ Ctrl+] Ctrl+^ Ctrl+_
		return Key{Rune: rune(raw + 64), Mod: ModCtrl}
	case raw == 32:
		return Key{Special: SpecialSpace}
	default:
		return Key{Rune: rune(raw)}
	}
}

// escapeSequence runs after an ESC has been read. It accumulates bytes until
// they form a known sequence or the terminal goes quiet.
func (d *Decoder) escapeSequence() (Event, error) {
	buf := []RawKey{rawEscape}
	timeout := d.escapeFirst

	for {
		next, err := d.src.ReadKey(timeout)
		if err != nil {
			// what we have is all there will be
			return d.resolve(buf), nil
		}
		timeout = d.escape

		switch {
		case next == NoKey || next == rawBreak:
			return d.resolve(buf), nil

		case next == rawEscape:
			if len(buf) == 1 {
				return Event{Key: KeyDoubleEscape, Raw: []RawKey{rawEscape, rawEscape}}, nil
			}
			d.src.Unread(next)
			return d.resolve(buf), nil

		case next.IsNamed():
			if len(buf) == 1 {
				s, mod := (next | MetaOffset).Named()
				return Event{Key: Key{Special: s, Mod: mod}, Raw: []RawKey{rawEscape, next}}, nil
			}
			d.src.Unread(next)
			return d.resolve(buf), nil
		}

		buf = append(buf, next)
		if ev, ok := d.resolveEarly(buf); ok {
			return ev, nil
		}
		if len(buf) >= maxSequence {
			return d.resolve(buf), nil
		}
	}
}

// resolveEarly reports a token as soon as buf cannot grow into a different
// one, saving the timeout wait.
func (d *Decoder) resolveEarly(buf []RawKey) (Event, bool) {
	seq, ok := rawString(buf)
	if !ok {
		// non-ASCII after ESC is Alt+rune
		if len(buf) == 2 {
			return d.resolve(buf), true
		}
		return Event{}, false
	}

	if _, found := d.seqs.Lookup(seq); found && !d.seqs.IsPrefix(seq) {
		return d.resolve(buf), true
	}
	if d.seqs.IsPrefix(seq) {
		return Event{}, false
	}

	switch {
	case len(seq) == 2:
		if seq[1] != '[' && seq[1] != 'O' {
			return d.resolve(buf), true
		}
	case seq[1] == 'O':
		// SS3 is always ESC O plus one byte
		return d.resolve(buf), true
	case seq[1] == '[':
		if c := seq[len(seq)-1]; len(seq) > 2 && c >= 0x40 && c <= 0x7e {
			return d.resolve(buf), true
		}
	}
	return Event{}, false
}

// resolve turns an accumulated buffer into a token. It never fails: what
// nothing recognises becomes an Unknown key.
func (d *Decoder) resolve(buf []RawKey) Event {
	ev := Event{Raw: buf}
	if len(buf) == 1 {
		ev.Key = KeyEscape
		return ev
	}

	seq, ascii := rawString(buf)
	if ascii {
		if k, ok := d.seqs.Lookup(seq); ok {
			ev.Key = k
			return ev
		}
	}

	if len(buf) == 2 {
		k := singleKey(buf[1])
		k.Mod |= ModAlt
		ev.Key = k
		return ev
	}

	if ascii {
		if k, ok := parseCSI(seq); ok {
			ev.Key = k
			return ev
		}
	}

	if d.LiteralEscape {
		for i := len(buf) - 1; i >= 1; i-- {
			d.src.Unread(buf[i])
		}
		return Event{Key: KeyEscape, Raw: buf[:1]}
	}

	var sb strings.Builder
	for _, r := range buf {
		sb.WriteRune(rune(r))
	}
	ev.Key = Unknown(sb.String())
	return ev
}

// rawString converts buf to a string if every key in it is ASCII.
func rawString(buf []RawKey) (string, bool) {
	b := make([]byte, len(buf))
	for i, r := range buf {
		if r < 0 || r >= 0x80 {
			return "", false
		}
		b[i] = byte(r)
	}
	return string(b), true
}

// parseCSI decodes parameterised CSI sequences the table does not list,
// such as ESC [ 1 ; 6 C or ESC [ 15 ; 5 ~.
func parseCSI(seq string) (Key, bool) {
	if !strings.HasPrefix(seq, "\x1b[") || len(seq) < 4 {
		return Key{}, false
	}
	body := seq[2 : len(seq)-1]
	final := seq[len(seq)-1]

	var mod Modifier
	if idx := strings.IndexByte(body, ';'); idx != -1 {
		param := body[idx+1:]
		if len(param) != 1 || param[0] < '1' || param[0] > '9' {
			return Key{}, false
		}
		mod = modifierParam(param[0])
		body = body[:idx]
	}

	if final == '~' {
		num, err := strconv.Atoi(body)
		if err != nil {
			return Key{}, false
		}
		s, ok := tildeKeys[num]
		if !ok {
			return Key{}, false
		}
		return Key{Special: s, Mod: mod}, true
	}

	if body != "1" && body != "" {
		return Key{}, false
	}
	switch final {
	case 'A':
		return Key{Special: SpecialUp, Mod: mod}, true
	case 'B':
		return Key{Special: SpecialDown, Mod: mod}, true
	case 'C':
		return Key{Special: SpecialRight, Mod: mod}, true
	case 'D':
		return Key{Special: SpecialLeft, Mod: mod}, true
	case 'H':
		return Key{Special: SpecialHome, Mod: mod}, true
	case 'F':
		return Key{Special: SpecialEnd, Mod: mod}, true
	case 'P':
		return Key{Special: SpecialF1, Mod: mod}, true
	case 'Q':
		return Key{Special: SpecialF2, Mod: mod}, true
	case 'R':
		return Key{Special: SpecialF3, Mod: mod}, true
	case 'S':
		return Key{Special: SpecialF4, Mod: mod}, true
	}
	return Key{}, false
}
