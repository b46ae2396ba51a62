package formkey

import (
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
)

// ErrSourceClosed is returned by sources whose event stream has ended.
var ErrSourceClosed = errors.New("formkey: key source closed")

// TcellSource feeds key events from a tcell screen into the decoder. tcell
// has already parsed escape sequences, so named keys arrive as NamedKey codes
// and Alt combinations as an ESC prefix; the decoder turns both back into the
// same tokens a raw terminal would give. Events that start with ESC end with a
// boundary marker, so queued events never run together.
type TcellSource struct {
	pushback

	events chan RawKey
	done   chan struct{}
}

// NewTcellSource starts polling screen for events. The screen must already
// be initialised. Close stops polling, Screen.Fini does too.
func NewTcellSource(screen tcell.Screen) *TcellSource {
	s := &TcellSource{
		events: make(chan RawKey, 64),
		done:   make(chan struct{}),
	}
	go s.pump(screen)
	return s
}

func (s *TcellSource) pump(screen tcell.Screen) {
	defer close(s.events)
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		kev, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		for _, k := range tcellRawKeys(kev) {
			select {
			case s.events <- k:
			case <-s.done:
				return
			}
		}
	}
}

// Close stops delivering events.
func (s *TcellSource) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// ReadKey implements KeySource.
func (s *TcellSource) ReadKey(timeout time.Duration) (RawKey, error) {
	if k, ok := s.pop(); ok {
		return k, nil
	}

	if timeout <= 0 {
		k, ok := <-s.events
		if !ok {
			return NoKey, ErrSourceClosed
		}
		return k, nil
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case k, ok := <-s.events:
		if !ok {
			return NoKey, ErrSourceClosed
		}
		return k, nil
	case <-t.C:
		return NoKey, nil
	}
}

var tcellSpecials = map[tcell.Key]Special{
	tcell.KeyUp:     SpecialUp,
	tcell.KeyDown:   SpecialDown,
	tcell.KeyLeft:   SpecialLeft,
	tcell.KeyRight:  SpecialRight,
	tcell.KeyHome:   SpecialHome,
	tcell.KeyEnd:    SpecialEnd,
	tcell.KeyPgUp:   SpecialPageUp,
	tcell.KeyPgDn:   SpecialPageDown,
	tcell.KeyInsert: SpecialInsert,
	tcell.KeyDelete: SpecialDelete,
	tcell.KeyF1:     SpecialF1,
	tcell.KeyF2:     SpecialF2,
	tcell.KeyF3:     SpecialF3,
	tcell.KeyF4:     SpecialF4,
	tcell.KeyF5:     SpecialF5,
	tcell.KeyF6:     SpecialF6,
	tcell.KeyF7:     SpecialF7,
	tcell.KeyF8:     SpecialF8,
	tcell.KeyF9:     SpecialF9,
	tcell.KeyF10:    SpecialF10,
	tcell.KeyF11:    SpecialF11,
	tcell.KeyF12:    SpecialF12,
}

// tcellRawKeys converts one tcell key event into the raw keys a terminal
// would have sent for it.
func tcellRawKeys(ev *tcell.EventKey) []RawKey {
	mod := ev.Modifiers()
	alt := mod&(tcell.ModAlt|tcell.ModMeta) != 0

	var out []RawKey
	switch k := ev.Key(); {
	case k == tcell.KeyEscape && alt:
		// ESC plus a named Escape decodes as <A-Esc>, not a double escape
		return []RawKey{rawEscape, NamedKey(SpecialEscape, ModNone)}
	case k == tcell.KeyRune:
		out = []RawKey{RawKey(ev.Rune())}
	case k == tcell.KeyBacktab:
		out = []RawKey{NamedKey(SpecialTab, ModShift)}
	case k < tcell.KeyRune:
		// control keys are their ASCII value in tcell
		out = []RawKey{RawKey(k)}
	default:
		s, ok := tcellSpecials[k]
		if !ok {
			return nil
		}
		var m Modifier
		if mod&tcell.ModCtrl != 0 {
			m |= ModCtrl
		}
		if mod&tcell.ModShift != 0 {
			m |= ModShift
		}
		out = []RawKey{NamedKey(s, m)}
	}

	if alt {
		out = append([]RawKey{rawEscape}, out...)
	}
	if out[0] == rawEscape && !out[len(out)-1].IsNamed() {
		// tcell already split the events, the decoder must not join them
		out = append(out, rawBreak)
	}
	return out
}
