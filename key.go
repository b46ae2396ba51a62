package formkey

import (
	"strconv"
	"strings"
)

// Modifier represents key modifiers (Ctrl, Alt, Shift).
type Modifier uint8

const (
	ModNone Modifier = 0
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
)

// Special represents special (non-printable) keys.
type Special uint8

const (
	SpecialNone Special = iota
	SpecialEscape
	SpecialEnter
	SpecialTab
	SpecialSpace
	SpecialBackspace
	SpecialUp
	SpecialDown
	SpecialLeft
	SpecialRight
	SpecialHome
	SpecialEnd
	SpecialPageUp
	SpecialPageDown
	SpecialInsert
	SpecialDelete
	SpecialF1
	SpecialF2
	SpecialF3
	SpecialF4
	SpecialF5
	SpecialF6
	SpecialF7
	SpecialF8
	SpecialF9
	SpecialF10
	SpecialF11
	SpecialF12
	SpecialDoubleEscape
	SpecialUnknown
)

// Key is the canonical token for one logical keypress.
//
// Raw is only set for SpecialUnknown and holds the undecodable bytes, so two
// different unknown sequences never compare equal.
type Key struct {
	Rune    rune
	Mod     Modifier
	Special Special
	Raw     string
}

// Common keys.
var (
	KeyEscape       = Key{Special: SpecialEscape}
	KeyEnter        = Key{Special: SpecialEnter}
	KeyTab          = Key{Special: SpecialTab}
	KeyBacktab      = Key{Special: SpecialTab, Mod: ModShift}
	KeyDoubleEscape = Key{Special: SpecialDoubleEscape}
)

// Unknown returns the token for a raw sequence nothing could decode.
func Unknown(raw string) Key {
	return Key{Special: SpecialUnknown, Raw: raw}
}

// IsUnknown reports whether the key is an undecodable sequence.
func (k Key) IsUnknown() bool {
	return k.Special == SpecialUnknown
}

// String returns a vim-style representation of the key.
func (k Key) String() string {
	if k.Special == SpecialNone && k.Mod == ModNone && k.Rune != 0 {
		return string(k.Rune)
	}
	if k.Special == SpecialUnknown {
		return "<Unknown:" + caretEscape(k.Raw) + ">"
	}

	var parts []string
	if k.Mod&ModCtrl != 0 {
		parts = append(parts, "C")
	}
	if k.Mod&ModAlt != 0 {
		parts = append(parts, "A")
	}
	if k.Mod&ModShift != 0 {
		parts = append(parts, "S")
	}

	var keyPart string
	if k.Special != SpecialNone {
		keyPart = specialToVim[k.Special]
	} else if k.Rune != 0 {
		keyPart = string(k.Rune)
	}

	if len(parts) > 0 || k.Special != SpecialNone {
		return "<" + strings.Join(append(parts, keyPart), "-") + ">"
	}
	return keyPart
}

// caretEscape renders control bytes in ^X notation.
func caretEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r < 0x20:
			sb.WriteByte('^')
			sb.WriteRune(r + '@')
		case r == 0x7f:
			sb.WriteString("^?")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

var specialToVim = map[Special]string{
	SpecialEscape:       "Esc",
	SpecialEnter:        "CR",
	SpecialTab:          "Tab",
	SpecialSpace:        "Space",
	SpecialBackspace:    "BS",
	SpecialUp:           "Up",
	SpecialDown:         "Down",
	SpecialLeft:         "Left",
	SpecialRight:        "Right",
	SpecialHome:         "Home",
	SpecialEnd:          "End",
	SpecialPageUp:       "PageUp",
	SpecialPageDown:     "PageDown",
	SpecialInsert:       "Insert",
	SpecialDelete:       "Del",
	SpecialF1:           "F1",
	SpecialF2:           "F2",
	SpecialF3:           "F3",
	SpecialF4:           "F4",
	SpecialF5:           "F5",
	SpecialF6:           "F6",
	SpecialF7:           "F7",
	SpecialF8:           "F8",
	SpecialF9:           "F9",
	SpecialF10:          "F10",
	SpecialF11:          "F11",
	SpecialF12:          "F12",
	SpecialDoubleEscape: "DoubleEsc",
	SpecialUnknown:      "Unknown",
}

var vimToSpecial = map[string]Special{
	"esc":       SpecialEscape,
	"escape":    SpecialEscape,
	"cr":        SpecialEnter,
	"enter":     SpecialEnter,
	"return":    SpecialEnter,
	"tab":       SpecialTab,
	"space":     SpecialSpace,
	"bs":        SpecialBackspace,
	"backspace": SpecialBackspace,
	"up":        SpecialUp,
	"down":      SpecialDown,
	"left":      SpecialLeft,
	"right":     SpecialRight,
	"home":      SpecialHome,
	"end":       SpecialEnd,
	"pageup":    SpecialPageUp,
	"pagedown":  SpecialPageDown,
	"insert":    SpecialInsert,
	"del":       SpecialDelete,
	"delete":    SpecialDelete,
	"f1":        SpecialF1,
	"f2":        SpecialF2,
	"f3":        SpecialF3,
	"f4":        SpecialF4,
	"f5":        SpecialF5,
	"f6":        SpecialF6,
	"f7":        SpecialF7,
	"f8":        SpecialF8,
	"f9":        SpecialF9,
	"f10":       SpecialF10,
	"f11":       SpecialF11,
	"f12":       SpecialF12,
	"doubleesc": SpecialDoubleEscape,
	"escesc":    SpecialDoubleEscape,
}

// RawKey is the code returned by a single terminal read.
//
// Values up to unicode.MaxRune are characters. Keys the terminal reports
// directly (arrows, function keys) live above that, see NamedKey.
type RawKey int32

const (
	// NoKey means no key arrived within the timeout.
	NoKey RawKey = -1

	rawEscape RawKey = 27

	namedBase RawKey = 0x200000

	// rawBreak follows a pushed back escape sequence so that decoding it
	// again stops where it stopped the first time.
	rawBreak = namedBase

	// MetaOffset turns a named key code into its Meta combination.
	MetaOffset = RawKey(ModAlt) << 8
)

// NamedKey returns the raw code for a directly reported named key.
func NamedKey(s Special, mod Modifier) RawKey {
	return namedBase + RawKey(mod)<<8 + RawKey(s)
}

// IsNamed reports whether the code is a directly reported named key.
func (r RawKey) IsNamed() bool {
	return r >= namedBase
}

// Named splits a named key code back into key and modifiers.
func (r RawKey) Named() (Special, Modifier) {
	v := r - namedBase
	return Special(v & 0xff), Modifier(v >> 8)
}

func (r RawKey) String() string {
	switch {
	case r == NoKey:
		return "NoKey"
	case r.IsNamed():
		s, mod := r.Named()
		return Key{Special: s, Mod: mod}.String()
	case r < 0x80:
		return strconv.Quote(string(rune(r)))
	default:
		return string(rune(r))
	}
}

// Event is a decoded key together with the raw keys it was decoded from.
type Event struct {
	Key Key
	Raw []RawKey
}
