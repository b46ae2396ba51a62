package formkey

// MaxCount caps the multiplier so runaway prefixes stay sane.
const MaxCount = 1_000_000

// Accumulator collects numeric repeat-count prefixes ahead of dispatch.
//
// The universal argument key (<C-u> by default) starts a count of 4; each
// further press before any digit multiplies it by 4. Digits typed after it
// replace that default and build a decimal number. The first other key ends
// the prefix and goes on to dispatch as usual.
type Accumulator struct {
	// Universal starts a universal argument. The zero Key disables it.
	Universal Key
	// MetaDigits lets <A-0>..<A-9> start and extend a count.
	MetaDigits bool
	// BareDigits enables vim-style counts: 1-9 start one, 0-9 extend it.
	BareDigits bool
	// OnCount is called with the new value each time the count changes.
	OnCount func(n int)

	count  int
	active bool
}

// NewAccumulator returns an accumulator using <C-u> as universal argument.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Universal: Key{Rune: 'u', Mod: ModCtrl},
		count:     1,
	}
}

// Intercept inspects ev, the first key of a keystroke. If it begins a count
// prefix, Intercept reads the rest of the prefix from dec and returns the
// first key after it; otherwise ev comes back untouched. The count is then
// available from Take.
func (a *Accumulator) Intercept(ev Event, dec *Decoder) (Event, error) {
	const (
		none = iota
		universal
		digits
	)
	state := none

	for {
		k := ev.Key
		switch {
		case a.Universal != (Key{}) && k == a.Universal:
			switch state {
			case none:
				a.set(4)
			case universal:
				a.set(a.count * 4)
			}
			// after digits another <C-u> is accepted and ignored
			if state != digits {
				state = universal
			}

		case a.isDigit(k, state != none):
			d := digitOf(k)
			if state == digits {
				a.set(a.count*10 + d)
			} else {
				a.set(d)
			}
			state = digits

		default:
			return ev, nil
		}

		next, err := dec.Decode()
		if err != nil {
			return Event{}, err
		}
		ev = next
	}
}

// isDigit reports whether k extends (or, if started is false, may start) a
// count.
func (a *Accumulator) isDigit(k Key, started bool) bool {
	if k.Special != SpecialNone || k.Rune < '0' || k.Rune > '9' {
		return false
	}
	switch {
	case k.Mod == ModAlt:
		return a.MetaDigits
	case k.Mod != ModNone:
		return false
	case started:
		return true
	case a.BareDigits:
		// 0 is a command of its own when nothing has been typed
		return k.Rune != '0'
	}
	return false
}

func digitOf(k Key) int {
	return int(k.Rune - '0')
}

func (a *Accumulator) set(n int) {
	a.count = min(n, MaxCount)
	a.active = true
	if a.OnCount != nil {
		a.OnCount(a.count)
	}
}

// Active reports whether a count has been typed and not yet taken.
func (a *Accumulator) Active() bool {
	return a.active
}

// Peek returns the current count without consuming it.
func (a *Accumulator) Peek() int {
	if !a.active || a.count < 1 {
		return 1
	}
	return a.count
}

// Take returns the count and resets it to 1. A count is used once.
func (a *Accumulator) Take() int {
	n := a.Peek()
	a.Reset()
	return n
}

// Reset discards any typed count.
func (a *Accumulator) Reset() {
	a.count = 1
	a.active = false
}
