package formkey

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ctrlU RawKey = 21

func TestAccumulator(t *testing.T) {
	tests := []struct {
		name   string
		input  []RawKey
		bare   bool
		meta   bool
		count  int
		active bool
		next   Key
	}{
		{"no prefix", runes("j"), false, false, 1, false, Key{Rune: 'j'}},
		{"universal", []RawKey{ctrlU, 'j'}, false, false, 4, true, Key{Rune: 'j'}},
		{"universal twice", []RawKey{ctrlU, ctrlU, 'j'}, false, false, 16, true, Key{Rune: 'j'}},
		{"universal three times", []RawKey{ctrlU, ctrlU, ctrlU, 'j'}, false, false, 64, true, Key{Rune: 'j'}},
		{"universal digits", []RawKey{ctrlU, '4', '2', 'j'}, false, false, 42, true, Key{Rune: 'j'}},
		{"digits replace the default", []RawKey{ctrlU, ctrlU, '3', 'j'}, false, false, 3, true, Key{Rune: 'j'}},
		{"universal zero", []RawKey{ctrlU, '0', 'j'}, false, false, 1, true, Key{Rune: 'j'}},
		{"universal then C-u after digits", []RawKey{ctrlU, '5', ctrlU, 'j'}, false, false, 5, true, Key{Rune: 'j'}},
		{"bare digits off", runes("5j"), false, false, 1, false, Key{Rune: '5'}},
		{"bare digits", runes("5j"), true, false, 5, true, Key{Rune: 'j'}},
		{"bare multi digit", runes("12j"), true, false, 12, true, Key{Rune: 'j'}},
		{"bare digits with zero", runes("10j"), true, false, 10, true, Key{Rune: 'j'}},
		{"bare leading zero is a key", runes("0j"), true, false, 1, false, Key{Rune: '0'}},
		{"meta digits", []RawKey{27, '3', 'j'}, false, true, 3, true, Key{Rune: 'j'}},
		{"meta digits off", []RawKey{27, '3', 'j'}, false, false, 1, false, Key{Rune: '3', Mod: ModAlt}},
		{"universal key itself after prefix", []RawKey{ctrlU, '2', 'u'}, false, false, 2, true, Key{Rune: 'u'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder(script(tt.input...), nil)
			acc := NewAccumulator()
			acc.BareDigits = tt.bare
			acc.MetaDigits = tt.meta

			first, err := dec.Decode()
			if err != nil {
				t.Fatal(err)
			}
			ev, err := acc.Intercept(first, dec)
			if err != nil {
				t.Fatal(err)
			}
			if ev.Key != tt.next {
				t.Errorf("next key = %v, want %v", ev.Key, tt.next)
			}
			if acc.Active() != tt.active {
				t.Errorf("Active() = %v, want %v", acc.Active(), tt.active)
			}
			if got := acc.Take(); got != tt.count {
				t.Errorf("Take() = %d, want %d", got, tt.count)
			}
		})
	}
}

func TestAccumulatorTakeIsSingleUse(t *testing.T) {
	dec := NewDecoder(script(ctrlU, 'j'), nil)
	acc := NewAccumulator()
	first, _ := dec.Decode()
	acc.Intercept(first, dec)

	if got := acc.Take(); got != 4 {
		t.Fatalf("first Take() = %d, want 4", got)
	}
	if got := acc.Take(); got != 1 {
		t.Errorf("second Take() = %d, want 1", got)
	}
	if acc.Active() {
		t.Error("count still active after Take")
	}
}

func TestAccumulatorClamp(t *testing.T) {
	input := []RawKey{ctrlU}
	for range 12 {
		input = append(input, '9')
	}
	input = append(input, 'j')

	dec := NewDecoder(script(input...), nil)
	acc := NewAccumulator()
	first, _ := dec.Decode()
	acc.Intercept(first, dec)
	if got := acc.Take(); got != MaxCount {
		t.Errorf("Take() = %d, want %d", got, MaxCount)
	}
}

func TestAccumulatorUniversalDisabled(t *testing.T) {
	dec := NewDecoder(script(ctrlU), nil)
	acc := NewAccumulator()
	acc.Universal = Key{}
	first, _ := dec.Decode()
	ev, _ := acc.Intercept(first, dec)
	if ev.Key != (Key{Rune: 'u', Mod: ModCtrl}) {
		t.Errorf("got %v, want <C-u> passed through", ev.Key)
	}
}

func TestAccumulatorCustomUniversal(t *testing.T) {
	dec := NewDecoder(script(7, 7, 'x'), nil) // C-g
	acc := NewAccumulator()
	acc.Universal = Key{Rune: 'g', Mod: ModCtrl}
	first, _ := dec.Decode()
	acc.Intercept(first, dec)
	if got := acc.Take(); got != 16 {
		t.Errorf("Take() = %d, want 16", got)
	}
}

func TestAccumulatorOnCount(t *testing.T) {
	var seen []int
	dec := NewDecoder(script(ctrlU, ctrlU, '1', '2', 'j'), nil)
	acc := NewAccumulator()
	acc.OnCount = func(n int) { seen = append(seen, n) }
	first, _ := dec.Decode()
	acc.Intercept(first, dec)
	if diff := cmp.Diff([]int{4, 16, 1, 12}, seen); diff != "" {
		t.Errorf("OnCount mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulatorSourceError(t *testing.T) {
	dec := NewDecoder(script(ctrlU), nil) // EOF after the prefix
	acc := NewAccumulator()
	first, _ := dec.Decode()
	if _, err := acc.Intercept(first, dec); err == nil {
		t.Error("expected EOF")
	}
}
