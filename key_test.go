package formkey

import "testing"

func TestKeyString(t *testing.T) {
	tests := []struct {
		key  Key
		want string
	}{
		{Key{Rune: 'j'}, "j"},
		{Key{Rune: 'J'}, "J"},
		{Key{Rune: 'w', Mod: ModCtrl}, "<C-w>"},
		{Key{Rune: 'x', Mod: ModAlt}, "<A-x>"},
		{Key{Rune: 'd', Mod: ModCtrl | ModAlt}, "<C-A-d>"},
		{Key{Special: SpecialEscape}, "<Esc>"},
		{Key{Special: SpecialEnter}, "<CR>"},
		{Key{Special: SpecialEscape, Mod: ModCtrl}, "<C-Esc>"},
		{Key{Special: SpecialTab, Mod: ModShift}, "<S-Tab>"},
		{Key{Special: SpecialUp, Mod: ModCtrl | ModShift}, "<C-S-Up>"},
		{KeyDoubleEscape, "<DoubleEsc>"},
		{Unknown("\x1b[99x"), "<Unknown:^[[99x>"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.key.String()
			if got != tt.want {
				t.Errorf("Key.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownKeysDiffer(t *testing.T) {
	a := Unknown("\x1b[99x")
	b := Unknown("\x1b[98x")
	if a == b {
		t.Error("different unknown sequences should not compare equal")
	}
	if !a.IsUnknown() {
		t.Error("IsUnknown() = false")
	}
	if (Key{Rune: 'x'}).IsUnknown() {
		t.Error("plain key reported as unknown")
	}
}

func TestNamedKeyRoundTrip(t *testing.T) {
	for s := SpecialEscape; s < SpecialUnknown; s++ {
		for _, mod := range []Modifier{ModNone, ModCtrl, ModShift, ModCtrl | ModAlt | ModShift} {
			raw := NamedKey(s, mod)
			if !raw.IsNamed() {
				t.Fatalf("NamedKey(%v, %v) not named", s, mod)
			}
			gs, gm := raw.Named()
			if gs != s || gm != mod {
				t.Errorf("NamedKey(%v, %v).Named() = %v, %v", s, mod, gs, gm)
			}
		}
	}
}

func TestMetaOffset(t *testing.T) {
	raw := NamedKey(SpecialUp, ModCtrl) | MetaOffset
	s, mod := raw.Named()
	if s != SpecialUp || mod != ModCtrl|ModAlt {
		t.Errorf("got %v %v, want Up with Ctrl|Alt", s, mod)
	}
}

func TestRawKeyString(t *testing.T) {
	tests := []struct {
		raw  RawKey
		want string
	}{
		{NoKey, "NoKey"},
		{'a', `"a"`},
		{27, `"\x1b"`},
		{'é', "é"},
		{NamedKey(SpecialF5, ModNone), "<F5>"},
		{NamedKey(SpecialLeft, ModShift), "<S-Left>"},
	}
	for _, tt := range tests {
		if got := tt.raw.String(); got != tt.want {
			t.Errorf("RawKey(%d).String() = %q, want %q", int32(tt.raw), got, tt.want)
		}
	}
}
