package formkey

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    []Key
	}{
		// Single keys
		{"j", []Key{{Rune: 'j'}}},
		{"J", []Key{{Rune: 'J'}}},
		{"1", []Key{{Rune: '1'}}},
		{"0", []Key{{Rune: '0'}}},

		// Sequences
		{"gg", []Key{{Rune: 'g'}, {Rune: 'g'}}},
		{"ciw", []Key{{Rune: 'c'}, {Rune: 'i'}, {Rune: 'w'}}},
		{"dd", []Key{{Rune: 'd'}, {Rune: 'd'}}},

		// Vim-style chords
		{"<C-w>", []Key{{Rune: 'w', Mod: ModCtrl}}},
		{"<C-W>", []Key{{Rune: 'w', Mod: ModCtrl}}}, // terminals can't tell C-W from C-w
		{"<A-x>", []Key{{Rune: 'x', Mod: ModAlt}}},
		{"<M-x>", []Key{{Rune: 'x', Mod: ModAlt}}}, // M = Meta = Alt
		{"<A-X>", []Key{{Rune: 'X', Mod: ModAlt}}},
		{"<S-Tab>", []Key{{Special: SpecialTab, Mod: ModShift}}},
		{"<C-A-d>", []Key{{Rune: 'd', Mod: ModCtrl | ModAlt}}},
		{"<C-->", []Key{{Rune: '-', Mod: ModCtrl}}},

		// Chord sequences
		{"<C-w><C-j>", []Key{{Rune: 'w', Mod: ModCtrl}, {Rune: 'j', Mod: ModCtrl}}},
		{"<C-w>j", []Key{{Rune: 'w', Mod: ModCtrl}, {Rune: 'j'}}},
		{"g<C-d>", []Key{{Rune: 'g'}, {Rune: 'd', Mod: ModCtrl}}},

		// Special keys
		{"<Esc>", []Key{{Special: SpecialEscape}}},
		{"<CR>", []Key{{Special: SpecialEnter}}},
		{"<Enter>", []Key{{Special: SpecialEnter}}},
		{"<Tab>", []Key{{Special: SpecialTab}}},
		{"<Space>", []Key{{Special: SpecialSpace}}},
		{"<BS>", []Key{{Special: SpecialBackspace}}},
		{"<DoubleEsc>", []Key{{Special: SpecialDoubleEscape}}},
		{"<lt>", []Key{{Rune: '<'}}},

		// Arrow keys
		{"<Up>", []Key{{Special: SpecialUp}}},
		{"<Down>", []Key{{Special: SpecialDown}}},
		{"<Left>", []Key{{Special: SpecialLeft}}},
		{"<Right>", []Key{{Special: SpecialRight}}},

		// Page navigation
		{"<PageUp>", []Key{{Special: SpecialPageUp}}},
		{"<PageDown>", []Key{{Special: SpecialPageDown}}},
		{"<Home>", []Key{{Special: SpecialHome}}},
		{"<End>", []Key{{Special: SpecialEnd}}},

		// Function keys
		{"<F1>", []Key{{Special: SpecialF1}}},
		{"<F12>", []Key{{Special: SpecialF12}}},

		// Modifiers with special keys
		{"<C-Esc>", []Key{{Special: SpecialEscape, Mod: ModCtrl}}},
		{"<C-Up>", []Key{{Special: SpecialUp, Mod: ModCtrl}}},
		{"<A-Left>", []Key{{Special: SpecialLeft, Mod: ModAlt}}},
		{"<C-Space>", []Key{{Special: SpecialSpace, Mod: ModCtrl}}},

		// Complex sequences
		{"g<Esc>", []Key{{Rune: 'g'}, {Special: SpecialEscape}}},
		{"<C-w><Up>", []Key{{Rune: 'w', Mod: ModCtrl}, {Special: SpecialUp}}},
		{"a<Space>b", []Key{{Rune: 'a'}, {Special: SpecialSpace}, {Rune: 'b'}}},
		{"a b", []Key{{Rune: 'a'}, {Special: SpecialSpace}, {Rune: 'b'}}},

		// "space" as literal keys (not special)
		{"space", []Key{{Rune: 's'}, {Rune: 'p'}, {Rune: 'a'}, {Rune: 'c'}, {Rune: 'e'}}},

		// Unclosed and empty brackets are literal
		{"<", []Key{{Rune: '<'}}},
		{"<>", []Key{{Rune: '<'}, {Rune: '>'}}},
		{"a<b", []Key{{Rune: 'a'}, {Rune: '<'}, {Rune: 'b'}}},

		// Edge cases
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got := ParsePattern(tt.pattern)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePattern(%q) mismatch (-want +got):\n%s", tt.pattern, diff)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	k, ok := ParseKey("<S-F1>")
	if !ok || k != (Key{Special: SpecialF1, Mod: ModShift}) {
		t.Errorf("ParseKey(<S-F1>) = %v, %v", k, ok)
	}
	if _, ok := ParseKey("gg"); ok {
		t.Error("ParseKey should reject sequences")
	}
	if _, ok := ParseKey(""); ok {
		t.Error("ParseKey should reject empty names")
	}
}

func TestFormatKeys(t *testing.T) {
	for _, pattern := range []string{
		"gg",
		"<C-w>j",
		"<S-Tab>",
		"<lt>a",
		"<C-A-d><F5>",
		"<DoubleEsc>",
	} {
		keys := ParsePattern(pattern)
		if got := FormatKeys(keys); got != pattern {
			t.Errorf("FormatKeys(ParsePattern(%q)) = %q", pattern, got)
		}
		if diff := cmp.Diff(keys, ParsePattern(FormatKeys(keys))); diff != "" {
			t.Errorf("%q does not survive formatting (-want +got):\n%s", pattern, diff)
		}
	}
}
