package formkey

import "strings"

// ParsePattern parses a vim-style pattern string into a sequence of Keys.
//
// Vim-style pattern syntax:
//   - "j"           → single key j
//   - "gg"          → sequence: g then g
//   - "<C-w>"       → Ctrl+W
//   - "<A-x>"       → Alt+X
//   - "<S-Tab>"     → Shift+Tab
//   - "<C-A-d>"     → Ctrl+Alt+D
//   - "<C-w>j"      → Ctrl+W then j
//   - "<Esc>"       → Escape key
//   - "<DoubleEsc>" → Escape pressed twice in quick succession
//   - "<CR>"        → Enter key
//   - "<Space>"     → Space bar
//   - "<F1>"        → F1 key
//   - "<PageUp>"    → Page Up key
func ParsePattern(pattern string) []Key {
	if pattern == "" {
		return nil
	}

	var keys []Key
	runes := []rune(pattern)
	i := 0

	for i < len(runes) {
		if runes[i] == '<' {
			end := i + 1
			for end < len(runes) && runes[end] != '>' {
				end++
			}
			// "<>" is a literal '<' followed by '>'
			if end < len(runes) && end > i+1 {
				keys = append(keys, parseVimKey(string(runes[i+1:end])))
				i = end + 1
				continue
			}
		}
		keys = append(keys, runeKey(runes[i]))
		i++
	}

	return keys
}

// ParseKey parses a pattern that must name exactly one key.
func ParseKey(name string) (Key, bool) {
	keys := ParsePattern(name)
	if len(keys) != 1 {
		return Key{}, false
	}
	return keys[0], true
}

// runeKey maps a literal pattern character to the key a terminal produces for it.
func runeKey(r rune) Key {
	if r == ' ' {
		return Key{Special: SpecialSpace}
	}
	return Key{Rune: r}
}

// parseVimKey parses the content inside <...>
func parseVimKey(s string) Key {
	var key Key
	parts := strings.Split(s, "-")

	// "<C-->" splits into ["C", "", ""]
	if strings.HasSuffix(s, "--") {
		parts = append(strings.Split(strings.TrimSuffix(s, "--"), "-"), "-")
	}

	for i, part := range parts {
		lower := strings.ToLower(part)

		if i < len(parts)-1 {
			switch lower {
			case "c":
				key.Mod |= ModCtrl
				continue
			case "a", "m": // A for Alt, M for Meta (same thing)
				key.Mod |= ModAlt
				continue
			case "s":
				key.Mod |= ModShift
				continue
			}
		}

		if special, ok := vimToSpecial[lower]; ok {
			key.Special = special
		} else if lower == "lt" {
			key.Rune = '<'
		} else if r := []rune(part); len(r) > 0 {
			// unknown names keep their first character
			key.Rune = r[0]
		}
	}

	// control letters are reported lowercase by terminals
	if key.Mod&ModCtrl != 0 && key.Rune >= 'A' && key.Rune <= 'Z' {
		key.Rune += 'a' - 'A'
	}

	return key
}

// FormatKeys renders a key sequence back into pattern syntax.
func FormatKeys(keys []Key) string {
	var sb strings.Builder
	for _, k := range keys {
		if k.Special == SpecialNone && k.Mod == ModNone && k.Rune == '<' {
			sb.WriteString("<lt>")
			continue
		}
		sb.WriteString(k.String())
	}
	return sb.String()
}
