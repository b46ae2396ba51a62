package formkey

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xo/terminfo"
)

// SequenceTable maps terminal escape sequences to keys. It also tracks every
// proper prefix of every sequence, so the decoder can tell a complete match
// from one that may still grow.
type SequenceTable struct {
	seqs     map[string]Key
	prefixes map[string]int // prefix -> number of sequences extending it
}

// NewSequenceTable returns an empty table.
func NewSequenceTable() *SequenceTable {
	return &SequenceTable{
		seqs:     make(map[string]Key),
		prefixes: make(map[string]int),
	}
}

// Set maps seq to k, replacing any previous mapping.
func (t *SequenceTable) Set(seq string, k Key) {
	if seq == "" {
		return
	}
	if _, ok := t.seqs[seq]; !ok {
		for i := 1; i < len(seq); i++ {
			t.prefixes[seq[:i]]++
		}
	}
	t.seqs[seq] = k
}

// Delete removes seq from the table.
func (t *SequenceTable) Delete(seq string) {
	if _, ok := t.seqs[seq]; !ok {
		return
	}
	delete(t.seqs, seq)
	for i := 1; i < len(seq); i++ {
		p := seq[:i]
		if t.prefixes[p]--; t.prefixes[p] <= 0 {
			delete(t.prefixes, p)
		}
	}
}

// Lookup returns the key mapped to seq.
func (t *SequenceTable) Lookup(seq string) (Key, bool) {
	k, ok := t.seqs[seq]
	return k, ok
}

// IsPrefix reports whether some longer sequence starts with seq.
func (t *SequenceTable) IsPrefix(seq string) bool {
	return t.prefixes[seq] > 0
}

// Len returns the number of sequences in the table.
func (t *SequenceTable) Len() int {
	return len(t.seqs)
}

// Clone returns an independent copy.
func (t *SequenceTable) Clone() *SequenceTable {
	c := NewSequenceTable()
	for seq, k := range t.seqs {
		c.Set(seq, k)
	}
	return c
}

// DefaultSequences returns the sequences sent by xterm, vt100/vt220, rxvt and
// the linux console.
func DefaultSequences() *SequenceTable {
	t := NewSequenceTable()

	arrows := []struct {
		final   byte
		special Special
	}{
		{'A', SpecialUp},
		{'B', SpecialDown},
		{'C', SpecialRight},
		{'D', SpecialLeft},
		{'H', SpecialHome},
		{'F', SpecialEnd},
	}
	for _, a := range arrows {
		t.Set("\x1b["+string(a.final), Key{Special: a.special})
		t.Set("\x1bO"+string(a.final), Key{Special: a.special})
		// xterm modified form: ESC [ 1 ; mod X
		for code := byte('2'); code <= '8'; code++ {
			t.Set("\x1b[1;"+string(code)+string(a.final), Key{Special: a.special, Mod: modifierParam(code)})
		}
	}

	// rxvt shifted arrows
	t.Set("\x1b[a", Key{Special: SpecialUp, Mod: ModShift})
	t.Set("\x1b[b", Key{Special: SpecialDown, Mod: ModShift})
	t.Set("\x1b[c", Key{Special: SpecialRight, Mod: ModShift})
	t.Set("\x1b[d", Key{Special: SpecialLeft, Mod: ModShift})

	t.Set("\x1b[Z", KeyBacktab)

	ss3 := map[byte]Special{'P': SpecialF1, 'Q': SpecialF2, 'R': SpecialF3, 'S': SpecialF4}
	for final, s := range ss3 {
		t.Set("\x1bO"+string(final), Key{Special: s})
		t.Set("\x1b[1;2"+string(final), Key{Special: s, Mod: ModShift})
	}

	// linux console F1-F5
	t.Set("\x1b[[A", Key{Special: SpecialF1})
	t.Set("\x1b[[B", Key{Special: SpecialF2})
	t.Set("\x1b[[C", Key{Special: SpecialF3})
	t.Set("\x1b[[D", Key{Special: SpecialF4})
	t.Set("\x1b[[E", Key{Special: SpecialF5})

	for num, s := range tildeKeys {
		t.Set(fmt.Sprintf("\x1b[%d~", num), Key{Special: s})
	}

	return t
}

// tildeKeys maps the number in ESC [ N ~ to its key.
var tildeKeys = map[int]Special{
	1:  SpecialHome,
	2:  SpecialInsert,
	3:  SpecialDelete,
	4:  SpecialEnd,
	5:  SpecialPageUp,
	6:  SpecialPageDown,
	7:  SpecialHome,
	8:  SpecialEnd,
	11: SpecialF1,
	12: SpecialF2,
	13: SpecialF3,
	14: SpecialF4,
	15: SpecialF5,
	17: SpecialF6,
	18: SpecialF7,
	19: SpecialF8,
	20: SpecialF9,
	21: SpecialF10,
	23: SpecialF11,
	24: SpecialF12,
}

// modifierParam converts an xterm modifier parameter to Modifier flags.
// Terminal modifier encoding: 1 + (shift?1:0) + (alt?2:0) + (ctrl?4:0)
func modifierParam(b byte) Modifier {
	n := int(b - '1')
	var mod Modifier
	if n&1 != 0 {
		mod |= ModShift
	}
	if n&2 != 0 {
		mod |= ModAlt
	}
	if n&4 != 0 {
		mod |= ModCtrl
	}
	return mod
}

// terminfoKeys lists the terminfo capabilities read by LoadTerminfo.
var terminfoKeys = map[int]Key{
	terminfo.KeyUp:        {Special: SpecialUp},
	terminfo.KeyDown:      {Special: SpecialDown},
	terminfo.KeyLeft:      {Special: SpecialLeft},
	terminfo.KeyRight:     {Special: SpecialRight},
	terminfo.KeyHome:      {Special: SpecialHome},
	terminfo.KeyEnd:       {Special: SpecialEnd},
	terminfo.KeyNpage:     {Special: SpecialPageDown},
	terminfo.KeyPpage:     {Special: SpecialPageUp},
	terminfo.KeyIc:        {Special: SpecialInsert},
	terminfo.KeyDc:        {Special: SpecialDelete},
	terminfo.KeyBtab:      KeyBacktab,
	terminfo.KeyBackspace: {Special: SpecialBackspace},
	terminfo.KeyF1:        {Special: SpecialF1},
	terminfo.KeyF2:        {Special: SpecialF2},
	terminfo.KeyF3:        {Special: SpecialF3},
	terminfo.KeyF4:        {Special: SpecialF4},
	terminfo.KeyF5:        {Special: SpecialF5},
	terminfo.KeyF6:        {Special: SpecialF6},
	terminfo.KeyF7:        {Special: SpecialF7},
	terminfo.KeyF8:        {Special: SpecialF8},
	terminfo.KeyF9:        {Special: SpecialF9},
	terminfo.KeyF10:       {Special: SpecialF10},
	terminfo.KeyF11:       {Special: SpecialF11},
	terminfo.KeyF12:       {Special: SpecialF12},
}

// LoadTerminfo adds the key sequences described by a terminfo entry. Only
// multi-byte sequences starting with ESC are taken; single bytes such as
// key_backspace are decoded without the table.
func (t *SequenceTable) LoadTerminfo(ti *terminfo.Terminfo) int {
	if ti == nil {
		return 0
	}
	n := 0
	for capability, k := range terminfoKeys {
		seq, ok := ti.Strings[capability]
		if !ok || len(seq) < 2 || seq[0] != 0x1b {
			continue
		}
		t.Set(string(seq), k)
		n++
	}
	return n
}

// SequencesFromEnv returns the default sequences extended with the terminfo
// entry for $TERM. A missing or unreadable entry leaves the defaults alone.
func SequencesFromEnv(logger *slog.Logger) *SequenceTable {
	t := DefaultSequences()
	ti, err := terminfo.LoadFromEnv()
	if err != nil {
		loggerOrDiscard(logger).Debug("terminfo unavailable", "err", err)
		return t
	}
	t.LoadTerminfo(ti)
	return t
}

// LoadOverrides reads a TOML file mapping escape sequences to key names:
//
//	[keys]
//	"\u001b[1;2P" = "<S-F1>"
//	"^[[25~" = "<F13>"
//
// Sequences may use caret notation for ESC ("^["). The file is untrusted:
// malformed entries are skipped with a warning and reported in the skipped
// count, never as an error. Only a file that is not TOML at all is an error.
func (t *SequenceTable) LoadOverrides(r io.Reader, logger *slog.Logger) (applied, skipped int, err error) {
	var raw map[string]interface{}
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return 0, 0, fmt.Errorf("parse key overrides: %w", err)
	}
	keys, ok := raw["keys"].(map[string]interface{})
	if !ok {
		if raw["keys"] != nil {
			loggerOrDiscard(logger).Warn("key overrides: [keys] is not a table")
			return 0, 1, nil
		}
		return 0, 0, nil
	}
	applied, skipped = t.applyOverrides(keys, logger)
	return applied, skipped, nil
}

// applyOverrides applies sequence -> key name entries from a decoded TOML table.
func (t *SequenceTable) applyOverrides(entries map[string]interface{}, logger *slog.Logger) (applied, skipped int) {
	logger = loggerOrDiscard(logger)
	for seq, v := range entries {
		name, ok := v.(string)
		if !ok {
			logger.Warn("key overrides: value is not a string", "sequence", caretEscape(seq))
			skipped++
			continue
		}
		seq = expandCaret(seq)
		if len(seq) < 2 || seq[0] != 0x1b {
			logger.Warn("key overrides: sequence must start with ESC", "sequence", caretEscape(seq), "key", name)
			skipped++
			continue
		}
		k, ok := ParseKey(name)
		if !ok || k.IsUnknown() {
			logger.Warn("key overrides: not a single key name", "sequence", caretEscape(seq), "key", name)
			skipped++
			continue
		}
		t.Set(seq, k)
		applied++
	}
	return applied, skipped
}

// LoadOverridesFile is LoadOverrides for a file path. A missing file is fine.
func (t *SequenceTable) LoadOverridesFile(path string, logger *slog.Logger) (applied, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	defer f.Close()
	return t.LoadOverrides(f, logger)
}

// expandCaret turns a leading caret-notation ESC ("^[") into the byte.
func expandCaret(s string) string {
	return strings.ReplaceAll(s, "^[", "\x1b")
}
