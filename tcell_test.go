package formkey

import (
	"errors"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"
)

func TestTcellRawKeys(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want []RawKey
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModNone), []RawKey{'j'}},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), []RawKey{27, 'x', rawBreak}},
		{"up", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), []RawKey{NamedKey(SpecialUp, ModNone)}},
		{"ctrl up", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModCtrl), []RawKey{NamedKey(SpecialUp, ModCtrl)}},
		{"shift f5", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModShift), []RawKey{NamedKey(SpecialF5, ModShift)}},
		{"alt left", tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModAlt), []RawKey{27, NamedKey(SpecialLeft, ModNone)}},
		{"backtab", tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone), []RawKey{NamedKey(SpecialTab, ModShift)}},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), []RawKey{13}},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), []RawKey{27, rawBreak}},
		{"alt escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModAlt), []RawKey{27, NamedKey(SpecialEscape, ModNone)}},
		{"alt enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModAlt), []RawKey{27, 13, rawBreak}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tcellRawKeys(tt.ev)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTcellSource(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}

	src := NewTcellSource(screen)
	defer src.Close()

	screen.InjectKey(tcell.KeyRune, 'g', tcell.ModNone)
	screen.InjectKey(tcell.KeyDown, 0, tcell.ModCtrl)
	screen.InjectKey(tcell.KeyRune, 'x', tcell.ModAlt)
	screen.InjectKey(tcell.KeyUp, 0, tcell.ModAlt)

	dec := NewDecoder(src, nil).Timeouts(time.Second, time.Second)
	var got []Key
	for range 4 {
		ev, ok, err := dec.DecodeTimeout(time.Second)
		if err != nil || !ok {
			t.Fatalf("DecodeTimeout = %v, %v", ok, err)
		}
		got = append(got, ev.Key)
	}

	want := []Key{
		{Rune: 'g'},
		{Special: SpecialDown, Mod: ModCtrl},
		{Rune: 'x', Mod: ModAlt},
		{Special: SpecialUp, Mod: ModAlt},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if k, err := src.ReadKey(5 * time.Millisecond); k != NoKey || err != nil {
		t.Errorf("idle ReadKey = %v, %v; want NoKey", k, err)
	}

	screen.Fini()
	if _, err := src.ReadKey(time.Second); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("after Fini err = %v, want ErrSourceClosed", err)
	}
}

func TestTcellSourceQueuedEventsStayApart(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()

	src := NewTcellSource(screen)
	defer src.Close()

	// all queued before decoding starts, as with typeahead or a paste
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, 'j', tcell.ModNone)
	screen.InjectKey(tcell.KeyRune, '[', tcell.ModAlt)
	screen.InjectKey(tcell.KeyRune, 'A', tcell.ModNone)
	screen.InjectKey(tcell.KeyEscape, 0, tcell.ModAlt)
	screen.InjectKey(tcell.KeyRune, 'O', tcell.ModAlt)
	screen.InjectKey(tcell.KeyRune, 'Q', tcell.ModNone)

	dec := NewDecoder(src, nil).Timeouts(time.Second, time.Second)
	var got []Key
	for range 7 {
		ev, ok, err := dec.DecodeTimeout(time.Second)
		if err != nil || !ok {
			t.Fatalf("DecodeTimeout = %v, %v after %v", ok, err, got)
		}
		got = append(got, ev.Key)
	}

	want := []Key{
		KeyEscape,
		{Rune: 'j'},
		{Rune: '[', Mod: ModAlt},
		{Rune: 'A'},
		{Special: SpecialEscape, Mod: ModAlt},
		{Rune: 'O', Mod: ModAlt},
		{Rune: 'Q'},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
