package formkey

import (
	"log/slog"
	"sync"
)

// Widget is anything that can sit in a form and own key bindings.
type Widget interface {
	Keymap() *Keymap
}

// KeyHandler is implemented by widgets that take keys their keymap does not
// bind, such as a text field accepting printable characters.
type KeyHandler interface {
	HandleKey(m Match) Result
}

// Focusable is implemented by widgets that want to know when focus changes.
type Focusable interface {
	SetFocused(focused bool)
}

// FocusGate is implemented by widgets that can refuse focus, e.g. while
// disabled.
type FocusGate interface {
	CanFocus() bool
}

// Form routes keys to its focused widget first, then to navigation keys, then
// to its own bindings.
//
// A Form is itself a Widget and a Scope, so forms nest: a focused sub-form
// gets the key before the outer form's navigation and bindings.
type Form struct {
	mu      sync.Mutex
	widgets []Widget
	focus   int

	keymap *Keymap
	nav    *Keymap

	onFocus func(index int, w Widget)
	logger  *slog.Logger
}

// NewForm creates a form over widgets. The first focusable widget gets focus.
// Tab and Shift-Tab move between widgets.
func NewForm(widgets ...Widget) *Form {
	f := &Form{
		focus:  -1,
		keymap: NewKeymap().Name("form"),
		nav:    NewKeymap().Name("navigation"),
		logger: loggerOrDiscard(nil),
	}
	f.nav.BindNamed("focus_next", "<Tab>", "next field", Handler(func(Match) { f.Next() }))
	f.nav.BindNamed("focus_prev", "<S-Tab>", "previous field", Handler(func(Match) { f.Prev() }))
	for _, w := range widgets {
		f.Add(w)
	}
	return f
}

// ArrowNavigation also binds Down/Up to next/previous widget. Widgets that
// use the arrows themselves still get them first.
func (f *Form) ArrowNavigation() *Form {
	f.nav.BindNamed("focus_down", "<Down>", "next field", Handler(func(Match) { f.Next() }))
	f.nav.BindNamed("focus_up", "<Up>", "previous field", Handler(func(Match) { f.Prev() }))
	return f
}

// Add appends a widget. It takes focus if nothing has it yet.
func (f *Form) Add(w Widget) *Form {
	f.mu.Lock()
	f.widgets = append(f.widgets, w)
	idx := len(f.widgets) - 1
	take := f.focus < 0 && canFocus(w)
	f.mu.Unlock()

	if take {
		f.Focus(idx)
	}
	return f
}

// SetLogger sets the logger used for focus changes.
func (f *Form) SetLogger(l *slog.Logger) *Form {
	f.mu.Lock()
	f.logger = loggerOrDiscard(l)
	f.mu.Unlock()
	return f
}

// Keymap returns the form-level bindings.
func (f *Form) Keymap() *Keymap {
	return f.keymap
}

// Navigation returns the keymap holding the focus movement keys.
func (f *Form) Navigation() *Keymap {
	return f.nav
}

// OnFocus sets a callback that fires when focus changes.
func (f *Form) OnFocus(fn func(index int, w Widget)) *Form {
	f.mu.Lock()
	f.onFocus = fn
	f.mu.Unlock()
	return f
}

// Widgets returns the form's widgets.
func (f *Form) Widgets() []Widget {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Widget, len(f.widgets))
	copy(out, f.widgets)
	return out
}

// FocusIndex returns the index of the focused widget, or -1.
func (f *Form) FocusIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focus
}

// Focused returns the focused widget, or nil.
func (f *Form) Focused() Widget {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.focus < 0 || f.focus >= len(f.widgets) {
		return nil
	}
	return f.widgets[f.focus]
}

// Focus moves focus to the widget at index. It reports false if the index is
// out of range or the widget refuses focus.
func (f *Form) Focus(index int) bool {
	f.mu.Lock()
	if index < 0 || index >= len(f.widgets) || !canFocus(f.widgets[index]) {
		f.mu.Unlock()
		return false
	}
	prev := f.focus
	var old Widget
	if prev >= 0 && prev < len(f.widgets) {
		old = f.widgets[prev]
	}
	w := f.widgets[index]
	f.focus = index
	cb := f.onFocus
	logger := f.logger
	f.mu.Unlock()

	if prev == index {
		return true
	}
	logger.Debug("focus changed", "from", prev, "to", index)
	if fw, ok := old.(Focusable); ok {
		fw.SetFocused(false)
	}
	if fw, ok := w.(Focusable); ok {
		fw.SetFocused(true)
	}
	if cb != nil {
		cb(index, w)
	}
	return true
}

// Next moves focus to the next focusable widget, wrapping around.
func (f *Form) Next() {
	f.moveFocus(1)
}

// Prev moves focus to the previous focusable widget, wrapping around.
func (f *Form) Prev() {
	f.moveFocus(-1)
}

func (f *Form) moveFocus(delta int) {
	f.mu.Lock()
	n := len(f.widgets)
	start := f.focus
	if start < 0 {
		start = -delta
		if delta < 0 {
			start = 0
		}
	}
	target := -1
	for i := 1; i <= n; i++ {
		idx := ((start+delta*i)%n + n) % n
		if canFocus(f.widgets[idx]) {
			target = idx
			break
		}
	}
	f.mu.Unlock()

	if target >= 0 {
		f.Focus(target)
	}
}

func canFocus(w Widget) bool {
	if g, ok := w.(FocusGate); ok {
		return g.CanFocus()
	}
	return true
}

// Dispatch implements Scope. The order is: the focused widget's keymap, the
// focused widget's HandleKey, navigation keys, the form's keymap.
func (f *Form) Dispatch(in *Input, ev Event) (Result, error) {
	if w := f.Focused(); w != nil {
		if res, err := dispatchWidget(in, w, ev); res == Handled || err != nil {
			return res, err
		}
	}
	if res, err := in.Try(ev, f.nav); res == Handled || err != nil {
		return res, err
	}
	return in.Try(ev, f.keymap)
}

func dispatchWidget(in *Input, w Widget, ev Event) (Result, error) {
	if s, ok := w.(Scope); ok {
		return s.Dispatch(in, ev)
	}
	if res, err := in.Try(ev, w.Keymap()); res == Handled || err != nil {
		return res, err
	}
	if h, ok := w.(KeyHandler); ok {
		// the count stays pending for the form if the widget declines
		res := h.HandleKey(Match{Keys: []Key{ev.Key}, Count: in.acc.Peek()})
		if res == Handled {
			in.acc.Reset()
		}
		return res, nil
	}
	return Unhandled, nil
}
