package formkey

import (
	"log/slog"
	"sync"
)

// Result says whether a key found something to do.
type Result int

const (
	Unhandled Result = iota
	Handled
)

func (r Result) String() string {
	if r == Handled {
		return "handled"
	}
	return "unhandled"
}

// Scope is something keys can be dispatched to: a Keymap, a Form, or any
// custom routing built on Input.Try.
type Scope interface {
	Dispatch(in *Input, ev Event) (Result, error)
}

// Dispatch makes a bare keymap usable as a scope.
func (km *Keymap) Dispatch(in *Input, ev Event) (Result, error) {
	return in.Try(ev, km)
}

// Input is one read loop: it decodes keys from a source, collects count
// prefixes and hands each keystroke to the scope on top of its stack. Each
// Input owns its decoder and count, so nested loops (a modal dialog running
// its own Input over the same source) do not share state.
type Input struct {
	mu    sync.Mutex
	stack []Scope

	dec    *Decoder
	disp   *Dispatcher
	acc    *Accumulator
	logger *slog.Logger

	// OnError is told about actions that failed or panicked, so the UI can
	// show a notification. The loop carries on either way.
	OnError func(err error)
	// OnUnhandled receives keys no scope wanted, e.g. to beep.
	OnUnhandled func(ev Event)
}

// NewInput creates a read loop over src with root as the base scope.
func NewInput(src KeySource, root Scope) *Input {
	dec := NewDecoder(src, nil)
	in := &Input{
		dec:    dec,
		disp:   NewDispatcher(dec),
		acc:    NewAccumulator(),
		logger: loggerOrDiscard(nil),
	}
	if root != nil {
		in.stack = []Scope{root}
	}
	return in
}

// NewInputWithDecoder is NewInput for a decoder configured by the caller.
func NewInputWithDecoder(dec *Decoder, root Scope) *Input {
	in := NewInput(dec.Source(), root)
	in.dec = dec
	in.disp = NewDispatcher(dec)
	return in
}

// SetLogger sets the logger for action failures and routing decisions.
func (in *Input) SetLogger(l *slog.Logger) *Input {
	in.logger = loggerOrDiscard(l)
	return in
}

// SetTiming applies escape and chord timeouts.
func (in *Input) SetTiming(t Timing) *Input {
	in.dec.Timeouts(t.EscapeFirst, t.Escape)
	in.disp.Timeout(t.Chord)
	return in
}

// Decoder returns the input's key decoder.
func (in *Input) Decoder() *Decoder { return in.dec }

// Dispatcher returns the input's chord dispatcher.
func (in *Input) Dispatcher() *Dispatcher { return in.disp }

// Accumulator returns the input's count accumulator.
func (in *Input) Accumulator() *Accumulator { return in.acc }

// Push adds a scope to the stack, making it the active scope.
func (in *Input) Push(s Scope) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.stack = append(in.stack, s)
}

// Pop removes the top scope from the stack. The base scope stays.
func (in *Input) Pop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.stack) > 1 {
		in.stack = in.stack[:len(in.stack)-1]
	}
}

// SetScope replaces the active scope.
func (in *Input) SetScope(s Scope) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.stack) == 0 {
		in.stack = []Scope{s}
		return
	}
	in.stack[len(in.stack)-1] = s
}

// Current returns the currently active scope.
func (in *Input) Current() Scope {
	in.mu.Lock()
	defer in.mu.Unlock()
	if len(in.stack) == 0 {
		return nil
	}
	return in.stack[len(in.stack)-1]
}

// Depth returns the current stack depth.
func (in *Input) Depth() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.stack)
}

// Try resolves ev against km, reading more keys for chords, and runs the
// action it finds. On Unhandled, ev has not been consumed.
func (in *Input) Try(ev Event, km *Keymap) (Result, error) {
	a, keys, err := in.disp.Resolve(ev, km)
	if a == nil {
		return Unhandled, err
	}
	in.logger.Debug("key bound", "keymap", km.GetName(), "keys", FormatKeys(keys))
	return in.Invoke(a, keys), err
}

// Invoke runs a with the pending count. Failures and panics are logged and
// reported to OnError; the key still counts as handled.
func (in *Input) Invoke(a Action, keys []Key) Result {
	m := Match{Keys: keys, Count: in.acc.Take()}
	if err := invoke(a, m); err != nil {
		in.logger.Error("action failed", "keys", FormatKeys(keys), "err", err)
		if in.OnError != nil {
			in.OnError(err)
		}
	}
	return Handled
}

// TakeCount returns the pending count for code that handles keys without an
// Action, resetting it.
func (in *Input) TakeCount() int {
	return in.acc.Take()
}

// Step reads and dispatches one keystroke: an optional count prefix, then a
// key or chord. Only source errors are returned.
func (in *Input) Step() (Result, error) {
	ev, err := in.dec.Decode()
	if err != nil {
		return Unhandled, err
	}
	ev, err = in.acc.Intercept(ev, in.dec)
	if err != nil {
		in.acc.Reset()
		return Unhandled, err
	}

	res := Unhandled
	if scope := in.Current(); scope != nil {
		res, err = scope.Dispatch(in, ev)
	}
	in.acc.Reset()

	if res == Unhandled {
		in.logger.Debug("key unhandled", "key", ev.Key.String())
		if in.OnUnhandled != nil {
			in.OnUnhandled(ev)
		}
	}
	return res, err
}

// Run reads keys and dispatches them until the source fails (including
// io.EOF). afterDispatch, if set, is called after each keystroke.
func (in *Input) Run(afterDispatch func(handled Result)) error {
	for {
		res, err := in.Step()
		if err != nil {
			return err
		}
		if afterDispatch != nil {
			afterDispatch(res)
		}
	}
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
