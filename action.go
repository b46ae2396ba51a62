package formkey

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned when a named method reference cannot be
// resolved against its target.
var ErrUnknownCommand = errors.New("formkey: unknown command")

// Match contains information about a matched key sequence.
type Match struct {
	Keys  []Key // The matched key sequence (without count prefix)
	Count int   // Count prefix (defaults to 1 if not specified)
}

// Action is anything a key binding can run.
type Action interface {
	Invoke(m Match) error
}

// ActionFunc is a closure action that can fail.
type ActionFunc func(m Match) error

// Invoke implements Action.
func (f ActionFunc) Invoke(m Match) error {
	return f(m)
}

// Handler is a function that handles a matched key sequence.
type Handler func(m Match)

// Invoke implements Action.
func (h Handler) Invoke(m Match) error {
	h(m)
	return nil
}

// Commander is implemented by widgets that expose named commands.
type Commander interface {
	Command(name string) (ActionFunc, bool)
}

// methodAction is a command looked up on its target when it was bound.
type methodAction struct {
	name string
	fn   ActionFunc
}

func (a *methodAction) Invoke(m Match) error {
	return a.fn(m)
}

func (a *methodAction) String() string {
	return a.name
}

// Method resolves the named command on target. The lookup happens once, here,
// not on every keypress.
func Method(target Commander, name string) (Action, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: %q on nil target", ErrUnknownCommand, name)
	}
	fn, ok := target.Command(name)
	if !ok || fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return &methodAction{name: name, fn: fn}, nil
}

// ActionError reports an action that failed or panicked.
type ActionError struct {
	Keys  []Key
	Err   error
	Panic any // recovered panic value, nil for returned errors
}

func (e *ActionError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("action for %s panicked: %v", FormatKeys(e.Keys), e.Panic)
	}
	return fmt.Sprintf("action for %s: %v", FormatKeys(e.Keys), e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// invoke runs a with panics turned into errors.
func invoke(a Action, m Match) (err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, _ := r.(error)
			err = &ActionError{Keys: m.Keys, Err: perr, Panic: r}
		}
	}()
	if err := a.Invoke(m); err != nil {
		return &ActionError{Keys: m.Keys, Err: err}
	}
	return nil
}
