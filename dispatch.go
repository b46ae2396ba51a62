package formkey

import "time"

// Dispatcher resolves key events against a keymap, reading further keys when
// the first one starts a multi-key binding.
type Dispatcher struct {
	dec     *Decoder
	timeout time.Duration

	// OnPending is called with the keys typed so far each time the
	// dispatcher waits for the next key of a chord.
	OnPending func(keys []Key)
}

// NewDispatcher creates a dispatcher that reads chord keys from dec.
func NewDispatcher(dec *Decoder) *Dispatcher {
	return &Dispatcher{dec: dec, timeout: DefaultTiming.Chord}
}

// Timeout sets how long to wait for the next key of a chord.
func (d *Dispatcher) Timeout(t time.Duration) *Dispatcher {
	d.timeout = t
	return d
}

// Resolve looks first up in km. If it starts a chord, Resolve keeps reading
// keys until the chord completes, breaks, or times out, and commits to the
// longest binding seen. It returns the action and the keys it matched, or a
// nil action if nothing matched.
//
// Keys read after the committed match are pushed back in order. first itself
// is never pushed back: on a miss the caller still owns it and can try it
// against another keymap.
func (d *Dispatcher) Resolve(first Event, km *Keymap) (Action, []Key, error) {
	if km == nil {
		return nil, nil, nil
	}
	n, ok := km.lookup(first.Key)
	if !ok {
		return nil, nil, nil
	}

	consumed := []Event{first}
	best := n.action()
	bestLen := 0
	if best != nil {
		bestLen = 1
	}

	var err error
	for n.hasChildren() {
		if d.OnPending != nil {
			d.OnPending(eventKeys(consumed))
		}

		var ev Event
		var got bool
		ev, got, err = d.dec.DecodeTimeout(d.timeout)
		if err != nil || !got {
			break
		}

		child, ok := n.child(ev.Key)
		if !ok {
			d.dec.Unread(ev)
			break
		}
		consumed = append(consumed, ev)
		n = child
		if a := n.action(); a != nil {
			best, bestLen = a, len(consumed)
		}
	}

	if best == nil {
		d.unread(consumed[1:])
		return nil, nil, err
	}
	d.unread(consumed[bestLen:])
	return best, eventKeys(consumed[:bestLen]), err
}

// unread pushes events back so the first one is read next.
func (d *Dispatcher) unread(events []Event) {
	for i := len(events) - 1; i >= 0; i-- {
		d.dec.Unread(events[i])
	}
}

func eventKeys(events []Event) []Key {
	keys := make([]Key, len(events))
	for i, ev := range events {
		keys[i] = ev.Key
	}
	return keys
}
