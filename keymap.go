package formkey

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrEmptyPattern is returned when a pattern contains no keys.
var ErrEmptyPattern = errors.New("formkey: empty key pattern")

// Binding represents a named key binding with its current and default patterns.
type Binding struct {
	Name           string // Semantic action name (e.g., "scroll_down")
	Pattern        string // Current pattern (after rebinding)
	DefaultPattern string // Original default pattern
}

// HelpEntry describes one bound key sequence.
type HelpEntry struct {
	Keys        []Key
	Description string
}

// namedBinding stores internal binding info.
type namedBinding struct {
	defaultPattern string
	currentPattern string
	description    string
	action         Action
}

// Keymap is a binding table: a trie from key sequences to actions. A node
// can hold an action and children at once; the action then only fires when
// no longer sequence completes in time.
type Keymap struct {
	mu            sync.RWMutex
	root          *trieNode
	name          string
	aliases       map[string]string // user-defined pattern aliases (e.g., "Leader" -> ",")
	namedBindings map[string]*namedBinding
	bindingOrder  []string // preserve registration order for Bindings()
}

type trieNode struct {
	children    map[Key]*trieNode
	order       []Key // children in registration order
	action      Action
	description string
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[Key]*trieNode)}
}

// NewKeymap creates an empty keymap.
func NewKeymap() *Keymap {
	return &Keymap{
		root:          newTrieNode(),
		namedBindings: make(map[string]*namedBinding),
	}
}

// Name sets an optional name for the keymap, used in logs.
func (km *Keymap) Name(name string) *Keymap {
	km.mu.Lock()
	km.name = name
	km.mu.Unlock()
	return km
}

// GetName returns the keymap's name.
func (km *Keymap) GetName() string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.name
}

// SetAlias defines a pattern alias that expands in Bind patterns.
// Alias names are case-insensitive and use angle bracket syntax.
//
// Example:
//
//	km.SetAlias("Leader", ",")
//	km.Handle("<Leader>f", ...)  // expands to ",f"
func (km *Keymap) SetAlias(name, expansion string) *Keymap {
	km.mu.Lock()
	defer km.mu.Unlock()
	if km.aliases == nil {
		km.aliases = make(map[string]string)
	}
	km.aliases[strings.ToLower(name)] = expansion
	return km
}

// expandAliases replaces alias references in a pattern with their expansions.
func (km *Keymap) expandAliases(pattern string) string {
	if km.aliases == nil {
		return pattern
	}

	var result strings.Builder
	i := 0
	for i < len(pattern) {
		if pattern[i] == '<' {
			end := strings.IndexByte(pattern[i:], '>')
			if end == -1 {
				result.WriteByte(pattern[i])
				i++
				continue
			}
			end += i

			name := pattern[i+1 : end]
			if expansion, ok := km.aliases[strings.ToLower(name)]; ok {
				result.WriteString(expansion)
			} else {
				result.WriteString(pattern[i : end+1])
			}
			i = end + 1
		} else {
			result.WriteByte(pattern[i])
			i++
		}
	}
	return result.String()
}

// Bind registers action for the given pattern (see ParsePattern). Binding a
// pattern again replaces its action. An empty pattern is ignored.
func (km *Keymap) Bind(pattern, description string, a Action) *Keymap {
	km.mu.Lock()
	defer km.mu.Unlock()
	km.insert(ParsePattern(km.expandAliases(pattern)), description, a)
	return km
}

// BindKeys registers action for an explicit key sequence.
func (km *Keymap) BindKeys(keys []Key, description string, a Action) error {
	if len(keys) == 0 {
		return ErrEmptyPattern
	}
	km.mu.Lock()
	defer km.mu.Unlock()
	km.insert(keys, description, a)
	return nil
}

// Handle registers a handler for the given pattern.
func (km *Keymap) Handle(pattern string, h Handler) *Keymap {
	return km.Bind(pattern, "", h)
}

// BindMethod binds pattern to the command called method on target. It fails
// if target has no such command, so typos show up at startup.
func (km *Keymap) BindMethod(pattern string, target Commander, method string) error {
	a, err := Method(target, method)
	if err != nil {
		return err
	}
	if len(ParsePattern(pattern)) == 0 {
		return ErrEmptyPattern
	}
	km.Bind(pattern, method, a)
	return nil
}

// HandleNamed registers a handler with a semantic name for introspection and rebinding.
// The name should be a descriptive action like "scroll_down" or "go_to_top".
// Users can later rebind this action using Rebind() or config files.
func (km *Keymap) HandleNamed(name, defaultPattern string, h Handler) *Keymap {
	return km.BindNamed(name, defaultPattern, "", h)
}

// BindNamed is HandleNamed for any Action, with a description.
func (km *Keymap) BindNamed(name, defaultPattern, description string, a Action) *Keymap {
	km.mu.Lock()
	defer km.mu.Unlock()

	if old, ok := km.namedBindings[name]; ok {
		km.remove(ParsePattern(km.expandAliases(old.currentPattern)))
	} else {
		km.bindingOrder = append(km.bindingOrder, name)
	}
	km.namedBindings[name] = &namedBinding{
		defaultPattern: defaultPattern,
		currentPattern: defaultPattern,
		description:    description,
		action:         a,
	}
	km.insert(ParsePattern(km.expandAliases(defaultPattern)), description, a)
	return km
}

// insert does the actual pattern registration in the trie.
func (km *Keymap) insert(keys []Key, description string, a Action) {
	if len(keys) == 0 {
		return
	}

	node := km.root
	for _, k := range keys {
		child, exists := node.children[k]
		if !exists {
			child = newTrieNode()
			node.children[k] = child
			node.order = append(node.order, k)
		}
		node = child
	}
	node.action = a
	node.description = description
}

// Unbind removes the binding for pattern. Longer bindings that start with
// pattern are kept. It reports whether a binding was removed.
func (km *Keymap) Unbind(pattern string) bool {
	km.mu.Lock()
	defer km.mu.Unlock()
	return km.remove(ParsePattern(km.expandAliases(pattern)))
}

// UnbindKeys is Unbind for an explicit key sequence.
func (km *Keymap) UnbindKeys(keys []Key) bool {
	km.mu.Lock()
	defer km.mu.Unlock()
	return km.remove(keys)
}

// remove clears the action at keys and prunes branches left empty.
func (km *Keymap) remove(keys []Key) bool {
	if len(keys) == 0 {
		return false
	}

	path := make([]*trieNode, 0, len(keys)+1)
	path = append(path, km.root)
	node := km.root
	for _, k := range keys {
		child, exists := node.children[k]
		if !exists {
			return false
		}
		node = child
		path = append(path, node)
	}
	if node.action == nil {
		return false
	}
	node.action = nil
	node.description = ""

	for i := len(keys) - 1; i >= 0; i-- {
		n := path[i+1]
		if n.action != nil || len(n.children) > 0 {
			break
		}
		parent := path[i]
		delete(parent.children, keys[i])
		parent.order = slices.DeleteFunc(parent.order, func(k Key) bool { return k == keys[i] })
	}
	return true
}

// Rebind changes the pattern for a named binding.
// Returns true if the binding was found and rebound.
func (km *Keymap) Rebind(name, pattern string) bool {
	km.mu.Lock()
	defer km.mu.Unlock()
	return km.rebind(name, pattern)
}

func (km *Keymap) rebind(name, pattern string) bool {
	binding, ok := km.namedBindings[name]
	if !ok {
		return false
	}

	km.remove(ParsePattern(km.expandAliases(binding.currentPattern)))
	binding.currentPattern = pattern
	km.insert(ParsePattern(km.expandAliases(pattern)), binding.description, binding.action)
	return true
}

// Reset restores a named binding to its default pattern.
// Returns true if the binding was found and reset.
func (km *Keymap) Reset(name string) bool {
	km.mu.Lock()
	defer km.mu.Unlock()

	binding, ok := km.namedBindings[name]
	if !ok {
		return false
	}
	if binding.currentPattern == binding.defaultPattern {
		return true
	}
	return km.rebind(name, binding.defaultPattern)
}

// ResetAll restores all named bindings to their defaults.
func (km *Keymap) ResetAll() {
	km.mu.RLock()
	names := slices.Clone(km.bindingOrder)
	km.mu.RUnlock()
	for _, name := range names {
		km.Reset(name)
	}
}

// Bindings returns all named bindings in registration order.
func (km *Keymap) Bindings() []Binding {
	km.mu.RLock()
	defer km.mu.RUnlock()

	bindings := make([]Binding, 0, len(km.bindingOrder))
	for _, name := range km.bindingOrder {
		if b, ok := km.namedBindings[name]; ok {
			bindings = append(bindings, Binding{
				Name:           name,
				Pattern:        b.currentPattern,
				DefaultPattern: b.defaultPattern,
			})
		}
	}
	return bindings
}

// BindingsMap returns current bindings as a map (for serialization to config).
func (km *Keymap) BindingsMap() map[string]string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	m := make(map[string]string, len(km.namedBindings))
	for name, b := range km.namedBindings {
		m[name] = b.currentPattern
	}
	return m
}

// DefaultBindingsMap returns default bindings as a map.
func (km *Keymap) DefaultBindingsMap() map[string]string {
	km.mu.RLock()
	defer km.mu.RUnlock()
	m := make(map[string]string, len(km.namedBindings))
	for name, b := range km.namedBindings {
		m[name] = b.defaultPattern
	}
	return m
}

// ApplyBindings applies a map of name->pattern bindings.
// Unknown names are silently ignored.
func (km *Keymap) ApplyBindings(bindings map[string]string) {
	for name, pattern := range bindings {
		km.Rebind(name, pattern)
	}
}

// Help lists every bound sequence in registration order, depth first.
func (km *Keymap) Help() []HelpEntry {
	km.mu.RLock()
	defer km.mu.RUnlock()

	var out []HelpEntry
	var walk func(n *trieNode, prefix []Key)
	walk = func(n *trieNode, prefix []Key) {
		for _, k := range n.order {
			child := n.children[k]
			keys := append(slices.Clone(prefix), k)
			if child.action != nil {
				out = append(out, HelpEntry{Keys: keys, Description: child.description})
			}
			walk(child, keys)
		}
	}
	walk(km.root, nil)
	return out
}

// node is a read-only view of one trie node, handed to the dispatcher.
type node struct {
	km *Keymap
	n  *trieNode
}

// lookup returns the node reached from the root by k.
func (km *Keymap) lookup(k Key) (node, bool) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	child, ok := km.root.children[k]
	if !ok {
		return node{}, false
	}
	return node{km: km, n: child}, true
}

func (n node) child(k Key) (node, bool) {
	n.km.mu.RLock()
	defer n.km.mu.RUnlock()
	child, ok := n.n.children[k]
	if !ok {
		return node{}, false
	}
	return node{km: n.km, n: child}, true
}

func (n node) action() Action {
	n.km.mu.RLock()
	defer n.km.mu.RUnlock()
	return n.n.action
}

func (n node) hasChildren() bool {
	n.km.mu.RLock()
	defer n.km.mu.RUnlock()
	return len(n.n.children) > 0
}
