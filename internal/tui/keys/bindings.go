// Package keys maps key events to actions, per page and globally.
package keys

import "github.com/gdamore/tcell/v2"

// Action represents a keybinding action.
type Action struct {
	Name    string
	Key     tcell.Key
	Rune    rune
	Handler func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// OnRune builds an action for a printable key.
func OnRune(name string, r rune, fn func()) Action {
	return Action{Name: name, Key: tcell.KeyRune, Rune: r, Handler: fn}
}

// OnKey builds an action for a special key.
func OnKey(name string, k tcell.Key, fn func()) Action {
	return Action{Name: name, Key: k, Handler: fn}
}

// Registry holds keybindings organized by scope. Bindings are tried in
// registration order, page bindings before global ones.
type Registry struct {
	global []Action
	pages  map[string][]Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]Action)}
}

// AddGlobal registers bindings active on every page.
func (r *Registry) AddGlobal(actions ...Action) {
	r.global = append(r.global, actions...)
}

// AddPage registers bindings active only while page is on top.
func (r *Registry) AddPage(page string, actions ...Action) {
	r.pages[page] = append(r.pages[page], actions...)
}

// Lookup returns the action ev triggers on page.
func (r *Registry) Lookup(page string, ev *tcell.EventKey) (Action, bool) {
	for _, a := range r.pages[page] {
		if a.Matches(ev) {
			return a, true
		}
	}
	for _, a := range r.global {
		if a.Matches(ev) {
			return a, true
		}
	}
	return Action{}, false
}

// HandleEvent runs the action ev triggers on page and reports whether one
// matched.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	a, ok := r.Lookup(page, ev)
	if !ok {
		return false
	}
	if a.Handler != nil {
		a.Handler()
	}
	return true
}
