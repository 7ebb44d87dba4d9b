// Package keys maps key events to actions per page.
package keys

import (
	"github.com/gdamore/tcell/v2"

	"github.com/matheus3301/pingme/internal/tui/ui"
)

// Global is the scope consulted after the current page's bindings.
const Global = ""

// Action represents a keybinding action.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Label   string // shown in the menu; empty hides the binding
	Handler func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Hint returns the menu entry for a.
func (a *Action) Hint() ui.MenuHint {
	key := string(a.Rune)
	if a.Key != tcell.KeyRune {
		key = tcell.KeyNames[a.Key]
	}
	return ui.MenuHint{Key: key, Description: a.Label}
}

// Registry holds keybindings per page in registration order.
type Registry struct {
	scopes map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string][]*Action)}
}

// Add registers action on page, or globally when page is Global.
func (r *Registry) Add(page string, action *Action) {
	r.scopes[page] = append(r.scopes[page], action)
}

// Hints returns visible hints for page followed by the global ones.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, scope := range []string{page, Global} {
		for _, a := range r.scopes[scope] {
			if a.Label != "" {
				hints = append(hints, a.Hint())
			}
		}
		if page == Global {
			break
		}
	}
	return hints
}

// HandleEvent dispatches ev to the first matching action of page, then of
// the global scope. Returns true if a handler ran.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	for _, scope := range []string{page, Global} {
		for _, a := range r.scopes[scope] {
			if a.Matches(ev) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
