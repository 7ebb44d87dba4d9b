package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"github.com/matheus3301/pingme/internal/tui/ui"
)

func TestRegistryPageBeforeGlobal(t *testing.T) {
	r := NewRegistry()
	var hit string
	r.Add(Global, &Action{Key: tcell.KeyRune, Rune: 'q', Label: "Quit", Handler: func() { hit = "quit" }})
	r.Add("thread", &Action{Key: tcell.KeyRune, Rune: 'q', Handler: func() { hit = "thread-q" }})
	r.Add("thread", &Action{Key: tcell.KeyEscape, Label: "Back", Handler: func() { hit = "back" }})

	assert.True(t, r.HandleEvent("thread", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.Equal(t, "thread-q", hit)

	assert.True(t, r.HandleEvent("roster", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.Equal(t, "quit", hit)

	assert.False(t, r.HandleEvent("roster", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)))
}

func TestRegistryHintsOrdered(t *testing.T) {
	r := NewRegistry()
	noop := func() {}
	r.Add(Global, &Action{Key: tcell.KeyRune, Rune: 'q', Label: "Quit", Handler: noop})
	r.Add("roster", &Action{Key: tcell.KeyEnter, Label: "Open", Handler: noop})
	r.Add("roster", &Action{Key: tcell.KeyRune, Rune: 'j', Handler: noop})
	r.Add("roster", &Action{Key: tcell.KeyRune, Rune: '/', Label: "Filter", Handler: noop})

	assert.Equal(t, []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "q", Description: "Quit"},
	}, r.Hints("roster"))
}
