package ui

import (
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode indicates the type of prompt.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

const historySize = 50

// Prompt is the ":" command and "/" filter input bar. Submitted commands are
// kept in a history browsed with Up and Down; Tab completes through the
// completer.
type Prompt struct {
	*tview.InputField
	mode      PromptMode
	history   []string
	pos       int
	completer func(text string) []string
	onSubmit  func(mode PromptMode, text string)
	onCancel  func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{InputField: input}

	input.SetAutocompleteFunc(func(text string) []string {
		if p.mode != PromptCommand || p.completer == nil || text == "" {
			return nil
		}
		return p.completer(text)
	})
	input.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if p.mode != PromptCommand || p.completing() {
			return ev
		}
		switch ev.Key() {
		case tcell.KeyUp:
			p.browse(-1)
			return nil
		case tcell.KeyDown:
			p.browse(1)
			return nil
		}
		return ev
	})
	input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := strings.TrimSpace(p.GetText())
			p.SetText("")
			if p.mode == PromptCommand {
				p.remember(text)
			}
			if p.onSubmit != nil {
				p.onSubmit(p.mode, text)
			}
		case tcell.KeyEscape:
			p.SetText("")
			if p.onCancel != nil {
				p.onCancel()
			}
		}
	})

	return p
}

// SetOnSubmit sets the callback when the prompt is submitted. An empty
// filter submission clears the filter.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback when the prompt is cancelled.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// SetCompleter sets the source of command completions.
func (p *Prompt) SetCompleter(fn func(text string) []string) {
	p.completer = fn
}

// Activate prepares the prompt for mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.pos = len(p.history)
	p.SetText("")
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
	}
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}

// History returns submitted commands, oldest first.
func (p *Prompt) History() []string {
	return append([]string(nil), p.history...)
}

func (p *Prompt) remember(cmd string) {
	if cmd == "" {
		return
	}
	if n := len(p.history); n > 0 && p.history[n-1] == cmd {
		p.pos = n
		return
	}
	p.history = append(p.history, cmd)
	if len(p.history) > historySize {
		p.history = p.history[len(p.history)-historySize:]
	}
	p.pos = len(p.history)
}

// completing reports whether the autocomplete list has entries, in which
// case Up and Down move through it instead of the history.
func (p *Prompt) completing() bool {
	text := p.GetText()
	return p.completer != nil && text != "" && len(p.completer(text)) > 0
}

// browse moves through the history; moving past the newest entry clears
// the field.
func (p *Prompt) browse(delta int) {
	p.pos = max(0, min(len(p.history), p.pos+delta))
	if p.pos == len(p.history) {
		p.SetText("")
		return
	}
	p.SetText(p.history[p.pos])
}

// Complete returns the candidates starting with text, ignoring case, sorted.
func Complete(text string, candidates []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lower) && c != text {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
