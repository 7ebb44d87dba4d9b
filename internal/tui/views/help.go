package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/pingme/internal/tui/ui"
)

// HelpView displays the key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{TextView: tv, theme: theme}
	hv.render()
	return hv
}

// Title implements ui.Component.
func (hv *HelpView) Title() string { return "help" }

func (hv *HelpView) render() {
	kc := ui.Tag(hv.theme.MenuKeyColor)
	entry := func(key, desc string) string {
		return fmt.Sprintf("  %s%-16s[-] %s\n", kc, tview.Escape(key), desc)
	}

	_, _ = fmt.Fprint(hv, "\n  [::b]Global[-:-:-]\n\n"+
		entry(":", "Command mode")+
		entry("?", "Help")+
		entry("q", "Quit (or back)")+
		entry("Ctrl-C", "Quit immediately")+
		"\n  [::b]Sign in[-:-:-]\n\n"+
		entry("Enter", "Sign in")+
		"\n  [::b]Roster[-:-:-]\n\n"+
		entry("Enter", "Open conversation")+
		entry("1-9", "Open the Nth peer")+
		entry("/", "Filter peers")+
		entry("0", "Clear filter")+
		entry("L", "Sign out")+
		"\n  [::b]Conversation[-:-:-]\n\n"+
		entry("i", "Focus composer")+
		entry("Enter", "Send (in composer)")+
		entry("d", "Conversation details")+
		entry("Esc", "Leave composer, then back to roster")+
		"\n  [::b]Commands[-:-:-]\n\n"+
		entry(":open <peer>", "Open a conversation by uid or name")+
		entry(":signin", "Sign in")+
		entry(":signout", "Sign out")+
		entry(":help", "Show this help")+
		entry(":quit", "Quit"),
	)
}
