package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/pingme/internal/tui/ui"
)

// AuthView is shown while the session is loading or signed out.
type AuthView struct {
	*tview.TextView
	theme *ui.Theme
	title string
}

// NewAuthView creates the sign-in page.
func NewAuthView(theme *ui.Theme) *AuthView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)

	av := &AuthView{TextView: tv, theme: theme}
	av.ShowLoading()
	return av
}

// Title implements ui.Component.
func (av *AuthView) Title() string { return av.title }

// ShowLoading is displayed until the session has resolved once.
func (av *AuthView) ShowLoading() {
	av.show("loading", "\n\n[::d]Restoring session...")
}

// ShowSignedOut invites the user to sign in as identity.
func (av *AuthView) ShowSignedOut(identity string) {
	who := ""
	if identity != "" {
		who = fmt.Sprintf(" as %s%s[-]", ui.Tag(av.theme.CounterColor), display(identity))
	}
	av.show("sign in", fmt.Sprintf("\n\nYou are signed out.\n\nPress %s[::b]Enter[-:-:-] to sign in%s.",
		ui.Tag(av.theme.MenuKeyColor), who))
}

// ShowSigningIn is displayed while the provider runs.
func (av *AuthView) ShowSigningIn() {
	av.show("sign in", "\n\n[::d]Signing in...")
}

func (av *AuthView) show(title, text string) {
	av.title = title
	av.SetTitle(" PingMe ")
	av.Clear()
	_, _ = fmt.Fprint(av, text)
}
