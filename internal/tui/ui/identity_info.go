package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// IdentityData is what the header shows about the local user.
type IdentityData struct {
	Profile string
	State   string
	Name    string
	UID     string
	Email   string
	Peers   int
	Unread  int
	Uptime  time.Duration
}

// IdentityInfo displays the signed-in user in the header.
type IdentityInfo struct {
	*tview.TextView
	theme *Theme
}

// NewIdentityInfo creates a new identity panel.
func NewIdentityInfo(theme *Theme) *IdentityInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &IdentityInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders data.
func (ii *IdentityInfo) Update(data IdentityData) {
	ii.Clear()

	fg := ColorName(ii.theme.FgColor)
	counter := ColorName(ii.theme.CounterColor)
	row := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return fmt.Sprintf("[%s::b]%-8s[-:-:-] [%s]%s[-]\n", fg, label+":", counter, tview.Escape(value))
	}

	_, _ = fmt.Fprint(ii,
		row("Profile", data.Profile)+
			row("Status", data.State)+
			row("User", data.Name)+
			row("UID", data.UID)+
			row("Peers", fmt.Sprintf("%d (%d unread)", data.Peers, data.Unread))+
			row("Uptime", formatDuration(data.Uptime)),
	)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
