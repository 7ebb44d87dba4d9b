package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/tui/ui"
)

// PeerInfo displays details about the active conversation.
type PeerInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewPeerInfo creates the details page.
func NewPeerInfo(theme *ui.Theme) *PeerInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &PeerInfo{TextView: tv, theme: theme}
}

// Title implements ui.Component.
func (pi *PeerInfo) Title() string { return "details" }

// Update renders the peer and statistics about the loaded thread.
func (pi *PeerInfo) Update(self string, peer chat.UserProfile, msgs []chat.Message) {
	pi.Clear()
	_, _ = fmt.Fprint(pi, peerDetails(pi.theme, self, peer, msgs, time.Now()))
}

func peerDetails(theme *ui.Theme, self string, peer chat.UserProfile, msgs []chat.Message, now time.Time) string {
	var sent, received, unseen int
	for _, m := range msgs {
		switch {
		case m.SenderID == self:
			sent++
			if m.Status != chat.StatusSeen {
				unseen++
			}
		case m.Inbound(self):
			received++
		}
	}

	label := ui.ColorName(theme.MenuKeyColor)
	val := ui.ColorName(theme.CounterColor)
	row := func(name, value string) string {
		return fmt.Sprintf("  [%s::b]%-12s[-:-:-] [%s]%s[-]\n", label, name, val, value)
	}
	return "\n" +
		row("Name", display(peer.Name())) +
		row("UID", display(peer.UID)) +
		row("Email", display(peer.Email)) +
		row("Presence", string(peer.Presence)) +
		row("Last seen", formatLastSeen(peer.LastSeen, now)) +
		row("Conversation", chat.ConversationKey(self, peer.UID)) +
		row("Messages", fmt.Sprintf("%d (%d sent, %d received)", len(msgs), sent, received)) +
		row("Not yet seen", fmt.Sprintf("%d", unseen))
}
