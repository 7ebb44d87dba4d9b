package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/tui/ui"
)

// Thread displays the messages of the active conversation above a composer.
type Thread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	peer     chat.UserProfile
	onInput  func(text string)
	onSubmit func()
}

// NewThread creates the conversation view.
func NewThread(theme *ui.Theme) *Thread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Message (i to type, Enter to send) ")
	composer.SetTitleColor(theme.TitleColor)

	t := &Thread{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(messages, 0, 1, true).
			AddItem(composer, 3, 0, false),
		theme:    theme,
		messages: messages,
		composer: composer,
	}

	composer.SetChangedFunc(func(text string) {
		if t.onInput != nil {
			t.onInput(text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && t.onSubmit != nil {
			t.onSubmit()
		}
	})
	return t
}

// Title implements ui.Component.
func (t *Thread) Title() string {
	return t.peer.Name()
}

// SetOnInput sets the callback receiving every composer edit.
func (t *Thread) SetOnInput(fn func(text string)) {
	t.onInput = fn
}

// SetOnSubmit sets the callback for Enter in the composer.
func (t *Thread) SetOnSubmit(fn func()) {
	t.onSubmit = fn
}

// SetPeer sets the conversation header.
func (t *Thread) SetPeer(peer chat.UserProfile) {
	t.peer = peer
	color := t.theme.OfflineColor
	if peer.Presence == chat.Online {
		color = t.theme.OnlineColor
	}
	t.messages.SetTitle(fmt.Sprintf(" %s %s%s[-] ", display(peer.Name()), ui.Tag(color), presenceLabel(peer.Presence)))
}

// Update renders msgs, oldest first.
func (t *Thread) Update(self string, msgs []chat.Message) {
	t.messages.Clear()
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(formatMessage(t.theme, self, t.peer.Name(), m))
	}
	_, _ = fmt.Fprint(t.messages, b.String())
	t.messages.ScrollToEnd()
}

// SetInput mirrors the composer buffer without firing the change callback.
func (t *Thread) SetInput(text string) {
	if t.composer.GetText() == text {
		return
	}
	fn := t.onInput
	t.onInput = nil
	t.composer.SetText(text)
	t.onInput = fn
}

// Messages returns the message pane for focus management.
func (t *Thread) Messages() *tview.TextView {
	return t.messages
}

// Composer returns the input field for focus management.
func (t *Thread) Composer() *tview.InputField {
	return t.composer
}

// formatMessage renders one message: sender, HH:MM and, for own messages, the
// receipt marks. Seen receipts are highlighted.
func formatMessage(theme *ui.Theme, self, peerName string, m chat.Message) string {
	sender, color, marker := display(peerName), theme.PeerMessageColor, "  "
	receipt := ""
	if m.SenderID == self {
		sender, color, marker = "You", theme.OwnMessageColor, "» "
		rc := theme.PendingColor
		switch m.Status {
		case chat.StatusDelivered:
			rc = theme.FgColor
		case chat.StatusSeen:
			rc = theme.SeenColor
		}
		receipt = fmt.Sprintf(" %s%s[-]", ui.Tag(rc), m.Status.Receipt())
	}
	return fmt.Sprintf("%s%s[::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s%s\n\n",
		marker, ui.Tag(color), sender, formatClock(m.Timestamp), receipt,
		marker, display(m.Text))
}
