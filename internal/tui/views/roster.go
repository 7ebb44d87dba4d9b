package views

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/tui/ui"
)

// Roster is the table of peers with presence and unread badges.
type Roster struct {
	*tview.Table
	theme   *ui.Theme
	peers   []chat.UserProfile
	unread  map[string]int
	filter  string
	visible []chat.UserProfile
}

// NewRoster creates the roster table.
func NewRoster(theme *ui.Theme) *Roster {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Roster ")
	table.SetTitleColor(theme.TitleColor)

	return &Roster{
		Table:  table,
		theme:  theme,
		unread: map[string]int{},
	}
}

// Title implements ui.Component.
func (r *Roster) Title() string { return "roster" }

// Update replaces the peers and their unread counts, keeping the cursor on
// the same peer when it is still listed.
func (r *Roster) Update(peers []chat.UserProfile, unread map[string]int) {
	selected := r.Selected()
	r.peers = peers
	r.unread = unread
	r.render(selected)
}

// SetFilter narrows the table to peers whose name, email or uid contains
// filter. Empty clears it.
func (r *Roster) SetFilter(filter string) {
	selected := r.Selected()
	r.filter = filter
	r.render(selected)
}

// Filter returns the active filter.
func (r *Roster) Filter() string {
	return r.filter
}

// Selected returns the uid under the cursor, or "".
func (r *Roster) Selected() string {
	row, _ := r.GetSelection()
	return r.ByIndex(row)
}

// ByIndex returns the uid of the n-th visible peer (1-based).
func (r *Roster) ByIndex(n int) string {
	if n < 1 || n > len(r.visible) {
		return ""
	}
	return r.visible[n-1].UID
}

func (r *Roster) render(selected string) {
	r.Clear()
	r.visible = filterPeers(r.peers, r.filter)

	headers := []struct {
		text string
		exp  int
	}{
		{" #", 0},
		{" NAME", 2},
		{" EMAIL", 2},
		{" PRESENCE", 0},
		{" UNREAD", 0},
	}
	for col, h := range headers {
		r.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(r.theme.TableHeaderFg).
			SetBackgroundColor(r.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cursor := 1
	for i, p := range r.visible {
		row := i + 1
		if p.UID == selected {
			cursor = row
		}
		presence := r.theme.OfflineColor
		if p.Presence == chat.Online {
			presence = r.theme.OnlineColor
		}
		n := r.unread[p.UID]
		badge := ""
		nameColor := r.theme.FgColor
		if n > 0 {
			badge = strconv.Itoa(n)
			nameColor = r.theme.UnreadColor
		}

		r.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf(" %d", row)).SetTextColor(r.theme.CounterColor))
		r.SetCell(row, 1, tview.NewTableCell(" "+display(p.Name())).SetExpansion(2).SetTextColor(nameColor))
		r.SetCell(row, 2, tview.NewTableCell(" "+display(p.Email)).SetExpansion(2).SetTextColor(r.theme.FgColor))
		r.SetCell(row, 3, tview.NewTableCell(" "+presenceLabel(p.Presence)).SetTextColor(presence))
		r.SetCell(row, 4, tview.NewTableCell(badge).SetTextColor(r.theme.UnreadColor).SetAlign(tview.AlignRight))
	}
	if len(r.visible) > 0 {
		r.Select(cursor, 0)
	}

	if r.filter != "" {
		r.SetTitle(fmt.Sprintf(" Roster (%d/%d) filter: %s ", len(r.visible), len(r.peers), tview.Escape(r.filter)))
	} else {
		r.SetTitle(fmt.Sprintf(" Roster (%d) ", len(r.peers)))
	}
}

func filterPeers(peers []chat.UserProfile, filter string) []chat.UserProfile {
	if filter == "" {
		return peers
	}
	var out []chat.UserProfile
	for _, p := range peers {
		if containsFold(p.Name(), filter) || containsFold(p.Email, filter) || containsFold(p.UID, filter) {
			out = append(out, p)
		}
	}
	return out
}

func presenceLabel(p chat.Presence) string {
	if p == chat.Online {
		return "● online"
	}
	return "○ offline"
}
