package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Menu displays the key hints of the current page in the header.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint panel.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints one per line, splitting into two columns past rows.
func (m *Menu) Update(hints []MenuHint, rows int) {
	m.Clear()
	_, _ = fmt.Fprint(m, FormatHints(hints, ColorName(m.theme.MenuKeyColor), rows))
}

// FormatHints lays hints out in columns of at most rows lines.
func FormatHints(hints []MenuHint, keyColor string, rows int) string {
	if rows < 1 {
		rows = 1
	}
	cells := make([]string, len(hints))
	width := 0
	for i, h := range hints {
		cells[i] = fmt.Sprintf("<%s> %s", h.Key, h.Description)
		width = max(width, len(cells[i]))
	}

	var out []byte
	for r := 0; r < rows && r < len(hints); r++ {
		for i := r; i < len(hints); i += rows {
			h := hints[i]
			pad := width - len(cells[i]) + 2
			if i+rows >= len(hints) {
				pad = 0
			}
			out = fmt.Appendf(out, "[%s::b]<%s>[-:-:-] %s%*s", keyColor, tview.Escape(h.Key), h.Description, pad, "")
		}
		out = append(out, '\n')
	}
	return string(out)
}
