package views

import (
	"strings"
	"time"

	"github.com/rivo/tview"
)

// formatClock renders a message time as HH:MM in local time. A pending
// server timestamp renders empty.
func formatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}

// formatLastSeen renders a presence timestamp relative to now.
func formatLastSeen(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	t, now = t.Local(), now.Local()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "today " + t.Format("15:04")
	}
	return t.Format("2006-01-02 15:04")
}

// display sanitizes s for the terminal and escapes tview tags.
func display(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
