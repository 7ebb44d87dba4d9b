package views

import (
	"bytes"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/tui/ui"
)

func TestSanitizeForTerminal(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "hello", "hello"},
		{"skin tone", "\U0001F44D\U0001F3FB", "\U0001F44D"},
		{"zwj", "a\u200db", "ab"},
		{"variation selector", "\u2764\ufe0f", "\u2764"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeForTerminal(tt.in))
		})
	}
}

func TestFormatClock(t *testing.T) {
	assert.Empty(t, formatClock(time.Time{}))
	ts := time.Date(2026, 3, 4, 9, 5, 0, 0, time.Local)
	assert.Equal(t, "09:05", formatClock(ts))
}

func TestFormatMessageReceipts(t *testing.T) {
	theme := ui.DefaultTheme()
	ts := time.Date(2026, 3, 4, 9, 5, 0, 0, time.Local)

	own := formatMessage(theme, "a1", "Bob", chat.Message{SenderID: "a1", ReceiverID: "b1", Text: "hi", Timestamp: ts, Status: chat.StatusSent})
	assert.Contains(t, own, "You")
	assert.Contains(t, own, "09:05")
	assert.Contains(t, own, "✓")
	assert.NotContains(t, own, "✓✓")

	seen := formatMessage(theme, "a1", "Bob", chat.Message{SenderID: "a1", ReceiverID: "b1", Text: "hi", Status: chat.StatusSeen})
	assert.Contains(t, seen, ui.Tag(theme.SeenColor)+"✓✓")

	in := formatMessage(theme, "a1", "Bob", chat.Message{SenderID: "b1", ReceiverID: "a1", Text: "[red]x", Status: chat.StatusSent})
	assert.Contains(t, in, "Bob")
	assert.NotContains(t, in, "✓")
	assert.Contains(t, in, "[red[]x", "message text must be escaped")
}

func TestFilterPeers(t *testing.T) {
	peers := []chat.UserProfile{
		{UID: "b1", DisplayName: "Bob", Email: "bob@example.com"},
		{UID: "c1", DisplayName: "Carol"},
	}
	assert.Len(t, filterPeers(peers, ""), 2)
	got := filterPeers(peers, "BOB")
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].UID)
	assert.Len(t, filterPeers(peers, "c1"), 1)
}

func TestRosterKeepsSelection(t *testing.T) {
	r := NewRoster(ui.DefaultTheme())
	peers := []chat.UserProfile{{UID: "b1", DisplayName: "Bob"}, {UID: "c1", DisplayName: "Carol"}}
	r.Update(peers, map[string]int{"c1": 2})
	r.Select(2, 0)
	require.Equal(t, "c1", r.Selected())

	r.Update(append([]chat.UserProfile{{UID: "a0", DisplayName: "Al"}}, peers...), nil)
	assert.Equal(t, "c1", r.Selected())
	assert.Equal(t, "a0", r.ByIndex(1))
	assert.Empty(t, r.ByIndex(9))

	r.SetFilter("car")
	assert.Equal(t, "c1", r.ByIndex(1))
	assert.Equal(t, "car", r.Filter())
}

func TestPeerDetails(t *testing.T) {
	theme := ui.DefaultTheme()
	peer := chat.UserProfile{UID: "b1", DisplayName: "Bob", Presence: chat.Online}
	msgs := []chat.Message{
		{SenderID: "a1", ReceiverID: "b1", Status: chat.StatusDelivered},
		{SenderID: "a1", ReceiverID: "b1", Status: chat.StatusSeen},
		{SenderID: "b1", ReceiverID: "a1", Status: chat.StatusSeen},
	}
	out := peerDetails(theme, "a1", peer, msgs, time.Now())
	assert.Contains(t, out, "a1_b1")
	assert.Contains(t, out, "3 (2 sent, 1 received)")
	assert.Contains(t, out, "never")
	assert.True(t, strings.Contains(out, "online"))
}

func TestSourcesGofmt(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		src, err := os.ReadFile(f)
		require.NoError(t, err)
		got, err := format.Source(src)
		require.NoError(t, err, f)
		assert.True(t, bytes.Equal(src, got), "%s is not gofmt-clean", f)
	}
}
