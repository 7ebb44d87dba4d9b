package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/pingme/internal/chat"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: "quit"}},
		{"  Open   Bob Smith ", Command{Name: "open", Args: "Bob Smith"}},
		{"", Command{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCommand(tt.in), tt.in)
	}
}

func TestResolvePeer(t *testing.T) {
	peers := []chat.UserProfile{
		{UID: "b1", DisplayName: "Bob", Email: "bob@example.com"},
		{UID: "b2", DisplayName: "Bobby"},
		{UID: "c1", DisplayName: "Carol"},
	}

	tests := []struct {
		arg, want string
	}{
		{"c1", "c1"},
		{"bob", "b1"},
		{"BOB@example.com", "b1"},
		{"car", "c1"},
	}
	for _, tt := range tests {
		got, err := ResolvePeer(peers, tt.arg)
		require.NoError(t, err, tt.arg)
		assert.Equal(t, tt.want, got, tt.arg)
	}

	_, err := ResolvePeer(peers, "bo")
	assert.ErrorContains(t, err, "matches 2 peers")
	_, err = ResolvePeer(peers, "zed")
	assert.ErrorContains(t, err, "no peer")
	_, err = ResolvePeer(peers, "")
	assert.Error(t, err)
}
