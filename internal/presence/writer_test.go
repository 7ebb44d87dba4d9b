package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/docstore/memstore"
)

func TestOnlineUpsertsProfile(t *testing.T) {
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	store := memstore.New(memstore.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	// A field this writer does not own survives the merge.
	require.NoError(t, store.Set(ctx, chat.UserRef("a1"), map[string]any{"bio": "hello"}))

	w := NewWriter(store, nil, zap.NewNop())
	require.NoError(t, w.Online(ctx, chat.UserProfile{UID: "a1", DisplayName: "Ann", Email: "ann@example.com"}))

	d, err := store.Get(ctx, chat.UserRef("a1"))
	require.NoError(t, err)
	p := chat.ProfileFromDoc(*d)
	require.Equal(t, "Ann", p.DisplayName)
	require.Equal(t, chat.Online, p.Presence)
	require.True(t, p.LastSeen.Equal(now))
	require.Equal(t, "hello", d.String("bio"))
}

func TestOfflineKeepsProfile(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	w := NewWriter(store, nil, zap.NewNop())

	require.NoError(t, w.Online(ctx, chat.UserProfile{UID: "a1", DisplayName: "Ann"}))
	require.NoError(t, w.Offline(ctx, "a1"))

	d, err := store.Get(ctx, chat.UserRef("a1"))
	require.NoError(t, err)
	require.Equal(t, "offline", d.String(chat.FieldPresence))
	require.Equal(t, "Ann", d.String(chat.FieldDisplayName))
}

func TestOfflineUnknownUser(t *testing.T) {
	w := NewWriter(memstore.New(), nil, zap.NewNop())
	err := w.Offline(context.Background(), "ghost")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}
