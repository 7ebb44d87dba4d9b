package sqlitestore

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/docstore"
)

func testStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pingme.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestMigrateIdempotent(t *testing.T) {
	s, _ := testStore(t)

	result, err := s.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	ts := time.Date(2026, 7, 4, 12, 30, 15, 123456789, time.UTC)
	in := map[string]any{
		"text":    "hello",
		"count":   7,
		"ratio":   0.5,
		"ok":      true,
		"missing": nil,
		"at":      ts,
	}
	b, err := encode(in)
	require.NoError(t, err)
	out, err := decode(b)
	require.NoError(t, err)

	require.Equal(t, "hello", out["text"])
	require.Equal(t, int64(7), out["count"])
	require.Equal(t, 0.5, out["ratio"])
	require.Equal(t, true, out["ok"])
	require.Nil(t, out["missing"])
	require.True(t, ts.Equal(out["at"].(time.Time)))
}

func TestCodecRejectsUnsupported(t *testing.T) {
	_, err := encode(map[string]any{"bad": []string{"x"}})
	require.Error(t, err)
}

func TestSetGetUpdate(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s, _ := testStore(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	ref := docstore.Doc("users", "a1")

	require.NoError(t, s.Set(ctx, ref, map[string]any{
		"displayName": "Ann",
		"status":      "online",
		"lastSeen":    docstore.ServerTimestamp,
	}, docstore.MergeAll))
	require.NoError(t, s.Update(ctx, ref, map[string]any{"status": "offline"}))

	d, err := s.Get(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, "Ann", d.String("displayName"))
	require.Equal(t, "offline", d.String("status"))
	require.True(t, d.Time("lastSeen").Equal(now))

	err = s.Update(ctx, docstore.Doc("users", "ghost"), map[string]any{"status": "offline"})
	require.ErrorIs(t, err, docstore.ErrNotFound)
	_, err = s.Get(ctx, docstore.Doc("users", "ghost"))
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestQueryFiltersAndOrder(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	s, _ := testStore(t, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()
	coll := docstore.CollectionPath("messages", "a1_b1", "chats")

	for _, f := range []map[string]any{
		{"text": "one", "receiverId": "a1", "status": "sent", "timestamp": docstore.ServerTimestamp},
		{"text": "two", "receiverId": "b1", "status": "sent", "timestamp": docstore.ServerTimestamp},
		{"text": "three", "receiverId": "a1", "status": "seen", "timestamp": docstore.ServerTimestamp},
		{"text": "four", "receiverId": "a1", "status": "delivered", "timestamp": docstore.ServerTimestamp},
	} {
		_, err := s.Add(ctx, coll, f)
		require.NoError(t, err)
	}

	unread, err := s.Query(ctx, docstore.Collection(coll).
		Where("receiverId", docstore.Equal, "a1").
		Where("status", docstore.In, []string{"sent", "delivered"}))
	require.NoError(t, err)
	require.Len(t, unread, 2)

	all, err := s.Query(ctx, docstore.Collection(coll).OrderBy("timestamp", docstore.Desc))
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "four", all[0].String("text"))
	require.Equal(t, "one", all[3].String("text"))
}

func TestListenSameProcess(t *testing.T) {
	s, _ := testStore(t, WithBus(bus.New()), WithPollInterval(time.Hour))
	ctx := context.Background()

	got := make(chan int, 8)
	sub, err := s.Listen(ctx, docstore.Collection("users"), func(snap docstore.Snapshot) {
		got <- len(snap.Docs)
	})
	require.NoError(t, err)
	defer sub.Stop()
	require.Equal(t, 0, <-got)

	require.NoError(t, s.Set(ctx, docstore.Doc("users", "a1"), map[string]any{"status": "online"}))

	// The poll interval is an hour, so only the bus can deliver this.
	select {
	case n := <-got:
		require.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("same-process write never observed")
	}
}

func TestListenSeesOtherConnection(t *testing.T) {
	s, path := testStore(t, WithPollInterval(20*time.Millisecond))
	other, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	ctx := context.Background()
	got := make(chan int, 8)
	sub, err := s.Listen(ctx, docstore.Collection("users"), func(snap docstore.Snapshot) {
		got <- len(snap.Docs)
	})
	require.NoError(t, err)
	defer sub.Stop()
	require.Equal(t, 0, <-got)

	require.NoError(t, other.Set(ctx, docstore.Doc("users", "b1"), map[string]any{"status": "online"}))

	select {
	case n := <-got:
		require.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("write from another connection never observed")
	}
}

func TestClosedStore(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Set(context.Background(), docstore.Doc("users", "a1"), nil), docstore.ErrClosed)
	_, err := s.Listen(context.Background(), docstore.Collection("users"), func(docstore.Snapshot) {})
	require.ErrorIs(t, err, docstore.ErrClosed)
}
