package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/docstore/memstore"
)

type statusWrite struct {
	id     string
	status string
}

// recordingStore records every status write passed to Update.
type recordingStore struct {
	docstore.Store
	mu     sync.Mutex
	writes []statusWrite
	fail   error
}

func (r *recordingStore) Update(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	r.mu.Lock()
	st, _ := fields[chat.FieldStatus].(string)
	r.writes = append(r.writes, statusWrite{id: ref.ID, status: st})
	fail := r.fail
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.Store.Update(ctx, ref, fields)
}

func (r *recordingStore) snapshot() []statusWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statusWrite(nil), r.writes...)
}

func newStore() *recordingStore {
	return &recordingStore{Store: memstore.New()}
}

func send(t *testing.T, s docstore.Store, from, to, text string) docstore.Ref {
	t.Helper()
	ref, err := s.Add(context.Background(), chat.MessagesPath(from, to), chat.NewMessageFields(from, to, text))
	require.NoError(t, err)
	return ref
}

func status(t *testing.T, s docstore.Store, ref docstore.Ref) chat.Status {
	t.Helper()
	d, err := s.Get(context.Background(), ref)
	require.NoError(t, err)
	return chat.Status(d.String(chat.FieldStatus))
}

func TestSweepWritesDeliveredThenSeen(t *testing.T) {
	store := newStore()
	sub := NewSubscriber(store, nil, zap.NewNop())
	msgs := []chat.Message{
		{ID: "m1", SenderID: "b1", ReceiverID: "a1", Status: chat.StatusSent},
	}

	res := sub.Sweep(context.Background(), "a1", msgs)
	require.Equal(t, SweepResult{Delivered: 1, Seen: 1}, res)

	// The document does not exist in the store, so both writes fail, but
	// the order in which they were issued is still observable.
	require.Equal(t, []statusWrite{{"m1", "delivered"}, {"m1", "seen"}}, store.snapshot())
}

func TestSweepNeverMovesBackward(t *testing.T) {
	store := newStore()
	sub := NewSubscriber(store, nil, zap.NewNop())
	msgs := []chat.Message{
		{ID: "seen", SenderID: "b1", ReceiverID: "a1", Status: chat.StatusSeen},
		{ID: "delivered", SenderID: "b1", ReceiverID: "a1", Status: chat.StatusDelivered},
		{ID: "outbound", SenderID: "a1", ReceiverID: "b1", Status: chat.StatusSent},
	}

	res := sub.Sweep(context.Background(), "a1", msgs)
	require.Equal(t, SweepResult{Delivered: 0, Seen: 1}, res)
	require.Equal(t, []statusWrite{{"delivered", "seen"}}, store.snapshot())
}

func TestSweepToleratesWriteFailures(t *testing.T) {
	store := newStore()
	store.fail = errors.New("unavailable")
	sub := NewSubscriber(store, nil, zap.NewNop())
	msgs := []chat.Message{
		{ID: "m1", SenderID: "b1", ReceiverID: "a1", Status: chat.StatusSent},
		{ID: "m2", SenderID: "b1", ReceiverID: "a1", Status: chat.StatusSent},
	}

	res := sub.Sweep(context.Background(), "a1", msgs)
	require.Equal(t, SweepResult{Delivered: 2, Seen: 2}, res)
	require.Len(t, store.snapshot(), 4)
}

// a1 receives "hi" from b1 and opens the conversation: the subscriber writes
// delivered then seen in the same handler call and the message ends seen.
func TestOpenConversationScenario(t *testing.T) {
	store := newStore()
	ref := send(t, store, "b1", "a1", "hi")
	require.Equal(t, "a1_b1", chat.ConversationKey("a1", "b1"))
	require.Equal(t, chat.StatusSent, status(t, store, ref))

	var (
		mu     sync.Mutex
		thread [][]chat.Message
	)
	sub, err := NewSubscriber(store, nil, zap.NewNop()).Subscribe(context.Background(), "a1", "b1", func(msgs []chat.Message) {
		mu.Lock()
		thread = append(thread, msgs)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Stop()

	require.Eventually(t, func() bool {
		return status(t, store, ref) == chat.StatusSeen
	}, time.Second, 5*time.Millisecond)

	writes := store.snapshot()
	require.GreaterOrEqual(t, len(writes), 2)
	require.Equal(t, statusWrite{ref.ID, "delivered"}, writes[0])
	require.Equal(t, statusWrite{ref.ID, "seen"}, writes[1])
	for _, w := range writes[2:] {
		require.Equal(t, "seen", w.status, "later sweeps only move forward")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, thread)
	require.Equal(t, "hi", thread[0][0].Text)
}

func TestSubscribeOrdersByTimestamp(t *testing.T) {
	clock := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	var cmu sync.Mutex
	mem := memstore.New(memstore.WithClock(func() time.Time {
		cmu.Lock()
		defer cmu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}))
	send(t, mem, "a1", "b1", "first")
	send(t, mem, "b1", "a1", "second")
	send(t, mem, "a1", "b1", "third")

	got := make(chan []chat.Message, 8)
	sub, err := NewSubscriber(mem, nil, zap.NewNop()).Subscribe(context.Background(), "a1", "b1", func(msgs []chat.Message) {
		got <- msgs
	})
	require.NoError(t, err)
	defer sub.Stop()

	msgs := <-got
	require.Len(t, msgs, 3)
	require.Equal(t, "first", msgs[0].Text)
	require.Equal(t, "third", msgs[2].Text)
	require.True(t, msgs[0].Timestamp.Before(msgs[1].Timestamp))
}

type fakeView struct {
	calls []string
}

func (v *fakeView) SetActive(peer string)  { v.calls = append(v.calls, "active:"+peer) }
func (v *fakeView) ZeroUnread(peer string) { v.calls = append(v.calls, "zero:"+peer) }

func TestSelectMarksPendingSeen(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	sent := send(t, store, "b1", "a1", "one")
	delivered := send(t, store, "b1", "a1", "two")
	require.NoError(t, store.Store.Update(ctx, delivered, map[string]any{chat.FieldStatus: "delivered"}))
	outbound := send(t, store, "a1", "b1", "mine")

	view := &fakeView{}
	n, err := NewSelector(store, nil, zap.NewNop()).Select(ctx, view, "a1", "b1")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"active:b1", "zero:b1"}, view.calls)

	require.Equal(t, chat.StatusSeen, status(t, store, sent))
	require.Equal(t, chat.StatusSeen, status(t, store, delivered))
	require.Equal(t, chat.StatusSent, status(t, store, outbound), "outbound receipts belong to the peer")

	unread, err := store.Query(ctx, chat.UnreadQuery("a1", "b1"))
	require.NoError(t, err)
	require.Empty(t, unread)
}

func TestSelectIsIdempotent(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	send(t, store, "b1", "a1", "one")
	sel := NewSelector(store, nil, zap.NewNop())

	_, err := sel.MarkSeen(ctx, "a1", "b1")
	require.NoError(t, err)
	before := len(store.snapshot())

	n, err := sel.MarkSeen(ctx, "a1", "b1")
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, store.snapshot(), before, "already-seen messages get no write")
}
