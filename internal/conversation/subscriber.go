// Package conversation follows the open conversation: it streams the
// message thread, advances receipts on inbound messages, and marks a
// conversation seen when it is selected.
package conversation

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/metrics"
)

type Subscriber struct {
	store   docstore.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewSubscriber(store docstore.Store, m *metrics.Metrics, log *zap.Logger) *Subscriber {
	return &Subscriber{store: store, metrics: m, log: log.Named("conversation")}
}

// Subscribe streams the self/peer thread in timestamp order. Each snapshot
// is handed to fn and then swept.
func (s *Subscriber) Subscribe(ctx context.Context, self, peer string, fn func([]chat.Message)) (docstore.Subscription, error) {
	q := docstore.Collection(chat.MessagesPath(self, peer)).OrderBy(chat.FieldTimestamp, docstore.Asc)
	sub, err := s.store.Listen(ctx, q, func(snap docstore.Snapshot) {
		s.metrics.Snapshot(metrics.Conversation)
		msgs := chat.MessagesFromDocs(snap.Docs)
		fn(msgs)
		s.Sweep(ctx, self, msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", chat.ConversationKey(self, peer), err)
	}
	return sub, nil
}

// SweepResult counts the writes one sweep issued.
type SweepResult struct {
	Delivered int
	Seen      int
}

// Sweep advances receipts on the inbound messages of one snapshot: every
// sent message is written delivered, then every message not yet seen is
// written seen. Both passes read the statuses of msgs as given, so a sent
// message gets both writes. Writes outlive ctx.
func (s *Subscriber) Sweep(ctx context.Context, self string, msgs []chat.Message) SweepResult {
	ctx = context.WithoutCancel(ctx)
	var res SweepResult
	res.Delivered = s.advance(ctx, self, msgs, chat.StatusDelivered, func(m chat.Message) bool {
		return m.Status == chat.StatusSent
	})
	res.Seen = s.advance(ctx, self, msgs, chat.StatusSeen, func(m chat.Message) bool {
		return m.Status != chat.StatusSeen
	})
	return res
}

// advance writes to to every inbound message selected by pick, one
// goroutine per write, and waits for all of them.
func (s *Subscriber) advance(ctx context.Context, self string, msgs []chat.Message, to chat.Status, pick func(chat.Message) bool) int {
	var wg sync.WaitGroup
	n := 0
	for _, m := range msgs {
		if !m.Inbound(self) || !pick(m) || !m.Status.CanAdvanceTo(to) {
			continue
		}
		n++
		ref := docstore.Doc(chat.MessagesPath(m.SenderID, m.ReceiverID), m.ID)
		wg.Go(func() {
			writeStatus(ctx, s.store, s.metrics, s.log, metrics.Conversation, ref, to)
		})
	}
	wg.Wait()
	return n
}

func writeStatus(ctx context.Context, store docstore.Store, m *metrics.Metrics, log *zap.Logger, component string, ref docstore.Ref, to chat.Status) {
	err := store.Update(ctx, ref, map[string]any{chat.FieldStatus: string(to)})
	m.Write(component, err)
	if err != nil {
		log.Warn("status write dropped",
			zap.String("message", ref.Path()),
			zap.String("status", string(to)),
			zap.Error(err))
	}
}
