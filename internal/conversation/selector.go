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

// View is the local state a selection updates.
type View interface {
	SetActive(peer string)
	ZeroUnread(peer string)
}

// Selector opens a conversation.
type Selector struct {
	store   docstore.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewSelector(store docstore.Store, m *metrics.Metrics, log *zap.Logger) *Selector {
	return &Selector{store: store, metrics: m, log: log.Named("selector")}
}

// Select makes peer the active conversation in view, writes seen to every
// unread message from peer, and zeroes peer's unread badge. It returns the
// number of messages marked. A failed query still zeroes the badge.
func (s *Selector) Select(ctx context.Context, view View, self, peer string) (int, error) {
	view.SetActive(peer)
	n, err := s.MarkSeen(ctx, self, peer)
	view.ZeroUnread(peer)
	return n, err
}

// MarkSeen writes seen to every message from peer to self that is still
// sent or delivered.
func (s *Selector) MarkSeen(ctx context.Context, self, peer string) (int, error) {
	docs, err := s.store.Query(ctx, chat.UnreadQuery(self, peer))
	s.metrics.Query(metrics.Selector, err)
	if err != nil {
		s.log.Warn("unread query failed", zap.String("peer", peer), zap.Error(err))
		return 0, fmt.Errorf("query unread from %s: %w", peer, err)
	}

	ctx = context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for _, d := range docs {
		wg.Go(func() {
			writeStatus(ctx, s.store, s.metrics, s.log, metrics.Selector, d.Ref, chat.StatusSeen)
		})
	}
	wg.Wait()
	return len(docs), nil
}
