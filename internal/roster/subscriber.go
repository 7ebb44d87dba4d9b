// Package roster keeps the live list of other users and, for each of them,
// how many of their messages the signed-in user has not seen.
package roster

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/chat"
	"github.com/matheus3301/pingme/internal/docstore"
	"github.com/matheus3301/pingme/internal/metrics"
)

// Update is one recomputed roster.
type Update struct {
	Peers  []chat.UserProfile
	Unread map[string]int
}

type Subscriber struct {
	store   docstore.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewSubscriber(store docstore.Store, m *metrics.Metrics, log *zap.Logger) *Subscriber {
	return &Subscriber{store: store, metrics: m, log: log.Named("roster")}
}

// Subscribe listens to the users collection on behalf of self. For every
// snapshot it counts unread messages per peer concurrently and calls fn
// once all counts are in. Snapshots are handled one at a time, so an
// Update never overtakes the Update of a later snapshot.
func (s *Subscriber) Subscribe(ctx context.Context, self string, fn func(Update)) (docstore.Subscription, error) {
	q := docstore.Collection(chat.UsersCollection)
	sub, err := s.store.Listen(ctx, q, func(snap docstore.Snapshot) {
		s.metrics.Snapshot(metrics.Roster)
		fn(s.build(ctx, self, snap))
	})
	if err != nil {
		return nil, fmt.Errorf("listen users: %w", err)
	}
	return sub, nil
}

func (s *Subscriber) build(ctx context.Context, self string, snap docstore.Snapshot) Update {
	peers := make([]chat.UserProfile, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		p := chat.ProfileFromDoc(d)
		if p.UID == self {
			continue
		}
		peers = append(peers, p)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		unread = make(map[string]int, len(peers))
	)
	for _, p := range peers {
		wg.Go(func() {
			n, err := s.CountUnread(ctx, self, p.UID)
			if err != nil {
				s.log.Warn("unread count failed", zap.String("peer", p.UID), zap.Error(err))
				return
			}
			mu.Lock()
			unread[p.UID] = n
			mu.Unlock()
		})
	}
	wg.Wait()

	return Update{Peers: peers, Unread: unread}
}

// CountUnread counts messages from peer to self that are not yet seen.
func (s *Subscriber) CountUnread(ctx context.Context, self, peer string) (int, error) {
	docs, err := s.store.Query(ctx, chat.UnreadQuery(self, peer))
	s.metrics.Query(metrics.Roster, err)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
