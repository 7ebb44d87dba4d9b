package sqlitestore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/docstore"
)

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the subscription and waits for its goroutine to exit.
func (s *subscription) Stop() {
	s.cancel()
	<-s.done
}

// Listen delivers the result of q now and whenever it changes. Changes made
// through this Store arrive via the bus; changes from other processes are
// found by polling.
func (s *Store) Listen(ctx context.Context, q docstore.Query, fn docstore.SnapshotFunc) (docstore.Subscription, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	var events <-chan bus.Event
	unsub := func() {}
	if s.bus != nil {
		events, unsub = s.bus.Subscribe(bus.DocNamespace(q.Collection), 64)
	}

	go func() {
		defer close(sub.done)
		defer unsub()
		defer func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
		}()

		log := s.log.With(zap.String("collection", q.Collection))
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		var (
			last    string
			sent    bool
			version int64 = -1
		)
		deliver := func() {
			docs, fp, err := s.run(ctx, q)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("listen query failed", zap.Error(err))
				}
				return
			}
			if sent && fp == last {
				return
			}
			last, sent = fp, true
			fn(docstore.Snapshot{Docs: docs, ReadTime: s.now()})
		}

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-events:
				deliver()
			case <-ticker.C:
				v, err := s.collectionVersion(ctx, q.Collection)
				if err != nil {
					if ctx.Err() == nil {
						log.Debug("poll failed", zap.Error(err))
					}
					continue
				}
				if v != version {
					version = v
					deliver()
				}
			}
		}
	}()

	return sub, nil
}
