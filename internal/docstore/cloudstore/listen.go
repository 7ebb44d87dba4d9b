package cloudstore

import (
	"context"

	"go.uber.org/zap"

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

// Listen streams query snapshots from Firestore until stopped.
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

	it := s.query(q).Snapshots(ctx)

	go func() {
		defer close(sub.done)
		defer it.Stop()
		defer func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
		}()

		log := s.log.With(zap.String("collection", q.Collection))
		for {
			qs, err := it.Next()
			if err != nil {
				if !isStopped(ctx, err) {
					log.Warn("snapshot stream ended", zap.Error(mapError(err)))
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				log.Warn("read snapshot documents", zap.Error(mapError(err)))
				continue
			}
			docs := make([]docstore.Document, len(snaps))
			for i, snap := range snaps {
				docs[i] = fromSnapshot(q.Collection, snap)
			}
			fn(docstore.Snapshot{Docs: docs, ReadTime: qs.ReadTime})
		}
	}()

	return sub, nil
}
