// Package memstore is an in-process docstore.Store. Change notifications
// travel over the event bus, so listeners in the same process see writes
// from every client sharing the store.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/docstore"
)

// Store keeps documents in memory.
type Store struct {
	mu     sync.RWMutex
	colls  map[string]*collection
	closed bool
	bus    *bus.Bus
	now    func() time.Time
	subs   map[*subscription]struct{}
}

type collection struct {
	order []string
	docs  map[string]*entry
}

type entry struct {
	data    map[string]any
	rev     int64
	updated time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithBus shares an existing bus instead of creating a private one.
func WithBus(b *bus.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithClock overrides the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		colls: make(map[string]*collection),
		now:   time.Now,
		subs:  make(map[*subscription]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.bus == nil {
		s.bus = bus.New()
	}
	return s
}

// Set creates or replaces a document, or merges into it with MergeAll.
func (s *Store) Set(_ context.Context, ref docstore.Ref, data map[string]any, opts ...docstore.SetOption) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	c := s.coll(ref.Collection)
	e, ok := c.docs[ref.ID]
	if !ok {
		e = &entry{data: make(map[string]any)}
		c.docs[ref.ID] = e
		c.order = append(c.order, ref.ID)
	} else if !docstore.HasMerge(opts) {
		e.data = make(map[string]any)
	}
	s.apply(e, data)
	s.mu.Unlock()

	s.bus.Emit(bus.DocChanged(ref.Collection, ref.ID), nil)
	return nil
}

// Update writes fields of an existing document.
func (s *Store) Update(_ context.Context, ref docstore.Ref, fields map[string]any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	c, ok := s.colls[ref.Collection]
	var e *entry
	if ok {
		e = c.docs[ref.ID]
	}
	if e == nil {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", ref.Path(), docstore.ErrNotFound)
	}
	s.apply(e, fields)
	s.mu.Unlock()

	s.bus.Emit(bus.DocChanged(ref.Collection, ref.ID), nil)
	return nil
}

// Add creates a document with a random id.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (docstore.Ref, error) {
	ref := docstore.Doc(collection, newID())
	if err := s.Set(ctx, ref, data); err != nil {
		return docstore.Ref{}, err
	}
	return ref, nil
}

// Get returns a copy of one document.
func (s *Store) Get(_ context.Context, ref docstore.Ref) (*docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}
	c, ok := s.colls[ref.Collection]
	if !ok || c.docs[ref.ID] == nil {
		return nil, fmt.Errorf("get %s: %w", ref.Path(), docstore.ErrNotFound)
	}
	e := c.docs[ref.ID]
	return &docstore.Document{Ref: ref, Data: maps.Clone(e.data), UpdateTime: e.updated}, nil
}

// Query runs q against the current contents.
func (s *Store) Query(_ context.Context, q docstore.Query) ([]docstore.Document, error) {
	docs, _, err := s.run(q)
	return docs, err
}

// Listen delivers the result set of q now and after every change to the
// collection that alters it.
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

	// Subscribe before the first read so no change can slip between them.
	ch, unsub := s.bus.Subscribe(bus.DocNamespace(q.Collection), 64)

	go func() {
		defer close(sub.done)
		defer unsub()
		defer func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
		}()

		var (
			last string
			sent bool
		)
		deliver := func() {
			docs, fp, err := s.run(q)
			if err != nil || (sent && fp == last) {
				return
			}
			last, sent = fp, true
			fn(docstore.Snapshot{Docs: docs, ReadTime: s.now()})
		}

		deliver()
		for {
			select {
			case <-ch:
				// Each event re-reads the whole result, so an event dropped
				// on a full buffer is covered by any later one.
				deliver()
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// Close stops every subscription and rejects further operations.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}
	return nil
}

func (s *Store) coll(name string) *collection {
	c, ok := s.colls[name]
	if !ok {
		c = &collection{docs: make(map[string]*entry)}
		s.colls[name] = c
	}
	return c
}

// apply must be called with s.mu held.
func (s *Store) apply(e *entry, fields map[string]any) {
	now := s.now().UTC()
	for k, v := range fields {
		if docstore.IsServerTimestamp(v) {
			v = now
		}
		e.data[k] = docstore.Normalize(v)
	}
	e.rev++
	e.updated = now
}

// run evaluates q and returns the result with a fingerprint of ids and revisions.
func (s *Store) run(q docstore.Query) ([]docstore.Document, string, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, "", docstore.ErrClosed
	}
	var all []docstore.Document
	revs := make(map[string]int64)
	if c, ok := s.colls[q.Collection]; ok {
		all = make([]docstore.Document, 0, len(c.order))
		for _, id := range c.order {
			e := c.docs[id]
			all = append(all, docstore.Document{
				Ref:        docstore.Doc(q.Collection, id),
				Data:       maps.Clone(e.data),
				UpdateTime: e.updated,
			})
			revs[id] = e.rev
		}
	}
	s.mu.RUnlock()

	docs := q.Apply(all)
	var fp strings.Builder
	for _, d := range docs {
		fp.WriteString(d.Ref.ID)
		fp.WriteByte(':')
		fp.WriteString(strconv.FormatInt(revs[d.Ref.ID], 10))
		fp.WriteByte(';')
	}
	return docs, fp.String(), nil
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the subscription and waits for its goroutine to exit.
func (s *subscription) Stop() {
	s.cancel()
	<-s.done
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
