// Package cloudstore is a docstore.Store backed by Google Cloud Firestore.
package cloudstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/pingme/internal/docstore"
)

// Config selects the Firestore project and credentials.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// Store implements docstore.Store on Firestore.
type Store struct {
	client *firestore.Client
	log    *zap.Logger

	mu     sync.Mutex
	closed bool
	subs   map[*subscription]struct{}
}

// Open connects to Firestore. An empty CredentialsFile uses application
// default credentials.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("cloudstore: project id is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, log: log, subs: make(map[*subscription]struct{})}, nil
}

// Set creates or replaces a document, or merges into it with MergeAll.
func (s *Store) Set(ctx context.Context, ref docstore.Ref, data map[string]any, opts ...docstore.SetOption) error {
	doc, err := s.doc(ref)
	if err != nil {
		return err
	}
	var setOpts []firestore.SetOption
	if docstore.HasMerge(opts) {
		setOpts = append(setOpts, firestore.MergeAll)
	}
	if _, err := doc.Set(ctx, toFirestore(data), setOpts...); err != nil {
		return fmt.Errorf("set %s: %w", ref.Path(), mapError(err))
	}
	return nil
}

// Update writes fields of an existing document.
func (s *Store) Update(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	doc, err := s.doc(ref)
	if err != nil {
		return err
	}
	if _, err := doc.Update(ctx, updates(fields)); err != nil {
		return fmt.Errorf("update %s: %w", ref.Path(), mapError(err))
	}
	return nil
}

// Add creates a document with a Firestore-assigned id.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (docstore.Ref, error) {
	if s.isClosed() {
		return docstore.Ref{}, docstore.ErrClosed
	}
	doc, _, err := s.client.Collection(collection).Add(ctx, toFirestore(data))
	if err != nil {
		return docstore.Ref{}, fmt.Errorf("add %s: %w", collection, mapError(err))
	}
	return docstore.Doc(collection, doc.ID), nil
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, ref docstore.Ref) (*docstore.Document, error) {
	doc, err := s.doc(ref)
	if err != nil {
		return nil, err
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.Path(), mapError(err))
	}
	d := fromSnapshot(ref.Collection, snap)
	return &d, nil
}

// Query runs q once.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	snaps, err := s.query(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, mapError(err))
	}
	docs := make([]docstore.Document, len(snaps))
	for i, snap := range snaps {
		docs[i] = fromSnapshot(q.Collection, snap)
	}
	return docs, nil
}

// Close stops all listeners and closes the client.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}
	return s.client.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) doc(ref docstore.Ref) (*firestore.DocumentRef, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	doc := s.client.Doc(ref.Path())
	if doc == nil {
		return nil, fmt.Errorf("cloudstore: invalid document path %q", ref.Path())
	}
	return doc, nil
}

func (s *Store) query(q docstore.Query) firestore.Query {
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), filterValue(f))
	}
	if q.Order != "" {
		dir := firestore.Asc
		if q.Dir == docstore.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.Order, dir)
	}
	return fq
}

func filterValue(f docstore.Filter) any {
	if f.Op != docstore.In {
		return f.Value
	}
	if ss, ok := f.Value.([]string); ok {
		out := make([]any, len(ss))
		for i, s := range ss {
			out[i] = s
		}
		return out
	}
	return f.Value
}

func updates(fields map[string]any) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ups := make([]firestore.Update, len(keys))
	for i, k := range keys {
		ups[i] = firestore.Update{Path: k, Value: toFirestoreValue(fields[k])}
	}
	return ups
}

func toFirestore(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = toFirestoreValue(v)
	}
	return out
}

func toFirestoreValue(v any) any {
	if docstore.IsServerTimestamp(v) {
		return firestore.ServerTimestamp
	}
	return docstore.Normalize(v)
}

func fromSnapshot(collection string, snap *firestore.DocumentSnapshot) docstore.Document {
	data := snap.Data()
	for k, v := range data {
		data[k] = docstore.Normalize(v)
	}
	return docstore.Document{
		Ref:        docstore.Doc(collection, snap.Ref.ID),
		Data:       data,
		UpdateTime: snap.UpdateTime,
	}
}

// mapError translates gRPC status codes into docstore sentinels.
func mapError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	default:
		return err
	}
}

// isStopped reports whether a listener error means the stream was shut down
// on purpose.
func isStopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled
}

var _ docstore.Store = (*Store)(nil)
