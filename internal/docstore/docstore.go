package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get and Update when the document does not exist.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("docstore: store closed")
)

// Ref addresses a single document inside a collection.
type Ref struct {
	Collection string
	ID         string
}

// Doc builds a document reference.
func Doc(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

// Path returns the slash-separated document path, e.g. "users/a1".
func (r Ref) Path() string {
	return r.Collection + "/" + r.ID
}

// CollectionPath joins path segments into a collection path,
// e.g. CollectionPath("messages", "a1_b1", "chats").
func CollectionPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// Document is one stored document. Data values are limited to nil, bool,
// string, int64, float64 and time.Time.
type Document struct {
	Ref        Ref
	Data       map[string]any
	UpdateTime time.Time
}

// String returns the string field or "" when missing or of another type.
func (d Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// Time returns the time field or the zero time.
func (d Document) Time(field string) time.Time {
	t, _ := d.Data[field].(time.Time)
	return t
}

// Snapshot is one delivery of a live query's full result set.
type Snapshot struct {
	Docs     []Document
	ReadTime time.Time
}

// Subscription is a live query registration. Stop must not be called from
// inside the subscription's own callback.
type Subscription interface {
	Stop()
}

// SnapshotFunc receives snapshots of one subscription, one at a time.
type SnapshotFunc func(Snapshot)

type serverTimestamp struct{}

// ServerTimestamp is a field value the store replaces with its own commit time.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// SetOption modifies Set.
type SetOption int

const (
	// MergeAll merges the given fields into an existing document instead of replacing it.
	MergeAll SetOption = iota + 1
)

// HasMerge reports whether opts contains MergeAll.
func HasMerge(opts []SetOption) bool {
	for _, o := range opts {
		if o == MergeAll {
			return true
		}
	}
	return false
}

// Store is the document database boundary. Implementations must be safe for
// concurrent use and must deliver the snapshots of a single subscription in
// order, never concurrently.
type Store interface {
	// Set creates or overwrites a document; with MergeAll it upserts fields.
	Set(ctx context.Context, ref Ref, data map[string]any, opts ...SetOption) error
	// Update writes the named fields of an existing document.
	Update(ctx context.Context, ref Ref, fields map[string]any) error
	// Add creates a document with a store-assigned id.
	Add(ctx context.Context, collection string, data map[string]any) (Ref, error)
	// Get reads one document.
	Get(ctx context.Context, ref Ref) (*Document, error)
	// Query runs a one-shot query.
	Query(ctx context.Context, q Query) ([]Document, error)
	// Listen delivers the current result set of q and every change to it
	// until the subscription is stopped or ctx is cancelled.
	Listen(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error)
	Close() error
}
