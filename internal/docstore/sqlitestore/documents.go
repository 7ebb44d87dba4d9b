package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/docstore"
)

// Set creates or replaces a document, or merges into it with MergeAll.
func (s *Store) Set(ctx context.Context, ref docstore.Ref, data map[string]any, opts ...docstore.SetOption) error {
	merge := docstore.HasMerge(opts)
	return s.write(ctx, ref, func(existing map[string]any, found bool) (map[string]any, error) {
		if found && merge {
			return existing, nil
		}
		return map[string]any{}, nil
	}, data)
}

// Update writes fields of an existing document.
func (s *Store) Update(ctx context.Context, ref docstore.Ref, fields map[string]any) error {
	return s.write(ctx, ref, func(existing map[string]any, found bool) (map[string]any, error) {
		if !found {
			return nil, fmt.Errorf("update %s: %w", ref.Path(), docstore.ErrNotFound)
		}
		return existing, nil
	}, fields)
}

// Add creates a document with a random id.
func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (docstore.Ref, error) {
	ref := docstore.Doc(collection, newID())
	if err := s.Set(ctx, ref, data); err != nil {
		return docstore.Ref{}, err
	}
	return ref, nil
}

// Get reads one document.
func (s *Store) Get(ctx context.Context, ref docstore.Ref) (*docstore.Document, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	var (
		blob    []byte
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM documents WHERE collection = ? AND id = ?`,
		ref.Collection, ref.ID).Scan(&blob, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", ref.Path(), docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.Path(), err)
	}
	data, err := decode(blob)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.Path(), err)
	}
	return &docstore.Document{Ref: ref, Data: data, UpdateTime: time.UnixMilli(updated).UTC()}, nil
}

// Query runs q. Filtering and ordering happen after decoding, since
// document bodies are opaque to SQLite.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	docs, _, err := s.run(ctx, q)
	return docs, err
}

// write applies fields on top of the base chosen by pick inside one
// immediate transaction, bumping the document version.
func (s *Store) write(ctx context.Context, ref docstore.Ref, pick func(map[string]any, bool) (map[string]any, error), fields map[string]any) error {
	if s.isClosed() {
		return docstore.ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var blob []byte
	existing := map[string]any{}
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		ref.Collection, ref.ID).Scan(&blob)
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read %s: %w", ref.Path(), err)
	}
	if found {
		if existing, err = decode(blob); err != nil {
			return fmt.Errorf("read %s: %w", ref.Path(), err)
		}
	}

	base, err := pick(existing, found)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	merged := maps.Clone(base)
	for k, v := range fields {
		if docstore.IsServerTimestamp(v) {
			v = now
		}
		merged[k] = v
	}
	if blob, err = encode(merged); err != nil {
		return fmt.Errorf("write %s: %w", ref.Path(), err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, version, created_at, updated_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(version), 0) + 1 FROM documents), ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		ref.Collection, ref.ID, blob, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("write %s: %w", ref.Path(), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", ref.Path(), err)
	}

	s.bus.Emit(bus.DocChanged(ref.Collection, ref.ID), nil)
	return nil
}

// run evaluates q and returns the result plus a fingerprint of ids and versions.
func (s *Store) run(ctx context.Context, q docstore.Query) ([]docstore.Document, string, error) {
	if s.isClosed() {
		return nil, "", docstore.ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data, version, updated_at FROM documents WHERE collection = ? ORDER BY seq`,
		q.Collection)
	if err != nil {
		return nil, "", fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer func() { _ = rows.Close() }()

	var all []docstore.Document
	versions := make(map[string]int64)
	for rows.Next() {
		var (
			id      string
			blob    []byte
			version int64
			updated int64
		)
		if err := rows.Scan(&id, &blob, &version, &updated); err != nil {
			return nil, "", fmt.Errorf("query %s: %w", q.Collection, err)
		}
		data, err := decode(blob)
		if err != nil {
			return nil, "", fmt.Errorf("query %s/%s: %w", q.Collection, id, err)
		}
		all = append(all, docstore.Document{
			Ref:        docstore.Doc(q.Collection, id),
			Data:       data,
			UpdateTime: time.UnixMilli(updated).UTC(),
		})
		versions[id] = version
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("query %s: %w", q.Collection, err)
	}

	docs := q.Apply(all)
	var fp strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&fp, "%s:%d;", d.Ref.ID, versions[d.Ref.ID])
	}
	return docs, fp.String(), nil
}

// collectionVersion returns the highest document version in collection.
func (s *Store) collectionVersion(ctx context.Context, collection string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM documents WHERE collection = ?`,
		collection).Scan(&v)
	return v, err
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
