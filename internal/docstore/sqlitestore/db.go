// Package sqlitestore is a docstore.Store backed by a local SQLite file.
// Several processes may open the same file; listeners pick up foreign
// writes by polling the collection's version.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/matheus3301/pingme/internal/bus"
	"github.com/matheus3301/pingme/internal/docstore"
)

const defaultPollInterval = 500 * time.Millisecond

// Store implements docstore.Store on SQLite.
type Store struct {
	db   *sql.DB
	bus  *bus.Bus
	log  *zap.Logger
	now  func() time.Time
	poll time.Duration

	mu     sync.Mutex
	closed bool
	subs   map[*subscription]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithBus publishes change events on b so same-process listeners react
// without waiting for the next poll.
func WithBus(b *bus.Bus) Option {
	return func(s *Store) { s.bus = b }
}

// WithLogger sets the logger used by listener goroutines.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPollInterval sets how often listeners check for writes made by other processes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.poll = d }
}

// Open opens (or creates) the database at path with WAL mode and applies
// pending migrations.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{
		db:   db,
		log:  zap.NewNop(),
		now:  time.Now,
		poll: defaultPollInterval,
		subs: make(map[*subscription]struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	if _, err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close stops all listeners and closes the database.
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
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ docstore.Store = (*Store)(nil)
