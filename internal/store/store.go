// Package store provides the agent's durable key-value store with change
// notifications. It backs both user settings and the persisted warning
// state, and is the only shared mutable resource in the process.
package store

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Change describes one key transition inside a change batch. OldValue or
// NewValue is nil when the key was absent before or after the write.
type Change struct {
	Key      string
	OldValue []byte
	NewValue []byte
}

// Store is a SQLite-backed key-value store. Writes are performed inside a
// transaction so a full WarningSet replacement is atomic, and every write
// produces a change batch delivered to all registered watchers.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	mu       sync.Mutex
	watchers map[int]chan []Change
	nextID   int
	closed   bool
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// Open opens (or creates) the store at path and ensures the schema exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open store")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping store")
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}

	return &Store{
		db:       db,
		logger:   logger,
		watchers: make(map[int]chan []Change),
	}, nil
}

// Close releases the underlying database handle and closes all watcher
// channels.
func (s *Store) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		for id, ch := range s.watchers {
			close(ch)
			delete(s.watchers, id)
		}
	}
	s.mu.Unlock()

	return s.db.Close()
}

// Get returns the value stored under key, or nil if the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get key %s", key)
	}
	return value, nil
}

// GetMany returns the stored values for the requested keys. Absent keys are
// omitted from the result.
func (s *Store) GetMany(keys ...string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if value != nil {
			result[key] = value
		}
	}
	return result, nil
}

// Set stores a single key.
func (s *Store) Set(key string, value []byte) error {
	return s.SetMany(map[string][]byte{key: value})
}

// SetMany stores all given keys in one transaction and delivers a single
// change batch covering every key whose value actually changed.
func (s *Store) SetMany(values map[string][]byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var changes []Change
	for key, value := range values {
		var old []byte
		err := tx.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&old)
		if err != nil && err != sql.ErrNoRows {
			return errors.Wrapf(err, "failed to read old value for key %s", key)
		}

		if _, err := tx.Exec(
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return errors.Wrapf(err, "failed to set key %s", key)
		}

		if !bytes.Equal(old, value) {
			changes = append(changes, Change{Key: key, OldValue: old, NewValue: value})
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	s.notify(changes)
	return nil
}

// Remove deletes the given keys and delivers a change batch for the keys
// that existed.
func (s *Store) Remove(keys ...string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var changes []Change
	for _, key := range keys {
		var old []byte
		err := tx.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&old)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read old value for key %s", key)
		}

		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			return errors.Wrapf(err, "failed to remove key %s", key)
		}

		changes = append(changes, Change{Key: key, OldValue: old})
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	s.notify(changes)
	return nil
}

// Watch registers a watcher receiving change batches for every write. The
// returned cancel function unregisters the watcher and closes its channel.
// Watchers that fall behind have batches dropped rather than blocking the
// writer.
func (s *Store) Watch() (<-chan []Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan []Change, 16)
	s.watchers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(w)
		}
	}

	return ch, cancel
}

func (s *Store) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.watchers {
		select {
		case ch <- changes:
		default:
			s.logger.Warn("Dropping change batch for slow watcher",
				zap.Int("watcherId", id),
				zap.Int("changes", len(changes)))
		}
	}
}
