// Package cache provides a small persistent key/value store backed by SQLite.
//
// Entries remember when they were written. Expiry is left to callers, which
// read the write time from Get and decide freshness themselves.
package cache

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key       TEXT PRIMARY KEY,
	value     BLOB NOT NULL,
	stored_at INTEGER NOT NULL
);`

// Store is a SQLite-backed key/value cache. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory for %s", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache database %s", path)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize cache schema")
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value stored under key and when it was written.
// ok is false when the key is absent.
func (s *Store) Get(key string) ([]byte, time.Time, bool, error) {
	var value []byte
	var storedAt int64

	err := s.db.QueryRow(`SELECT value, stored_at FROM entries WHERE key = ?`, key).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, errors.Wrapf(err, "failed to read cache entry %q", key)
	}

	return value, time.Unix(0, storedAt), true, nil
}

// Set stores value under key, replacing any previous entry.
func (s *Store) Set(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.Exec(
		`INSERT INTO entries (key, value, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		key, value, s.now().UnixNano(),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to write cache entry %q", key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM entries WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "failed to delete cache entry %q", key)
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM entries`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear cache")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Prune removes entries written before cutoff and returns how many were removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM entries WHERE stored_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune cache")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
