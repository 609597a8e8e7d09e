// Package prefs is the client's local persistent key/value storage. Values are
// JSON documents in a single SQLite table. It holds the identity typed by the
// user and cached copies of organization config so a session can render
// before its first load finishes.
package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS prefs (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store is a SQLite-backed JSON key/value store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path. ":memory:" gives a
// private in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create prefs directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prefs database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and a
	// single writer avoids SQLITE_BUSY on files.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize prefs schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DefaultPath returns ~/.gottwood/prefs.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".gottwood", "prefs.db"), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetJSON stores v under key.
func (s *Store) SetJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode pref %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write pref %s: %w", key, err)
	}
	return nil
}

// GetJSON decodes the value under key into v. It reports false, leaving v
// untouched, when the key is missing or its value cannot be decoded; a
// corrupt value is logged and removed.
func (s *Store) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read pref %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.Printf("[Prefs] Dropping corrupt value for %s: %v", key, err)
		if err := s.Delete(ctx, key); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete pref %s: %w", key, err)
	}
	return nil
}
