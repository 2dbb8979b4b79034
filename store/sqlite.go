package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// SQLite implements Store on a single sqlite file. Writes take a file lock so
// a CLI and a daemon can share the same file.
type SQLite struct {
	db   *sql.DB
	lock *flock.Flock
}

func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at INTEGER NOT NULL);",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init store schema: %w", err)
		}
	}
	return &SQLite{db: db, lock: flock.New(path + ".lock")}, nil
}

func (s *SQLite) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store read: %w", err)
	}
	return value, nil
}

func (s *SQLite) Set(key, value string) error {
	return s.withLock(func() error {
		_, err := s.db.Exec(`
			INSERT INTO kv (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value=excluded.value,
				updated_at=excluded.updated_at
		`, key, value, time.Now().UTC().Unix())
		if err != nil {
			return fmt.Errorf("store write: %w", err)
		}
		return nil
	})
}

func (s *SQLite) Remove(key string) error {
	return s.withLock(func() error {
		if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("store delete: %w", err)
		}
		return nil
	})
}

func (s *SQLite) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
