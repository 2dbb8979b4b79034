// Package store provides the persistence store used for endpoint health and
// registry caches. Values are opaque strings, in practice JSON blobs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("key not found")

// Store is a string key/value store.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}

// Open opens the configured backend. path is ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemory(), nil
	case "badger":
		return NewBadger(path)
	case "sqlite":
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// GetJSON decodes the value at key into v. It reports false when the key is missing.
func GetJSON(s Store, key string, v any) (bool, error) {
	raw, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, string(raw))
}
