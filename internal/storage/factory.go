package storage

import (
	"errors"
	"fmt"
)

var ErrNotInitialized = errors.New("store is not initialized")

// NewStore builds a store backend. path is the sqlite database file for
// "sqlite" and the record directory for "file"; memory ignores it.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(path), nil
	case "sqlite":
		return newSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
