// Package prefs persists small boolean preferences such as the premium flag.
package prefs

import (
	"errors"
	"fmt"
)

// Store is a persisted key/value store of booleans. Missing keys read as false.
type Store interface {
	Bool(key string) (bool, error)
	SetBool(key string, value bool) error
	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("unknown preference backend")

// Open returns the store for backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
