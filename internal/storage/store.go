package storage

import (
	"errors"
	"fmt"
)

// Store is a durable string key-value store.
//
// Repositories rewrite their whole collection with Set on every mutation,
// so implementations only need whole-value semantics.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
}

// ErrQuotaExceeded is returned when a write would exceed the store's capacity.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Error describes a failed read or write of a single key.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
