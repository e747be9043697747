// Package store persists favorites state as opaque string values under
// string keys. The favorites core never talks to a database directly: it
// computes the next state, serialises it and hands the changed keys to an
// Adapter in a single atomic Apply.
//
// Implementations:
//   - Memory: in-process map, used in tests and for ephemeral servers.
//   - Badger: embedded KV database (this package).
//   - sqlite.Store: single-file SQL database (store/sqlite).
//   - postgres.Store: shared SQL database (store/postgres).
package store

import (
	"context"
)

// Adapter is the persistent key-value contract the favorites core writes
// through. All methods are safe for concurrent use.
type Adapter interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent; that is not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Put stores value under key.
	Put(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Apply writes every mutation or none of them.
	Apply(ctx context.Context, mutations []Mutation) error

	// Close releases the underlying resources.
	Close() error
}

// Watcher is implemented by adapters that can report writes made by other
// handles to the same storage (another process, another server instance).
type Watcher interface {
	// Watch calls fn with the keys changed by each committed write until
	// ctx is cancelled. It blocks; run it in its own goroutine.
	Watch(ctx context.Context, fn func(keys []string)) error
}

// Scanner is implemented by adapters that can enumerate keys by prefix.
// Used by operator tooling; the favorites core never scans.
type Scanner interface {
	// Scan calls fn for every key with the given prefix in key order.
	// Returning an error from fn stops the scan and returns that error.
	Scan(ctx context.Context, prefix string, fn func(key, value string) error) error
}

// Mutation is a single key change inside an atomic Apply.
type Mutation struct {
	Key    string
	Value  string
	Delete bool
}

// Set returns a mutation that stores value under key.
func Set(key, value string) Mutation {
	return Mutation{Key: key, Value: value}
}

// Remove returns a mutation that deletes key.
func Remove(key string) Mutation {
	return Mutation{Key: key, Delete: true}
}

// Keys returns the keys touched by mutations, in order.
func Keys(mutations []Mutation) []string {
	keys := make([]string, len(mutations))
	for i, m := range mutations {
		keys[i] = m.Key
	}
	return keys
}
