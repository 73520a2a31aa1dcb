// Package store persists the session credential across an ordered chain
// of storage backends: a durable backend surviving restarts, an
// ephemeral in-process backend, and an optional transport-embedded
// cookie backend. A malformed or unreadable record reads as "no
// credential", never as a failure.
package store

import (
	"context"
	"time"

	"github.com/jrsteele09/go-session-client/credential"
)

// Record is the envelope persisted to a backend. WriterID identifies
// the manager instance that wrote it, letting cross-context observers
// ignore their own writes.
type Record struct {
	Credential credential.Credential `json:"credential"`
	WriterID   string                `json:"writer_id,omitempty"`
	SavedAt    time.Time             `json:"saved_at,omitempty"`
}

// Backend is a single storage surface for the credential record.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Read returns the stored record, or (nil, nil) when absent.
	Read() (*Record, error)

	// Write replaces the stored record.
	Write(Record) error

	// Clear removes the stored record. Clearing an absent record is not
	// an error.
	Clear() error
}

// Change describes an observed mutation of a watched backend made by
// another execution context sharing the same storage.
type Change struct {
	Record  *Record // nil when the record was removed
	Removed bool
}

// Watcher is implemented by backends that can report external
// mutations. The returned channel closes when ctx is done.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}
