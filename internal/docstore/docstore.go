// Package docstore is the document read/write boundary the activation
// pipeline depends on: keyed get/set, append to a collection, and a
// transaction primitive for read-check-conditional-write. Callers must
// not assume anything beyond these four operations.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists at the key.
var ErrNotFound = errors.New("docstore: document not found")

// Fields is a single document's payload.
type Fields map[string]any

// Tx exposes reads and writes that execute atomically within
// RunTransaction. Set always merges within a transaction.
type Tx interface {
	Get(collection, id string) (Fields, error)
	Set(collection, id string, fields Fields) error
}

// Store is the document store consumed by the pipeline and handlers.
type Store interface {
	// Get loads the document at (collection, id), or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Fields, error)

	// Set writes the document at (collection, id). With merge=true
	// existing fields not present in fields are kept; otherwise the
	// document is replaced.
	Set(ctx context.Context, collection, id string, fields Fields, merge bool) error

	// Add appends a new document with a generated id.
	Add(ctx context.Context, collection string, fields Fields) (string, error)

	// RunTransaction executes fn atomically. Reads performed through
	// the Tx are serialized against concurrent transactions touching
	// the same documents; the first committer wins.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}
