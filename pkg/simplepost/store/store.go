// Package store defines the generic document persistence contract used by
// the service. A Store is parameterized by an entity type and knows nothing
// about any particular entity; entity-specific matching, patching and
// validation are supplied through a Codec.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNoDocuments indicates that an operation which requires an existing
// target (FindOneAndUpdate, DeleteOne) matched nothing. FindOne reports
// absence through its boolean result instead, because absence is not
// exceptional on plain lookups.
var ErrNoDocuments = errors.New("no documents matched filter")

// PersistenceError represents a storage-level failure such as a constraint
// violation or a backend fault.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Filter selects documents by field value, keyed by the stored field name
// (e.g. "_id", "owner_id").
type Filter map[string]any

// Patch is a partial update, keyed by the stored field name. Immutable
// fields present in a patch are ignored by the codec.
type Patch map[string]any

// Document is the capability set a stored entity must provide: an identity
// assigned by the store, store-maintained timestamps, and detached copies.
// The type parameter is the implementing type itself, so Clone can return
// the concrete entity.
type Document[T any] interface {
	DocumentID() string
	SetDocumentID(id string)
	StampCreated(now time.Time)
	StampUpdated(now time.Time)
	Clone() T
}

// Codec supplies the entity-specific behavior a backend cannot derive from
// the type parameter alone.
type Codec[T any] interface {
	// Match reports whether the document satisfies every clause of the
	// filter.
	Match(doc T, f Filter) bool

	// Apply merges a partial update into the document, skipping immutable
	// fields.
	Apply(doc T, p Patch)

	// Fields extracts the document's mutable fields as a patch. Backends
	// use it to express upserts as partial updates.
	Fields(doc T) Patch

	// Mutable returns a copy of the patch restricted to mutable fields.
	Mutable(p Patch) Patch

	// Validate checks create-time constraints (required fields). A non-nil
	// result is surfaced as a *PersistenceError.
	Validate(doc T) error
}

// Session is an exclusively owned unit of work. The caller that starts it
// must finish it with exactly one Commit or Abort; both release the
// underlying resources on every exit path.
type Session interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// Store is the generic CRUD contract over a single document collection.
//
// Every write maintains the updated-at timestamp; Create additionally sets
// created-at and assigns a fresh id. All reads return detached copies:
// mutating a returned document never affects stored state.
type Store[T Document[T]] interface {
	// Create assigns a fresh unique id, persists the document and returns
	// the stored representation. Constraint violations yield a
	// *PersistenceError.
	Create(ctx context.Context, doc T) (T, error)

	// FindOne returns the first match, or ok=false when nothing matches.
	FindOne(ctx context.Context, f Filter) (doc T, ok bool, err error)

	// Find returns every match; an empty slice when there are none.
	Find(ctx context.Context, f Filter) ([]T, error)

	// FindOneAndUpdate applies the patch to the first match and returns the
	// post-update document. Returns ErrNoDocuments when nothing matches.
	FindOneAndUpdate(ctx context.Context, f Filter, p Patch) (T, error)

	// Upsert updates the first match or inserts the document when nothing
	// matches, returning the result.
	Upsert(ctx context.Context, f Filter, doc T) (T, error)

	// DeleteOne removes the first match. Returns ErrNoDocuments when
	// nothing matches.
	DeleteOne(ctx context.Context, f Filter) error

	// StartTransaction acquires a session-scoped unit of work owned
	// exclusively by the caller.
	StartTransaction(ctx context.Context) (Session, error)
}

// NewID issues a fresh document identifier.
func NewID() string { return uuid.NewString() }
