// Package memory implements the generic document store over process-local
// maps. It is the default backend for tests and development.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/simplepost/simplepost/pkg/simplepost/store"
)

// Store implements store.Store[T] using in-memory storage. Documents are
// kept in insertion order so "first match" is deterministic.
type Store[T store.Document[T]] struct {
	mu    sync.RWMutex
	docs  map[string]T
	order []string
	codec store.Codec[T]
}

// New creates an in-memory store for one entity type.
func New[T store.Document[T]](codec store.Codec[T]) *Store[T] {
	return &Store[T]{
		docs:  make(map[string]T),
		codec: codec,
	}
}

func (s *Store[T]) Create(ctx context.Context, doc T) (T, error) {
	var zero T
	if err := s.codec.Validate(doc); err != nil {
		return zero, &store.PersistenceError{Op: "create", Err: err}
	}

	stored := doc.Clone()
	now := time.Now().UTC()
	stored.SetDocumentID(store.NewID())
	stored.StampCreated(now)
	stored.StampUpdated(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[stored.DocumentID()] = stored
	s.order = append(s.order, stored.DocumentID())

	return stored.Clone(), nil
}

func (s *Store[T]) FindOne(ctx context.Context, f store.Filter) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.firstMatch(f)
	if !ok {
		var zero T
		return zero, false, nil
	}
	return doc.Clone(), true, nil
}

func (s *Store[T]) Find(ctx context.Context, f store.Filter) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0)
	for _, id := range s.order {
		if doc, ok := s.docs[id]; ok && s.codec.Match(doc, f) {
			result = append(result, doc.Clone())
		}
	}
	return result, nil
}

func (s *Store[T]) FindOneAndUpdate(ctx context.Context, f store.Filter, p store.Patch) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.firstMatch(f)
	if !ok {
		var zero T
		return zero, store.ErrNoDocuments
	}

	s.codec.Apply(doc, p)
	doc.StampUpdated(time.Now().UTC())
	return doc.Clone(), nil
}

func (s *Store[T]) Upsert(ctx context.Context, f store.Filter, doc T) (T, error) {
	s.mu.Lock()

	if existing, ok := s.firstMatch(f); ok {
		s.codec.Apply(existing, s.codec.Fields(doc))
		existing.StampUpdated(time.Now().UTC())
		s.mu.Unlock()
		return existing.Clone(), nil
	}
	s.mu.Unlock()

	stored, err := s.Create(ctx, doc)
	if err != nil {
		var pe *store.PersistenceError
		if errors.As(err, &pe) {
			return stored, &store.PersistenceError{Op: "upsert", Err: pe.Err}
		}
		return stored, &store.PersistenceError{Op: "upsert", Err: err}
	}
	return stored, nil
}

func (s *Store[T]) DeleteOne(ctx context.Context, f store.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.order {
		doc, ok := s.docs[id]
		if !ok || !s.codec.Match(doc, f) {
			continue
		}
		delete(s.docs, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
		return nil
	}
	return store.ErrNoDocuments
}

// StartTransaction takes the store's write lock and snapshots the current
// state. Commit releases the lock; Abort restores the snapshot first. The
// session serializes every other store operation until it is finished, which
// gives the caller true exclusive ownership. A session that is never
// committed or aborted holds the lock forever and blocks the whole store, so
// callers must finish every session on all paths.
func (s *Store[T]) StartTransaction(ctx context.Context) (store.Session, error) {
	s.mu.Lock()

	snapshot := make(map[string]T, len(s.docs))
	for id, doc := range s.docs {
		snapshot[id] = doc.Clone()
	}
	order := make([]string, len(s.order))
	copy(order, s.order)

	return &session[T]{store: s, snapshot: snapshot, order: order}, nil
}

// firstMatch walks documents in insertion order. Callers must hold the lock.
func (s *Store[T]) firstMatch(f store.Filter) (T, bool) {
	for _, id := range s.order {
		if doc, ok := s.docs[id]; ok && s.codec.Match(doc, f) {
			return doc, true
		}
	}
	var zero T
	return zero, false
}

type session[T store.Document[T]] struct {
	store    *Store[T]
	snapshot map[string]T
	order    []string
	finished bool
}

var errSessionFinished = errors.New("session already finished")

func (t *session[T]) Commit(ctx context.Context) error {
	if t.finished {
		return errSessionFinished
	}
	t.finished = true
	t.snapshot = nil
	t.store.mu.Unlock()
	return nil
}

func (t *session[T]) Abort(ctx context.Context) error {
	if t.finished {
		return errSessionFinished
	}
	t.finished = true
	t.store.docs = t.snapshot
	t.store.order = t.order
	t.snapshot = nil
	t.store.mu.Unlock()
	return nil
}
