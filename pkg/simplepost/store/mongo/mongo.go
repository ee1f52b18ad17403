// Package mongo implements the generic document store over a MongoDB
// collection. Document identifiers are stored as strings under "_id".
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/simplepost/simplepost/pkg/simplepost/store"
)

// Store implements store.Store[T] over a MongoDB collection. The factory
// produces empty documents for decoding; entities are marshaled through
// their bson struct tags.
type Store[T store.Document[T]] struct {
	client  *mongo.Client
	coll    *mongo.Collection
	codec   store.Codec[T]
	factory func() T
}

// New creates a MongoDB-backed store for one entity type.
func New[T store.Document[T]](client *mongo.Client, coll *mongo.Collection, codec store.Codec[T], factory func() T) *Store[T] {
	return &Store[T]{client: client, coll: coll, codec: codec, factory: factory}
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

	if _, err := s.coll.InsertOne(ctx, stored); err != nil {
		return zero, &store.PersistenceError{Op: "create", Err: err}
	}
	return stored, nil
}

func (s *Store[T]) FindOne(ctx context.Context, f store.Filter) (T, bool, error) {
	doc := s.factory()
	err := s.coll.FindOne(ctx, bson.M(f)).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, &store.PersistenceError{Op: "find_one", Err: err}
	}
	return doc, true, nil
}

func (s *Store[T]) Find(ctx context.Context, f store.Filter) ([]T, error) {
	cursor, err := s.coll.Find(ctx, bson.M(f))
	if err != nil {
		return nil, &store.PersistenceError{Op: "find", Err: err}
	}
	defer cursor.Close(ctx)

	result := make([]T, 0)
	for cursor.Next(ctx) {
		doc := s.factory()
		if err := cursor.Decode(doc); err != nil {
			return nil, &store.PersistenceError{Op: "find", Err: err}
		}
		result = append(result, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, &store.PersistenceError{Op: "find", Err: err}
	}
	return result, nil
}

func (s *Store[T]) FindOneAndUpdate(ctx context.Context, f store.Filter, p store.Patch) (T, error) {
	var zero T

	set := bson.M(s.codec.Mutable(p))
	set["updated_at"] = time.Now().UTC()

	doc := s.factory()
	err := s.coll.FindOneAndUpdate(ctx, bson.M(f), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, store.ErrNoDocuments
	}
	if err != nil {
		return zero, &store.PersistenceError{Op: "find_one_and_update", Err: err}
	}
	return doc, nil
}

func (s *Store[T]) Upsert(ctx context.Context, f store.Filter, doc T) (T, error) {
	var zero T
	if err := s.codec.Validate(doc); err != nil {
		return zero, &store.PersistenceError{Op: "upsert", Err: err}
	}

	result := s.factory()
	err := s.coll.FindOneAndUpdate(ctx, bson.M(f), upsertUpdate(s.codec, doc, time.Now().UTC()),
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(result)
	if err != nil {
		return zero, &store.PersistenceError{Op: "upsert", Err: err}
	}
	return result, nil
}

// upsertUpdate builds the Upsert update document. Mutable fields are always
// set; immutable create-time fields (identity, owner, created-at) go into
// $setOnInsert so an inserted document carries them while an updated one
// keeps its originals.
func upsertUpdate[T store.Document[T]](codec store.Codec[T], doc T, now time.Time) bson.M {
	fields := codec.Fields(doc)
	set := bson.M(codec.Mutable(fields))
	set["updated_at"] = now

	setOnInsert := bson.M{"_id": store.NewID(), "created_at": now}
	for field, value := range fields {
		if _, ok := set[field]; !ok {
			setOnInsert[field] = value
		}
	}
	return bson.M{"$set": set, "$setOnInsert": setOnInsert}
}

func (s *Store[T]) DeleteOne(ctx context.Context, f store.Filter) error {
	result, err := s.coll.DeleteOne(ctx, bson.M(f))
	if err != nil {
		return &store.PersistenceError{Op: "delete_one", Err: err}
	}
	if result.DeletedCount == 0 {
		return store.ErrNoDocuments
	}
	return nil
}

func (s *Store[T]) StartTransaction(ctx context.Context) (store.Session, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, &store.PersistenceError{Op: "start_transaction", Err: err}
	}
	if err := sess.StartTransaction(); err != nil {
		sess.EndSession(ctx)
		return nil, &store.PersistenceError{Op: "start_transaction", Err: err}
	}
	return &session{sess: sess}, nil
}

type session struct {
	sess mongo.Session
}

func (t *session) Commit(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	return t.sess.CommitTransaction(ctx)
}

func (t *session) Abort(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	return t.sess.AbortTransaction(ctx)
}
