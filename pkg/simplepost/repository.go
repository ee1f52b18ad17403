package simplepost

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/simplepost/simplepost/pkg/simplepost/store"
)

// ByID filters on the document identifier.
func ByID(id string) store.Filter { return store.Filter{"_id": id} }

// ByOwner filters on the owning user.
func ByOwner(ownerID string) store.Filter { return store.Filter{"owner_id": ownerID} }

// PostRepository specializes the generic document store for the Post entity.
// It adds UpdateOne, a cheap matched-and-modified signal for callers that do
// not need the post-update payload.
type PostRepository struct {
	store store.Store[*Post]
}

// NewPostRepository wraps a store for Post documents.
func NewPostRepository(s store.Store[*Post]) *PostRepository {
	return &PostRepository{store: s}
}

func (r *PostRepository) Create(ctx context.Context, post *Post) (*Post, error) {
	return r.store.Create(ctx, post)
}

func (r *PostRepository) FindOne(ctx context.Context, f store.Filter) (*Post, bool, error) {
	return r.store.FindOne(ctx, f)
}

func (r *PostRepository) Find(ctx context.Context, f store.Filter) ([]*Post, error) {
	return r.store.Find(ctx, f)
}

func (r *PostRepository) FindOneAndUpdate(ctx context.Context, f store.Filter, p store.Patch) (*Post, error) {
	return r.store.FindOneAndUpdate(ctx, f, p)
}

func (r *PostRepository) Upsert(ctx context.Context, f store.Filter, post *Post) (*Post, error) {
	return r.store.Upsert(ctx, f, post)
}

func (r *PostRepository) DeleteOne(ctx context.Context, f store.Filter) error {
	return r.store.DeleteOne(ctx, f)
}

// UpdateOne applies the patch to the first match and reports whether any
// document matched and was modified.
func (r *PostRepository) UpdateOne(ctx context.Context, f store.Filter, p store.Patch) (bool, error) {
	_, err := r.store.FindOneAndUpdate(ctx, f, p)
	if errors.Is(err, store.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostRepository) StartTransaction(ctx context.Context) (store.Session, error) {
	return r.store.StartTransaction(ctx)
}

// PostCodec supplies Post-specific matching, patching and constraint
// validation to store backends.
type PostCodec struct{}

func (PostCodec) Match(post *Post, f store.Filter) bool {
	for field, want := range f {
		var got any
		switch field {
		case "_id":
			got = post.ID
		case "owner_id":
			got = post.OwnerID
		case "title":
			got = post.Title
		case "content":
			got = post.Content
		default:
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}

func (c PostCodec) Apply(post *Post, p store.Patch) {
	for field, value := range c.Mutable(p) {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch field {
		case "title":
			post.Title = s
		case "content":
			post.Content = s
		}
	}
}

func (PostCodec) Fields(post *Post) store.Patch {
	return store.Patch{
		"title":    post.Title,
		"content":  post.Content,
		"owner_id": post.OwnerID,
	}
}

// Mutable strips the fields that never change after creation.
func (PostCodec) Mutable(p store.Patch) store.Patch {
	out := make(store.Patch, len(p))
	for field, value := range p {
		switch field {
		case "_id", "owner_id", "created_at":
			continue
		}
		out[field] = value
	}
	return out
}

func (PostCodec) Validate(post *Post) error {
	if post.Title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(post.Title) < TitleMinLength {
		return fmt.Errorf("title must be at least %d characters", TitleMinLength)
	}
	if post.Content == "" {
		return fmt.Errorf("content is required")
	}
	if post.OwnerID == "" {
		return fmt.Errorf("owner is required")
	}
	return nil
}
