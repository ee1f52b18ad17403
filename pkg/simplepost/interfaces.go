package simplepost

import "context"

// Service is the business-logic surface of the post service. Each mutating
// operation runs a short validate → authorize → mutate → notify pipeline,
// short-circuiting on the first failure.
type Service interface {
	// CreatePost persists a new post owned by the submitting user and
	// publishes post_created. Creation is not complete until the broker
	// accepts the event.
	CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error)

	// FindAll returns every post owned by ownerID. The filter itself scopes
	// to the caller, so no separate authorization step runs.
	FindAll(ctx context.Context, ownerID string) ([]*Post, error)

	// FindPost returns one post after an ownership check against the
	// stored owner.
	FindPost(ctx context.Context, id, userID string) (*Post, error)

	// UpdatePost partially merges the request into the post, never touching
	// the owner, and publishes post_updated.
	UpdatePost(ctx context.Context, id string, req UpdatePostRequest, userID string) (*Post, error)

	// DeletePost removes the post and publishes post_deleted, but only
	// after the deletion is confirmed.
	DeletePost(ctx context.Context, id, userID string) error

	// Inbound event reactions. Observational for now; future consumers
	// implement real fan-out here.
	HandlePostCreated(ctx context.Context, post *Post)
	HandlePostUpdated(ctx context.Context, post *Post)
	HandlePostDeleted(ctx context.Context, postID string)
}

// EventPublisher delivers fire-and-forget lifecycle events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}
