package simplepost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/simplepost/simplepost/pkg/simplepost/store"
)

// service implements the Service interface.
type service struct {
	repository *PostRepository
	publisher  EventPublisher
	logger     *slog.Logger
}

// Option configures the service.
type Option func(*service)

// WithRepository sets the post repository.
func WithRepository(repo *PostRepository) Option {
	return func(s *service) { s.repository = repo }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(pub EventPublisher) Option {
	return func(s *service) { s.publisher = pub }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// New creates a post service. A repository is required; the publisher
// defaults to a no-op and the logger to slog.Default().
func New(options ...Option) (Service, error) {
	s := &service{
		publisher: NewNoopPublisher(),
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	return s, nil
}

func (s *service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if req.UserID == "" {
		return nil, &InvalidInputError{Reason: "userId is required"}
	}
	ownerID, err := CanonicalID(req.UserID)
	if err != nil {
		return nil, &InvalidInputError{Reason: "invalid user ID format"}
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if req.Content == "" {
		return nil, &InvalidInputError{Reason: "content is required"}
	}

	post, err := s.repository.Create(ctx, &Post{
		Title:   req.Title,
		Content: req.Content,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, s.fail(ctx, "create post", err)
	}

	// Creation is not complete until the broker accepts the event.
	if err := s.publisher.Publish(ctx, EventPostCreated, post); err != nil {
		return nil, s.fail(ctx, "publish post_created", err)
	}
	return post, nil
}

func (s *service) FindAll(ctx context.Context, ownerID string) ([]*Post, error) {
	canonical, err := CanonicalID(ownerID)
	if err != nil {
		return nil, &InvalidInputError{Reason: "invalid user ID format"}
	}

	posts, err := s.repository.Find(ctx, ByOwner(canonical))
	if err != nil {
		return nil, s.fail(ctx, "find posts", err)
	}
	return posts, nil
}

func (s *service) FindPost(ctx context.Context, id, userID string) (*Post, error) {
	post, err := s.lookupOwned(ctx, id, userID, "access")
	if err != nil {
		return nil, s.fail(ctx, "find post", err)
	}
	return post, nil
}

func (s *service) UpdatePost(ctx context.Context, id string, req UpdatePostRequest, userID string) (*Post, error) {
	if _, err := s.lookupOwned(ctx, id, userID, "update"); err != nil {
		return nil, s.fail(ctx, "update post", err)
	}

	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.repository.FindOneAndUpdate(ctx, ByID(canonicalOrSame(id)), patch)
	if errors.Is(err, store.ErrNoDocuments) {
		// Deleted between lookup and patch.
		return nil, &ResourceNotFoundError{Resource: "post"}
	}
	if err != nil {
		return nil, s.fail(ctx, "update post", err)
	}

	if err := s.publisher.Publish(ctx, EventPostUpdated, updated); err != nil {
		return nil, s.fail(ctx, "publish post_updated", err)
	}
	return updated, nil
}

func (s *service) DeletePost(ctx context.Context, id, userID string) error {
	if _, err := s.lookupOwned(ctx, id, userID, "delete"); err != nil {
		return s.fail(ctx, "delete post", err)
	}

	if err := s.repository.DeleteOne(ctx, ByID(canonicalOrSame(id))); err != nil {
		if errors.Is(err, store.ErrNoDocuments) {
			return &ResourceNotFoundError{Resource: "post"}
		}
		return s.fail(ctx, "delete post", err)
	}

	// Published only after the delete is confirmed, so consumers never see
	// a deletion that did not happen.
	if err := s.publisher.Publish(ctx, EventPostDeleted, PostDeletedEvent{ID: canonicalOrSame(id)}); err != nil {
		return s.fail(ctx, "publish post_deleted", err)
	}
	return nil
}

func (s *service) HandlePostCreated(ctx context.Context, post *Post) {
	s.logger.Info("handling post created event", "post_id", post.ID)
}

func (s *service) HandlePostUpdated(ctx context.Context, post *Post) {
	s.logger.Info("handling post updated event", "post_id", post.ID)
}

func (s *service) HandlePostDeleted(ctx context.Context, postID string) {
	s.logger.Info("handling post deleted event", "post_id", postID)
}

// lookupOwned validates both identifiers, loads the post by id alone and
// reconciles the caller against the stored owner. Order matters: a post that
// exists but belongs to someone else reports unauthorized, not missing.
func (s *service) lookupOwned(ctx context.Context, id, userID, action string) (*Post, error) {
	canonicalID, err := CanonicalID(id)
	if err != nil {
		return nil, &InvalidInputError{Reason: "invalid post ID format"}
	}
	if _, err := CanonicalID(userID); err != nil {
		return nil, &InvalidInputError{Reason: "invalid user ID format"}
	}

	post, ok, err := s.repository.FindOne(ctx, ByID(canonicalID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ResourceNotFoundError{Resource: "post"}
	}

	if !IsOwner(post.OwnerID, userID) {
		s.logger.Warn("unauthorized attempt", "action", action, "post_id", canonicalID, "user_id", userID)
		return nil, &UnauthorizedError{
			Reason: fmt.Sprintf("you are not authorized to %s this post", action),
		}
	}
	return post, nil
}

// fail passes business errors through unchanged and wraps everything else,
// logging the full cause before it is hidden behind the generic category.
func (s *service) fail(ctx context.Context, op string, err error) error {
	if IsBusinessError(err) {
		return err
	}
	s.logger.ErrorContext(ctx, "operation failed", "op", op, "err", err)
	return &UnexpectedError{Op: op, Err: err}
}

func buildPatch(req UpdatePostRequest) (store.Patch, error) {
	patch := store.Patch{}
	if req.Title != nil {
		if err := validateTitle(*req.Title); err != nil {
			return nil, err
		}
		patch["title"] = *req.Title
	}
	if req.Content != nil {
		if *req.Content == "" {
			return nil, &InvalidInputError{Reason: "content must not be empty"}
		}
		patch["content"] = *req.Content
	}
	return patch, nil
}

func validateTitle(title string) error {
	if title == "" {
		return &InvalidInputError{Reason: "title is required"}
	}
	if utf8.RuneCountInString(title) < TitleMinLength {
		return &InvalidInputError{
			Reason: fmt.Sprintf("title must be at least %d characters", TitleMinLength),
		}
	}
	return nil
}

// canonicalOrSame normalizes an already validated identifier.
func canonicalOrSame(id string) string {
	canonical, err := CanonicalID(id)
	if err != nil {
		return id
	}
	return canonical
}
