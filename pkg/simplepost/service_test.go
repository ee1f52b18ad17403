package simplepost_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplepost/simplepost/pkg/simplepost"
	"github.com/simplepost/simplepost/pkg/simplepost/store"
	"github.com/simplepost/simplepost/pkg/simplepost/store/memory"
)

// vanishingStore serves lookups normally but reports every mutation target
// as already gone, simulating a concurrent delete landing between the
// ownership check and the write.
type vanishingStore struct {
	store.Store[*simplepost.Post]
}

func (s *vanishingStore) FindOneAndUpdate(ctx context.Context, f store.Filter, p store.Patch) (*simplepost.Post, error) {
	return nil, store.ErrNoDocuments
}

func (s *vanishingStore) DeleteOne(ctx context.Context, f store.Filter) error {
	return store.ErrNoDocuments
}

func setupVanishingService(t *testing.T) (simplepost.Service, *recordingPublisher) {
	t.Helper()

	publisher := &recordingPublisher{}
	backing := memory.New[*simplepost.Post](simplepost.PostCodec{})
	repo := simplepost.NewPostRepository(&vanishingStore{Store: backing})

	svc, err := simplepost.New(
		simplepost.WithRepository(repo),
		simplepost.WithPublisher(publisher),
	)
	require.NoError(t, err)
	return svc, publisher
}

type publishedEvent struct {
	name    string
	payload any
}

// recordingPublisher captures published events and can be told to fail.
type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{name: event, payload: payload})
	return nil
}

func setupService(t *testing.T) (simplepost.Service, *recordingPublisher) {
	t.Helper()

	publisher := &recordingPublisher{}
	repo := simplepost.NewPostRepository(memory.New[*simplepost.Post](simplepost.PostCodec{}))

	svc, err := simplepost.New(
		simplepost.WithRepository(repo),
		simplepost.WithPublisher(publisher),
	)
	require.NoError(t, err)
	return svc, publisher
}

func createReq(userID string) simplepost.CreatePostRequest {
	return simplepost.CreatePostRequest{
		Title:   "hello world",
		Content: "some content",
		UserID:  userID,
	}
}

func TestServiceRequiresRepository(t *testing.T) {
	_, err := simplepost.New()
	assert.Error(t, err)
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	owner := uuid.NewString()

	post, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, owner, post.OwnerID)
	assert.Equal(t, "hello world", post.Title)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, simplepost.EventPostCreated, publisher.events[0].name)
	assert.Equal(t, post, publisher.events[0].payload)
}

func TestCreatePostIssuesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	owner := uuid.NewString()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		post, err := svc.CreatePost(ctx, createReq(owner))
		require.NoError(t, err)
		assert.False(t, seen[post.ID])
		seen[post.ID] = true
	}
}

func TestCreatePostValidation(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	owner := uuid.NewString()

	tests := []struct {
		name string
		req  simplepost.CreatePostRequest
	}{
		{"missing userId", simplepost.CreatePostRequest{Title: "hello world", Content: "c"}},
		{"malformed userId", simplepost.CreatePostRequest{Title: "hello world", Content: "c", UserID: "not-an-id"}},
		{"missing title", simplepost.CreatePostRequest{Content: "c", UserID: owner}},
		{"short title", simplepost.CreatePostRequest{Title: "hi", Content: "c", UserID: owner}},
		{"missing content", simplepost.CreatePostRequest{Title: "hello world", UserID: owner}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(ctx, tt.req)
			var invalid *simplepost.InvalidInputError
			require.ErrorAs(t, err, &invalid)
		})
	}
	assert.Empty(t, publisher.events)
}

func TestCreatePostFailsWhenBrokerRejectsEvent(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	publisher.err = fmt.Errorf("broker unavailable")

	_, err := svc.CreatePost(ctx, createReq(uuid.NewString()))
	var unexpected *simplepost.UnexpectedError
	require.ErrorAs(t, err, &unexpected)
}

func TestFindAllScopesToOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	owner, other := uuid.NewString(), uuid.NewString()

	_, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, createReq(other))
	require.NoError(t, err)

	posts, err := svc.FindAll(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	empty, err := svc.FindAll(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFindPostOwnershipBeatsExistence(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	owner, stranger := uuid.NewString(), uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	found, err := svc.FindPost(ctx, created.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// An existing post owned by someone else is unauthorized, never missing.
	_, err = svc.FindPost(ctx, created.ID, stranger)
	var unauthorized *simplepost.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
}

func TestFindPostAcceptsEquivalentOwnerEncodings(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	_, err = svc.FindPost(ctx, created.ID, strings.ToUpper(owner))
	assert.NoError(t, err)
}

func TestFindPostMissing(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.FindPost(ctx, uuid.NewString(), uuid.NewString())
	var notFound *simplepost.ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestMalformedIdentifiersRejectedBeforeStoreAccess(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	owner := uuid.NewString()
	patch := simplepost.UpdatePostRequest{}

	for _, id := range []string{"", "not-an-id", "123"} {
		_, err := svc.FindPost(ctx, id, owner)
		var invalid *simplepost.InvalidInputError
		require.ErrorAs(t, err, &invalid, "find %q", id)

		_, err = svc.UpdatePost(ctx, id, patch, owner)
		require.ErrorAs(t, err, &invalid, "update %q", id)

		err = svc.DeletePost(ctx, id, owner)
		require.ErrorAs(t, err, &invalid, "delete %q", id)
	}

	_, err := svc.FindPost(ctx, uuid.NewString(), "not-an-id")
	var invalid *simplepost.InvalidInputError
	require.ErrorAs(t, err, &invalid)

	assert.Empty(t, publisher.events)
}

func TestUpdatePost(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	title := "hi there everyone"
	updated, err := svc.UpdatePost(ctx, created.ID, simplepost.UpdatePostRequest{Title: &title}, owner)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "some content", updated.Content)
	assert.Equal(t, owner, updated.OwnerID)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, simplepost.EventPostUpdated, publisher.events[1].name)
}

func TestUpdatePostNeverTouchesOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	content := "fresh content"
	updated, err := svc.UpdatePost(ctx, created.ID, simplepost.UpdatePostRequest{Content: &content}, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, updated.OwnerID)
}

func TestUpdatePostByStranger(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	title := "hijacked title"
	_, err = svc.UpdatePost(ctx, created.ID, simplepost.UpdatePostRequest{Title: &title}, uuid.NewString())
	var unauthorized *simplepost.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)
	assert.Len(t, publisher.events, 1) // only post_created
}

func TestUpdatePostValidatesPatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	short := "hi"
	_, err = svc.UpdatePost(ctx, created.ID, simplepost.UpdatePostRequest{Title: &short}, owner)
	var invalid *simplepost.InvalidInputError
	require.ErrorAs(t, err, &invalid)

	empty := ""
	_, err = svc.UpdatePost(ctx, created.ID, simplepost.UpdatePostRequest{Content: &empty}, owner)
	require.ErrorAs(t, err, &invalid)
}

func TestUpdatePostRemovedAfterOwnershipCheck(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupVanishingService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	title := "hi there everyone"
	_, err = svc.UpdatePost(ctx, created.ID, simplepost.UpdatePostRequest{Title: &title}, owner)
	var notFound *simplepost.ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, simplepost.EventPostCreated, publisher.events[0].name)
}

func TestDeletePostRemovedAfterOwnershipCheck(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupVanishingService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	err = svc.DeletePost(ctx, created.ID, owner)
	var notFound *simplepost.ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)

	for _, e := range publisher.events {
		assert.NotEqual(t, simplepost.EventPostDeleted, e.name)
	}
}

func TestDeletePost(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, created.ID, owner))

	_, err = svc.FindPost(ctx, created.ID, owner)
	var notFound *simplepost.ResourceNotFoundError
	require.ErrorAs(t, err, &notFound)

	// Second delete reports the post as missing.
	err = svc.DeletePost(ctx, created.ID, owner)
	require.ErrorAs(t, err, &notFound)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, simplepost.EventPostDeleted, publisher.events[1].name)
	assert.Equal(t, simplepost.PostDeletedEvent{ID: created.ID}, publisher.events[1].payload)
}

func TestNoDeletedEventWhenDeleteFails(t *testing.T) {
	ctx := context.Background()
	svc, publisher := setupService(t)
	owner := uuid.NewString()

	created, err := svc.CreatePost(ctx, createReq(owner))
	require.NoError(t, err)

	// Unauthorized delete must not publish anything.
	err = svc.DeletePost(ctx, created.ID, uuid.NewString())
	var unauthorized *simplepost.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)

	for _, e := range publisher.events {
		assert.NotEqual(t, simplepost.EventPostDeleted, e.name)
	}
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	u1, u2 := uuid.NewString(), uuid.NewString()

	created, err := svc.CreatePost(ctx, simplepost.CreatePostRequest{
		Title:   "hello!",
		Content: "c",
		UserID:  u1,
	})
	require.NoError(t, err)

	found, err := svc.FindPost(ctx, created.ID, u1)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.FindPost(ctx, created.ID, u2)
	var unauthorized *simplepost.UnauthorizedError
	require.ErrorAs(t, err, &unauthorized)

	title := "hi there"
	updated, err := svc.UpdatePost(ctx, created.ID, simplepost.UpdatePostRequest{Title: &title}, u1)
	require.NoError(t, err)
	assert.Equal(t, "hi there", updated.Title)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, u1, updated.OwnerID)

	require.NoError(t, svc.DeletePost(ctx, created.ID, u1))

	var notFound *simplepost.ResourceNotFoundError
	err = svc.DeletePost(ctx, created.ID, u1)
	require.ErrorAs(t, err, &notFound)
}
