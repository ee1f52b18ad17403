package simplepost_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplepost/simplepost/pkg/simplepost"
	"github.com/simplepost/simplepost/pkg/simplepost/store"
	"github.com/simplepost/simplepost/pkg/simplepost/store/memory"
)

func setupRepo() *simplepost.PostRepository {
	return simplepost.NewPostRepository(memory.New[*simplepost.Post](simplepost.PostCodec{}))
}

func TestUpdateOneReportsMatch(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo()

	created, err := repo.Create(ctx, &simplepost.Post{
		Title:   "hello world",
		Content: "some content",
		OwnerID: "owner-1",
	})
	require.NoError(t, err)

	modified, err := repo.UpdateOne(ctx, simplepost.ByID(created.ID), store.Patch{"title": "another title"})
	require.NoError(t, err)
	assert.True(t, modified)

	post, ok, err := repo.FindOne(ctx, simplepost.ByID(created.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "another title", post.Title)
}

func TestUpdateOneWithoutMatchIsNotAnError(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo()

	modified, err := repo.UpdateOne(ctx, simplepost.ByID("missing"), store.Patch{"title": "another title"})
	require.NoError(t, err)
	assert.False(t, modified)
}

func TestRepositoryTransactionHandle(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo()

	sess, err := repo.StartTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Commit(ctx))
}

func TestRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := setupRepo()

	inserted, err := repo.Upsert(ctx, simplepost.ByID("missing"), &simplepost.Post{
		Title:   "hello world",
		Content: "some content",
		OwnerID: "owner-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, inserted.ID)

	inserted.Title = "replacement title"
	updated, err := repo.Upsert(ctx, simplepost.ByID(inserted.ID), inserted)
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, updated.ID)
	assert.Equal(t, "replacement title", updated.Title)
}
