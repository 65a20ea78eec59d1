package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tunespace/tunespace/internal/config"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/pkg/logger"
)

func newFeedService(t *testing.T, env *testEnv) *FeedService {
	t.Helper()

	cfg := &config.FeedConfig{
		DefaultLimit: 10,
		MaxLimit:     50,
		CacheTTL:     time.Minute,
	}
	return NewFeedService(
		repository.NewPostRepository(env.db),
		repository.NewFollowRepository(env.db),
		nil, // 不接缓存，直接查库
		cfg,
		logger.NewLogger("error"),
	)
}

func TestFeedScopedToFollowing(t *testing.T) {
	env := newTestEnv(t)
	feed := newFeedService(t, env)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")
	carol := env.registerUser(t, "carol")

	require.NoError(t, env.users.Follow(ctx, alice.ID.String(), bob.ID.String()))

	env.createPost(t, alice.ID.String(), "post by alice")
	env.createPost(t, bob.ID.String(), "post by bob")
	env.createPost(t, carol.ID.String(), "post by carol")

	response, err := feed.FeedFor(ctx, alice.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, response.Posts, 2)

	// alice 看到自己和 bob，看不到 carol
	authors := map[string]bool{}
	for _, post := range response.Posts {
		authors[post.UserID.String()] = true
	}
	assert.True(t, authors[alice.ID.String()])
	assert.True(t, authors[bob.ID.String()])
	assert.False(t, authors[carol.ID.String()])
}

func TestFeedAnonymousSeesEveryone(t *testing.T) {
	env := newTestEnv(t)
	feed := newFeedService(t, env)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")

	env.createPost(t, alice.ID.String(), "from alice")
	env.createPost(t, bob.ID.String(), "from bob")

	response, err := feed.FeedFor(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, response.Posts, 2)
}

func TestFeedOrderedNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	feed := newFeedService(t, env)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	postRepo := repository.NewPostRepository(env.db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		post := &models.Post{
			UserID:    alice.ID,
			Content:   "numbered post",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, postRepo.Create(ctx, post))
	}

	response, err := feed.FeedFor(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, response.Posts, 3)

	for i := 1; i < len(response.Posts); i++ {
		prev := response.Posts[i-1].CreatedAt
		curr := response.Posts[i].CreatedAt
		assert.False(t, curr.After(prev), "posts must be newest first")
	}
}

func TestFeedLimitClamped(t *testing.T) {
	env := newTestEnv(t)
	feed := newFeedService(t, env)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	env.createPost(t, alice.ID.String(), "only one")

	response, err := feed.FeedFor(ctx, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 10, response.Limit)

	response, err = feed.FeedFor(ctx, "", 500)
	require.NoError(t, err)
	assert.Equal(t, 50, response.Limit)
}

func TestFeedExcludesDeletedPosts(t *testing.T) {
	env := newTestEnv(t)
	feed := newFeedService(t, env)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	keep := env.createPost(t, alice.ID.String(), "keeper")
	gone := env.createPost(t, alice.ID.String(), "goner")

	require.NoError(t, env.content.DeletePost(ctx, alice.ID.String(), gone.ID.String()))

	response, err := feed.FeedFor(ctx, alice.ID.String(), 10)
	require.NoError(t, err)
	require.Len(t, response.Posts, 1)
	assert.Equal(t, keep.ID, response.Posts[0].ID)
}
