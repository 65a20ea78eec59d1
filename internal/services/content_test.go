package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tunespace/tunespace/internal/errors"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/pkg/queue"
)

func TestCreatePostEmptyContent(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerUser(t, "alice")

	_, err := env.content.CreatePost(context.Background(), alice.ID.String(), &CreatePostRequest{Content: "   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyContent))
}

func TestCreatePostImageOnly(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerUser(t, "alice")

	post, err := env.content.CreatePost(context.Background(), alice.ID.String(), &CreatePostRequest{
		ImageURL: "/media/ts_abc.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "", post.Content)
	assert.Equal(t, "/media/ts_abc.png", post.ImageURL)
	assert.Len(t, env.producer.eventsOfType(queue.EventPostCreated), 1)
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")
	post := env.createPost(t, alice.ID.String(), "first post")

	liked, err := env.content.ToggleLike(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)
	assert.True(t, liked)

	count, err := env.content.LikeCount(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	liked, err = env.content.ToggleLike(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)
	assert.False(t, liked)

	count, err = env.content.LikeCount(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// 点赞行清掉了，计数器也归零
	var likeRows int64
	require.NoError(t, env.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likeRows).Error)
	assert.Equal(t, int64(0), likeRows)

	stored, err := env.content.GetPost(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.LikeCount)
}

func TestToggleLikeUnknownPost(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerUser(t, "alice")

	_, err := env.content.ToggleLike(context.Background(), alice.ID.String(), "2d2f9f3e-8f43-4f43-bb1c-000000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestAddCommentEmptyRejected(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerUser(t, "alice")
	post := env.createPost(t, alice.ID.String(), "anyone awake?")

	_, err := env.content.AddComment(context.Background(), alice.ID.String(), post.ID.String(), &CreateCommentRequest{Content: "  \n "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmptyContent))
}

func TestAddCommentUpdatesCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")
	post := env.createPost(t, alice.ID.String(), "new record out")

	comment, err := env.content.AddComment(ctx, bob.ID.String(), post.ID.String(), &CreateCommentRequest{Content: "love it"})
	require.NoError(t, err)
	assert.Equal(t, "love it", comment.Content)

	stored, err := env.content.GetPost(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.CommentCount)

	comments, err := env.content.ListComments(ctx, post.ID.String(), 0, 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, bob.ID, comments[0].UserID)
}

func TestDeletePostOnlyByAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")
	post := env.createPost(t, alice.ID.String(), "delete me later")

	err := env.content.DeletePost(ctx, bob.ID.String(), post.ID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	require.NoError(t, env.content.DeletePost(ctx, alice.ID.String(), post.ID.String()))

	_, err = env.content.GetPost(ctx, post.ID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
