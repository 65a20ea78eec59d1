package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/tunespace/tunespace/internal/errors"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/pkg/queue"
)

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerUser(t, "alice")

	_, err := env.users.Register(ctx, &RegisterRequest{
		Username: "alice",
		Email:    "other@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateUsername))

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	env.registerUser(t, "alice")

	_, err := env.users.Register(context.Background(), &RegisterRequest{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateEmail))
}

func TestRegisterPublishesEvent(t *testing.T) {
	env := newTestEnv(t)

	user := env.registerUser(t, "alice")

	events := env.producer.eventsOfType(queue.EventUserRegistered)
	require.Len(t, events, 1)
	assert.NotEqual(t, "", user.ID.String())
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerUser(t, "alice")

	_, err := env.users.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong-pass"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	// 未知用户名得到同样的错误，不泄露用户是否存在
	_, err = env.users.Login(ctx, &LoginRequest{Username: "nobody", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)

	registered := env.registerUser(t, "alice")

	user, err := env.users.Login(context.Background(), &LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
}

func TestFollowSelfRejected(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerUser(t, "alice")

	err := env.users.Follow(context.Background(), alice.ID.String(), alice.ID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSelfFollow))

	var count int64
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestFollowIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")

	require.NoError(t, env.users.Follow(ctx, alice.ID.String(), bob.ID.String()))
	require.NoError(t, env.users.Follow(ctx, alice.ID.String(), bob.ID.String()))

	var count int64
	require.NoError(t, env.db.Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", alice.ID, bob.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 计数器只在真正插入时调整一次
	updatedBob, err := env.users.GetByID(ctx, bob.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), updatedBob.Followers)

	assert.Len(t, env.producer.eventsOfType(queue.EventFollowCreated), 1)
}

func TestFollowUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	alice := env.registerUser(t, "alice")

	err := env.users.Follow(context.Background(), alice.ID.String(), "2d2f9f3e-8f43-4f43-bb1c-000000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUnfollowMissingEdgeIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")
	bob := env.registerUser(t, "bob")

	require.NoError(t, env.users.Unfollow(ctx, alice.ID.String(), bob.ID.String()))

	require.NoError(t, env.users.Follow(ctx, alice.ID.String(), bob.ID.String()))
	require.NoError(t, env.users.Unfollow(ctx, alice.ID.String(), bob.ID.String()))

	following, err := env.users.IsFollowing(ctx, alice.ID.String(), bob.ID.String())
	require.NoError(t, err)
	assert.False(t, following)

	updatedBob, err := env.users.GetByID(ctx, bob.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(0), updatedBob.Followers)
}

func TestUpdateProfileFavoriteSongs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.registerUser(t, "alice")

	songs := []models.FavoriteSong{
		{Title: "So What", Artist: "Miles Davis"},
		{Title: "", Artist: "Nobody"}, // 缺标题，丢弃
		{Title: "Giant Steps", Artist: "John Coltrane"},
		{Title: "Naima", Artist: "John Coltrane"},
		{Title: "Blue in Green", Artist: "Miles Davis"},
		{Title: "Freddie Freeloader", Artist: "Miles Davis"},
		{Title: "All Blues", Artist: "Miles Davis"},
	}

	bio := "jazz all day"
	updated, err := env.users.UpdateProfile(ctx, alice.ID.String(), &UpdateProfileRequest{
		Bio:           &bio,
		FavoriteSongs: songs,
	})
	require.NoError(t, err)
	assert.Equal(t, "jazz all day", updated.Bio)

	var stored []models.FavoriteSong
	require.NoError(t, json.Unmarshal(updated.FavoriteSongs, &stored))
	require.Len(t, stored, models.MaxFavoriteSongs)
	assert.Equal(t, "So What", stored[0].Title)
	assert.Equal(t, "Giant Steps", stored[1].Title)
}

func TestGetByUsernameNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.GetByUsername(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
