package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tunespace/tunespace/internal/errors"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/pkg/logger"
	"github.com/tunespace/tunespace/pkg/queue"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	userRepo   *repository.UserRepository
	followRepo *repository.FollowRepository
	producer   queue.Producer
	logger     *logger.Logger
}

func NewUserService(userRepo *repository.UserRepository, followRepo *repository.FollowRepository, producer queue.Producer, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo:   userRepo,
		followRepo: followRepo,
		producer:   producer,
		logger:     logger,
	}
}

type RegisterRequest struct {
	Username      string `json:"username" binding:"required,min=3,max=30"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required,min=6,max=50"`
	DisplayName   string `json:"display_name" binding:"max=50"`
	FavoriteGenre string `json:"favorite_genre" binding:"max=50"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	DisplayName   *string               `json:"display_name"`
	Avatar        *string               `json:"avatar"`
	Bio           *string               `json:"bio"`
	FavoriteGenre *string               `json:"favorite_genre"`
	SongOfDay     *string               `json:"song_of_day"`
	SongOfDayBy   *string               `json:"song_of_day_by"`
	SongPicture   *string               `json:"song_picture"`
	FavoriteSongs []models.FavoriteSong `json:"favorite_songs"`
}

func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	// 预检查用户名和邮箱；唯一索引兜底并发注册
	existingUser, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existingUser != nil {
		return nil, apperrors.ErrDuplicateUsername
	}

	existingUser, err = s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existingUser != nil {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:      req.Username,
		Email:         req.Email,
		Password:      string(hashedPassword),
		DisplayName:   req.DisplayName,
		FavoriteGenre: req.FavoriteGenre,
		IsActive:      true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发注册撞上唯一索引。再查一次用户名区分冲突来源
			if dup, checkErr := s.userRepo.GetByUsername(ctx, req.Username); checkErr == nil && dup != nil {
				return nil, apperrors.ErrDuplicateUsername
			}
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	event := queue.Event{
		Type:      queue.EventUserRegistered,
		Timestamp: user.CreatedAt,
		Data: map[string]interface{}{
			"user_id":  user.ID,
			"username": user.Username,
		},
	}
	if err := s.producer.Publish(ctx, user.ID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish user registered event")
	}

	s.logger.WithField("user_id", user.ID).Info("User registered successfully")
	return user, nil
}

// Login verifies credentials. Unknown usernames and wrong passwords are
// reported identically so the API does not leak which usernames exist.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in successfully")
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}

	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.FavoriteGenre != nil {
		user.FavoriteGenre = *req.FavoriteGenre
	}
	if req.SongOfDay != nil {
		user.SongOfDay = *req.SongOfDay
	}
	if req.SongOfDayBy != nil {
		user.SongOfDayBy = *req.SongOfDayBy
	}
	if req.SongPicture != nil {
		user.SongPicture = *req.SongPicture
	}

	if req.FavoriteSongs != nil {
		songs := normalizeFavoriteSongs(req.FavoriteSongs)
		data, err := json.Marshal(songs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal favorite songs: %w", err)
		}
		user.FavoriteSongs = data
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	event := queue.Event{
		Type:      queue.EventUserUpdated,
		Timestamp: user.UpdatedAt,
		Data: map[string]interface{}{
			"user_id": user.ID,
		},
	}
	if err := s.producer.Publish(ctx, user.ID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish user updated event")
	}

	s.logger.WithField("user_id", user.ID).Info("Profile updated successfully")
	return user, nil
}

// normalizeFavoriteSongs drops entries missing a title or artist and caps
// the list, mirroring the five slots of the profile form.
func normalizeFavoriteSongs(songs []models.FavoriteSong) []models.FavoriteSong {
	out := make([]models.FavoriteSong, 0, models.MaxFavoriteSongs)
	for _, song := range songs {
		if strings.TrimSpace(song.Title) == "" || strings.TrimSpace(song.Artist) == "" {
			continue
		}
		out = append(out, song)
		if len(out) == models.MaxFavoriteSongs {
			break
		}
	}
	return out
}

// Follow creates the directed edge. Self-follows are rejected and a
// duplicate follow is a no-op, so calling it twice leaves exactly one edge.
func (s *UserService) Follow(ctx context.Context, followerID, followingID string) error {
	followerUUID, err := uuid.Parse(followerID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "invalid follower ID", err)
	}

	followingUUID, err := uuid.Parse(followingID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	if followerUUID == followingUUID {
		return apperrors.ErrSelfFollow
	}

	following, err := s.userRepo.GetByID(ctx, followingUUID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if following == nil {
		return apperrors.ErrNotFound
	}

	follow := &models.Follow{
		FollowerID:  followerUUID,
		FollowingID: followingUUID,
	}

	created, err := s.followRepo.Create(ctx, follow)
	if err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	if !created {
		// 已经关注，幂等返回
		return nil
	}

	if err := s.userRepo.UpdateFollowingCount(ctx, followerUUID, 1); err != nil {
		s.logger.WithError(err).Error("Failed to update following count")
	}
	if err := s.userRepo.UpdateFollowersCount(ctx, followingUUID, 1); err != nil {
		s.logger.WithError(err).Error("Failed to update followers count")
	}

	event := queue.Event{
		Type:      queue.EventFollowCreated,
		Timestamp: time.Now(),
		Data: queue.FollowEventData{
			FollowerID:  followerID,
			FollowingID: followingID,
		},
	}
	if err := s.producer.Publish(ctx, followerID, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish follow created event")
	}

	s.logger.WithFields(map[string]interface{}{
		"follower_id":  followerID,
		"following_id": followingID,
	}).Info("User followed successfully")

	return nil
}

// Unfollow removes the edge; removing a non-existent edge is a no-op.
func (s *UserService) Unfollow(ctx context.Context, followerID, followingID string) error {
	followerUUID, err := uuid.Parse(followerID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "invalid follower ID", err)
	}

	followingUUID, err := uuid.Parse(followingID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	if followerUUID == followingUUID {
		return apperrors.ErrSelfFollow
	}

	removed, err := s.followRepo.Delete(ctx, followerUUID, followingUUID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	if !removed {
		return nil
	}

	if err := s.userRepo.UpdateFollowingCount(ctx, followerUUID, -1); err != nil {
		s.logger.WithError(err).Error("Failed to update following count")
	}
	if err := s.userRepo.UpdateFollowersCount(ctx, followingUUID, -1); err != nil {
		s.logger.WithError(err).Error("Failed to update followers count")
	}

	event := queue.Event{
		Type:      queue.EventFollowDeleted,
		Timestamp: time.Now(),
		Data: queue.FollowEventData{
			FollowerID:  followerID,
			FollowingID: followingID,
		},
	}
	if err := s.producer.Publish(ctx, followerID, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish follow deleted event")
	}

	s.logger.WithFields(map[string]interface{}{
		"follower_id":  followerID,
		"following_id": followingID,
	}).Info("User unfollowed successfully")

	return nil
}

func (s *UserService) GetFollowers(ctx context.Context, userID string, offset, limit int) ([]*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	followers, err := s.followRepo.GetFollowers(ctx, id, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}

	return followers, nil
}

func (s *UserService) GetFollowing(ctx context.Context, userID string, offset, limit int) ([]*models.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	following, err := s.followRepo.GetFollowing(ctx, id, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}

	return following, nil
}

func (s *UserService) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	followerUUID, err := uuid.Parse(followerID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeBadRequest, "invalid follower ID", err)
	}

	followingUUID, err := uuid.Parse(followingID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	return s.followRepo.IsFollowing(ctx, followerUUID, followingUUID)
}

func (s *UserService) Search(ctx context.Context, query string, offset, limit int) ([]*models.User, error) {
	users, err := s.userRepo.Search(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
