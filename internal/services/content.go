package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/tunespace/tunespace/internal/errors"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/pkg/logger"
	"github.com/tunespace/tunespace/pkg/queue"
)

type ContentService struct {
	postRepo    *repository.PostRepository
	likeRepo    *repository.LikeRepository
	commentRepo *repository.CommentRepository
	userRepo    *repository.UserRepository
	producer    queue.Producer
	logger      *logger.Logger
}

func NewContentService(postRepo *repository.PostRepository, likeRepo *repository.LikeRepository, commentRepo *repository.CommentRepository, userRepo *repository.UserRepository, producer queue.Producer, logger *logger.Logger) *ContentService {
	return &ContentService{
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		producer:    producer,
		logger:      logger,
	}
}

type CreatePostRequest struct {
	Content  string `json:"content" binding:"max=1000"`
	ImageURL string `json:"image_url"`
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"max=500"`
}

// CreatePost rejects a post only when both content and image are absent.
func (s *ContentService) CreatePost(ctx context.Context, userID string, req *CreatePostRequest) (*models.Post, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	content := strings.TrimSpace(req.Content)
	imageURL := strings.TrimSpace(req.ImageURL)
	if content == "" && imageURL == "" {
		return nil, apperrors.ErrEmptyContent
	}

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}

	post := &models.Post{
		UserID:    userUUID,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	post.User = *user

	event := queue.Event{
		Type:      queue.EventPostCreated,
		Timestamp: post.CreatedAt,
		Data: queue.PostEventData{
			PostID:    post.ID.String(),
			UserID:    userID,
			CreatedAt: post.CreatedAt.Format(time.RFC3339),
		},
	}
	if err := s.producer.Publish(ctx, userID, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish post created event")
	}

	s.logger.WithFields(map[string]interface{}{
		"post_id": post.ID,
		"user_id": userID,
	}).Info("Post created successfully")

	return post, nil
}

// ToggleLike flips the like state and returns true when the post ends up
// liked. Two consecutive calls always return to the original state.
func (s *ContentService) ToggleLike(ctx context.Context, userID, postID string) (bool, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return false, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return false, apperrors.ErrNotFound
	}

	liked, err := s.likeRepo.Toggle(ctx, userUUID, postUUID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}

	event := queue.Event{
		Type:      queue.EventLikeToggled,
		Timestamp: time.Now(),
		Data: queue.LikeEventData{
			UserID: userID,
			PostID: postID,
			Liked:  liked,
		},
	}
	if err := s.producer.Publish(ctx, userID, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish like toggled event")
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"post_id": postID,
		"liked":   liked,
	}).Info("Like toggled")

	return liked, nil
}

func (s *ContentService) AddComment(ctx context.Context, userID, postID string, req *CreateCommentRequest) (*models.Comment, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.ErrEmptyContent
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, apperrors.ErrNotFound
	}

	comment := &models.Comment{
		UserID:    userUUID,
		PostID:    postUUID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if err := s.postRepo.UpdateCommentCount(ctx, postUUID, 1); err != nil {
		s.logger.WithError(err).Error("Failed to update post comment count")
	}

	event := queue.Event{
		Type:      queue.EventCommentCreated,
		Timestamp: comment.CreatedAt,
		Data: queue.CommentEventData{
			CommentID: comment.ID.String(),
			UserID:    userID,
			PostID:    postID,
		},
	}
	if err := s.producer.Publish(ctx, userID, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish comment created event")
	}

	s.logger.WithFields(map[string]interface{}{
		"comment_id": comment.ID,
		"post_id":    postID,
	}).Info("Comment created successfully")

	return comment, nil
}

func (s *ContentService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, apperrors.ErrNotFound
	}

	return post, nil
}

func (s *ContentService) PostsByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*models.Post, error) {
	userUUID, err := uuid.Parse(authorID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	posts, err := s.postRepo.GetByUserID(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get user posts: %w", err)
	}

	return posts, nil
}

func (s *ContentService) DeletePost(ctx context.Context, userID, postID string) error {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return apperrors.ErrNotFound
	}

	if post.UserID.String() != userID {
		return apperrors.ErrForbidden
	}

	if err := s.postRepo.Delete(ctx, postUUID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	event := queue.Event{
		Type:      queue.EventPostDeleted,
		Timestamp: time.Now(),
		Data: queue.PostEventData{
			PostID: postID,
			UserID: userID,
		},
	}
	if err := s.producer.Publish(ctx, userID, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish post deleted event")
	}

	s.logger.WithFields(map[string]interface{}{
		"post_id": postID,
		"user_id": userID,
	}).Info("Post deleted successfully")

	return nil
}

func (s *ContentService) ListComments(ctx context.Context, postID string, offset, limit int) ([]*models.Comment, error) {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}

	comments, err := s.commentRepo.GetByPostID(ctx, postUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get post comments: %w", err)
	}

	return comments, nil
}

func (s *ContentService) CommentCount(ctx context.Context, postID string) (int64, error) {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}
	return s.commentRepo.CountByPostID(ctx, postUUID)
}

func (s *ContentService) ListLikes(ctx context.Context, postID string, offset, limit int) ([]*models.Like, error) {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}

	likes, err := s.likeRepo.GetByPostID(ctx, postUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get post likes: %w", err)
	}

	return likes, nil
}

func (s *ContentService) LikeCount(ctx context.Context, postID string) (int64, error) {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}
	return s.likeRepo.CountByPostID(ctx, postUUID)
}

func (s *ContentService) IsLiked(ctx context.Context, userID, postID string) (bool, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", err)
	}

	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeBadRequest, "invalid post ID", err)
	}

	return s.likeRepo.IsLiked(ctx, userUUID, postUUID)
}

func (s *ContentService) SearchPosts(ctx context.Context, query string, offset, limit int) ([]*models.Post, error) {
	posts, err := s.postRepo.Search(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search posts: %w", err)
	}
	return posts, nil
}
