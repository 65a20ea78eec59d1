package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tunespace/tunespace/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Toggle flips the like state for (user, post) inside one transaction and
// reports the resulting state. The delete-then-insert pair plus the unique
// index keeps concurrent toggles at zero or one row: a racing insert hits
// the index, is swallowed by ON CONFLICT and reads as already-liked.
func (r *LikeRepository) Toggle(ctx context.Context, userID, postID uuid.UUID) (liked bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).
			Delete(&models.Like{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete like: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			liked = false
			return adjustLikeCount(tx, postID, -1)
		}

		like := &models.Like{UserID: userID, PostID: postID}
		res = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).Create(like)
		if res.Error != nil {
			return fmt.Errorf("failed to create like: %w", res.Error)
		}

		liked = true
		if res.RowsAffected == 0 {
			// 并发插入已落库，计数不再加
			return nil
		}
		return adjustLikeCount(tx, postID, 1)
	})
	return liked, err
}

func adjustLikeCount(tx *gorm.DB, postID uuid.UUID, delta int64) error {
	if err := tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update like count: %w", err)
	}
	return nil
}

func (r *LikeRepository) GetByPostID(ctx context.Context, postID uuid.UUID, offset, limit int) ([]*models.Like, error) {
	var likes []*models.Like
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to get likes by post: %w", err)
	}
	return likes, nil
}

func (r *LikeRepository) CountByPostID(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

func (r *LikeRepository) IsLiked(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check like status: %w", err)
	}
	return count > 0, nil
}
