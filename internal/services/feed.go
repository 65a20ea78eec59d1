package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tunespace/tunespace/internal/config"
	apperrors "github.com/tunespace/tunespace/internal/errors"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/pkg/cache"
	"github.com/tunespace/tunespace/pkg/logger"
)

// FeedService composes the viewer's feed by pulling posts from the follow
// graph. The cache is optional; a nil client just skips caching.
type FeedService struct {
	postRepo   *repository.PostRepository
	followRepo *repository.FollowRepository
	cache      *cache.RedisClient
	config     *config.FeedConfig
	logger     *logger.Logger
}

func NewFeedService(postRepo *repository.PostRepository, followRepo *repository.FollowRepository, cache *cache.RedisClient, config *config.FeedConfig, logger *logger.Logger) *FeedService {
	return &FeedService{
		postRepo:   postRepo,
		followRepo: followRepo,
		cache:      cache,
		config:     config,
		logger:     logger,
	}
}

type FeedResponse struct {
	Posts []*models.Post `json:"posts"`
	Limit int            `json:"limit"`
}

// FeedFor returns the newest posts visible to the viewer. An authenticated
// viewer sees posts from themselves and the accounts they follow; an empty
// viewerID means anonymous and sees posts from all accounts. Ordering is
// creation time descending with post ID as the tie-break.
func (s *FeedService) FeedFor(ctx context.Context, viewerID string, limit int) (*FeedResponse, error) {
	limit = s.clampLimit(limit)

	// 只缓存默认条数的请求，worker 失效时只需删一个键
	cacheable := limit == s.config.DefaultLimit
	cacheKey := FeedCacheKey(viewerID)
	if cacheable {
		if cached := s.getCached(ctx, cacheKey); cached != nil {
			return cached, nil
		}
	}

	var posts []*models.Post
	var err error

	if viewerID == "" {
		posts, err = s.postRepo.GetLatest(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest posts: %w", err)
		}
	} else {
		viewerUUID, parseErr := uuid.Parse(viewerID)
		if parseErr != nil {
			return nil, apperrors.Wrap(apperrors.CodeBadRequest, "invalid user ID", parseErr)
		}

		followingIDs, ferr := s.followRepo.FollowingIDs(ctx, viewerUUID)
		if ferr != nil {
			return nil, fmt.Errorf("failed to get following ids: %w", ferr)
		}

		// 候选作者 = 自己 + 关注的人
		authors := append(followingIDs, viewerUUID)
		posts, err = s.postRepo.GetByAuthors(ctx, authors, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get feed posts: %w", err)
		}
	}

	response := &FeedResponse{Posts: posts, Limit: limit}
	if cacheable {
		s.setCached(ctx, cacheKey, response)
	}
	return response, nil
}

func (s *FeedService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if s.config.MaxLimit > 0 && limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	return limit
}

// FeedCacheKey is shared with the event worker, which deletes these keys
// when posts or follow edges change.
func FeedCacheKey(viewerID string) string {
	if viewerID == "" {
		return "feed:anonymous"
	}
	return fmt.Sprintf("feed:user:%s", viewerID)
}

func (s *FeedService) getCached(ctx context.Context, key string) *FeedResponse {
	if s.cache == nil {
		return nil
	}
	var response FeedResponse
	if err := s.cache.GetJSON(ctx, key, &response); err != nil {
		return nil
	}
	return &response
}

func (s *FeedService) setCached(ctx context.Context, key string, response *FeedResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, response, s.config.CacheTTL); err != nil {
		s.logger.WithError(err).Error("Failed to cache feed")
	}
}
