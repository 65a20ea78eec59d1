package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/internal/services"
	"github.com/tunespace/tunespace/pkg/cache"
	"github.com/tunespace/tunespace/pkg/logger"
	"github.com/tunespace/tunespace/pkg/queue"
)

// EventWorker consumes social domain events and keeps the redis feed
// caches honest: a new or deleted post invalidates every follower's cached
// feed, a follow change invalidates the follower's.
type EventWorker struct {
	followRepo *repository.FollowRepository
	cache      *cache.RedisClient
	consumer   *queue.KafkaConsumer
	logger     *logger.Logger
}

func NewEventWorker(followRepo *repository.FollowRepository, cache *cache.RedisClient, consumer *queue.KafkaConsumer, logger *logger.Logger) *EventWorker {
	return &EventWorker{
		followRepo: followRepo,
		cache:      cache,
		consumer:   consumer,
		logger:     logger,
	}
}

func (w *EventWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting event worker...")

	return w.consumer.Subscribe(ctx, func(msg queue.Message) error {
		var event queue.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}

		w.logger.WithFields(map[string]interface{}{
			"event_type": event.Type,
			"timestamp":  event.Timestamp,
		}).Info("Processing event")

		switch event.Type {
		case queue.EventPostCreated, queue.EventPostDeleted:
			return w.handlePostChanged(ctx, event)
		case queue.EventFollowCreated, queue.EventFollowDeleted:
			return w.handleFollowChanged(ctx, event)
		case queue.EventLikeToggled, queue.EventCommentCreated,
			queue.EventUserRegistered, queue.EventUserUpdated:
			// 不影响feed组成，无需失效
			return nil
		default:
			w.logger.WithField("event_type", event.Type).Warn("Unknown event type")
			return nil
		}
	})
}

func (w *EventWorker) Stop() error {
	return w.consumer.Close()
}

func (w *EventWorker) handlePostChanged(ctx context.Context, event queue.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}

	authorID, ok := data["user_id"].(string)
	if !ok {
		return fmt.Errorf("missing user_id in event data")
	}

	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return fmt.Errorf("invalid user ID: %w", err)
	}

	// 作者自己、所有粉丝、以及匿名feed都可能包含这篇帖子
	keys := []string{
		services.FeedCacheKey(authorID),
		services.FeedCacheKey(""),
	}

	offset := 0
	const batch = 500
	for {
		followers, err := w.followRepo.GetFollowers(ctx, authorUUID, offset, batch)
		if err != nil {
			return fmt.Errorf("failed to get followers: %w", err)
		}
		for _, follower := range followers {
			keys = append(keys, services.FeedCacheKey(follower.ID.String()))
		}
		if len(followers) < batch {
			break
		}
		offset += batch
	}

	if err := w.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate feed caches: %w", err)
	}

	w.logger.WithFields(map[string]interface{}{
		"author_id": authorID,
		"keys":      len(keys),
	}).Info("Feed caches invalidated")

	return nil
}

func (w *EventWorker) handleFollowChanged(ctx context.Context, event queue.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}

	followerID, ok := data["follower_id"].(string)
	if !ok {
		return fmt.Errorf("missing follower_id in event data")
	}

	if err := w.cache.Delete(ctx, services.FeedCacheKey(followerID)); err != nil {
		return fmt.Errorf("failed to invalidate feed cache: %w", err)
	}

	return nil
}

func decodeEventData(event queue.Event) (map[string]interface{}, error) {
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid event data for %s", event.Type)
	}
	return data, nil
}
