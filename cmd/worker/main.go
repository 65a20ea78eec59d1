package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunespace/tunespace/internal/config"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/internal/workers"
	"github.com/tunespace/tunespace/pkg/cache"
	"github.com/tunespace/tunespace/pkg/logger"
	"github.com/tunespace/tunespace/pkg/queue"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLogger(cfg.Log.Level)
	logger.Info("Starting tunespace event worker...")

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	consumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SocialEvents, "event-worker-group")

	followRepo := repository.NewFollowRepository(db.DB)
	worker := workers.NewEventWorker(followRepo, redisClient, consumer, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- worker.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down worker...")
		cancel()
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			logger.WithError(err).Error("Worker stopped with error")
		}
	}

	if err := worker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop worker")
	}

	logger.Info("Worker exited")
}
