package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tunespace/tunespace/internal/config"
	"github.com/tunespace/tunespace/internal/handlers"
	"github.com/tunespace/tunespace/internal/middleware"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/internal/services"
	"github.com/tunespace/tunespace/internal/storage"
	"github.com/tunespace/tunespace/pkg/cache"
	"github.com/tunespace/tunespace/pkg/logger"
	"github.com/tunespace/tunespace/pkg/queue"
	"github.com/tunespace/tunespace/pkg/spotify"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLogger(cfg.Log.Level)
	logger.Info("Starting tunespace API server...")

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	producer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.SocialEvents)
	defer producer.Close()

	mediaStore, err := storage.NewLocalStore(cfg.Storage.BasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize media storage")
	}

	spotifyClient := spotify.NewClient(
		cfg.Spotify.ClientID,
		cfg.Spotify.ClientSecret,
		cfg.Spotify.RedirectURL,
	)

	userRepo := repository.NewUserRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	postRepo := repository.NewPostRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)
	commentRepo := repository.NewCommentRepository(db.DB)

	userService := services.NewUserService(userRepo, followRepo, producer, logger)
	contentService := services.NewContentService(postRepo, likeRepo, commentRepo, userRepo, producer, logger)
	feedService := services.NewFeedService(postRepo, followRepo, redisClient, &cfg.Feed, logger)
	musicService := services.NewMusicService(userRepo, spotifyClient, logger)

	jwtExpiry := int64(cfg.JWT.ExpireTime / time.Second)
	userHandler := handlers.NewUserHandler(userService, cfg.JWT.Secret, jwtExpiry)
	contentHandler := handlers.NewContentHandler(contentService)
	feedHandler := handlers.NewFeedHandler(feedService)
	musicHandler := handlers.NewMusicHandler(musicService)
	uploadHandler := handlers.NewUploadHandler(mediaStore)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	router.Static("/media", cfg.Storage.BasePath)

	jwtConfig := &middleware.JWTConfig{Secret: cfg.JWT.Secret}

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.GET("/search", userHandler.SearchUsers)
			users.GET("/:id", userHandler.GetProfile)
			users.GET("/:id/followers", userHandler.GetFollowers)
			users.GET("/:id/following", userHandler.GetFollowing)
			users.GET("/:id/posts", contentHandler.GetUserPosts)
		}

		api.GET("/profiles/:username", userHandler.GetProfileByUsername)

		// feed对匿名访客开放，带token则按关注关系过滤
		api.GET("/feed", middleware.NewOptionalJWTAuth(jwtConfig), feedHandler.GetFeed)

		api.GET("/posts/search", contentHandler.SearchPosts)
		api.GET("/posts/:id", contentHandler.GetPost)
		api.GET("/posts/:id/likes", contentHandler.GetPostLikes)
		api.GET("/posts/:id/comments", contentHandler.GetPostComments)

		protected := api.Group("")
		protected.Use(middleware.NewJWTAuth(jwtConfig))
		{
			protected.PUT("/users/profile", userHandler.UpdateProfile)
			protected.POST("/users/follow", userHandler.Follow)
			protected.DELETE("/users/unfollow/:id", userHandler.Unfollow)
			protected.GET("/users/:id/is-following", userHandler.IsFollowing)

			protected.POST("/posts", contentHandler.CreatePost)
			protected.DELETE("/posts/:id", contentHandler.DeletePost)
			protected.POST("/posts/:id/like", contentHandler.ToggleLike)
			protected.POST("/posts/:id/comments", contentHandler.CreateComment)

			protected.POST("/uploads", uploadHandler.Upload)

			music := protected.Group("/music")
			{
				music.GET("/auth-url", musicHandler.AuthURL)
				music.POST("/link", musicHandler.Link)
				music.DELETE("/link", musicHandler.Unlink)
				music.GET("/top-tracks", musicHandler.TopTracks)
				music.GET("/playlists", musicHandler.Playlists)
				music.POST("/sync-favorites", musicHandler.SyncFavorites)
			}
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func init() {
	dirs := []string{"configs", "uploads"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Failed to create directory %s: %v", dir, err)
		}
	}

	configPath := "configs/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createDefaultConfig(configPath); err != nil {
			log.Printf("Failed to create default config: %v", err)
		}
	}
}

func createDefaultConfig(path string) error {
	defaultConfig := `server:
  port: ":8080"
  mode: "debug"
  read_timeout: 30s
  write_timeout: 30s

database:
  host: "localhost"
  port: 5432
  user: "tunespace"
  password: "tunespace"
  dbname: "tunespace"
  sslmode: "disable"
  max_open_conns: 100
  max_idle_conns: 10

redis:
  host: "localhost"
  port: 6379
  password: ""
  db: 0
  pool_size: 100
  min_idle_conns: 10

kafka:
  brokers:
    - "localhost:9092"
  topics:
    social_events: "social-events"

jwt:
  secret: "your-secret-key-change-in-production"
  expire_time: 24h

feed:
  default_limit: 10
  max_limit: 50
  cache_ttl: 5m

storage:
  base_path: "uploads"

spotify:
  client_id: ""
  client_secret: ""
  redirect_url: "http://localhost:8080/spotify/callback"

log:
  level: "info"`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
