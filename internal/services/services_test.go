package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tunespace/tunespace/internal/models"
	"github.com/tunespace/tunespace/internal/repository"
	"github.com/tunespace/tunespace/pkg/logger"
	"github.com/tunespace/tunespace/pkg/queue"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a named in-memory SQLite database. cache=shared keeps it
// alive across the pooled connections gorm opens.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
	))

	return db
}

// memoryProducer records published events instead of writing to Kafka.
type memoryProducer struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *memoryProducer) Publish(ctx context.Context, key string, value interface{}) error {
	event, ok := value.(queue.Event)
	if !ok {
		return fmt.Errorf("unexpected message type %T", value)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *memoryProducer) Close() error { return nil }

func (p *memoryProducer) eventsOfType(eventType queue.EventType) []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []queue.Event
	for _, event := range p.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

type testEnv struct {
	db       *gorm.DB
	producer *memoryProducer
	users    *UserService
	content  *ContentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := logger.NewLogger("error")
	producer := &memoryProducer{}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	return &testEnv{
		db:       db,
		producer: producer,
		users:    NewUserService(userRepo, followRepo, producer, log),
		content:  NewContentService(postRepo, likeRepo, commentRepo, userRepo, producer, log),
	}
}

func (e *testEnv) registerUser(t *testing.T, username string) *models.User {
	t.Helper()

	user, err := e.users.Register(context.Background(), &RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createPost(t *testing.T, authorID, content string) *models.Post {
	t.Helper()

	post, err := e.content.CreatePost(context.Background(), authorID, &CreatePostRequest{Content: content})
	require.NoError(t, err)
	return post
}
