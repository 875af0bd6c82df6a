package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/repository/specification"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConversationLifecycle(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDB(database.Options{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(gormDB))

	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(gormDB)
	now := time.Now().UTC().Truncate(time.Microsecond)

	user := &entity.User{
		Id:        uuid.New(),
		Email:     "integration-" + uuid.NewString() + "@example.com",
		Role:      entity.UserRoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, factory.NewUnitOfWork(ctx).UserRepository().Create(ctx, user))

	conv := &entity.Conversation{
		Id:         uuid.New(),
		UserId:     user.Id,
		SessionKey: uuid.New(),
		Title:      "Integration • outline",
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	t.Run("create if absent is idempotent per session key", func(t *testing.T) {
		repo := factory.NewUnitOfWork(ctx).ConversationRepository()
		created, err := repo.CreateIfAbsent(ctx, conv)
		require.NoError(t, err)
		assert.True(t, created)

		dup := *conv
		dup.Id = uuid.New()
		created, err = repo.CreateIfAbsent(ctx, &dup)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, conv.Id, dup.Id)
	})

	t.Run("turn is written in one transaction", func(t *testing.T) {
		uow := factory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		require.NoError(t, uow.MessageRepository().CreateBatch(ctx, []*entity.Message{
			{Id: uuid.New(), ConversationId: conv.Id, Role: "user", Content: "hello", CreatedAt: now},
			{Id: uuid.New(), ConversationId: conv.Id, Role: "assistant", Content: "hi", CreatedAt: now.Add(time.Millisecond),
				Meta: map[string]interface{}{"mode": "coaching"}},
		}))
		require.NoError(t, uow.ConversationRepository().UpdateFields(ctx, conv.Id, map[string]interface{}{
			"updated_at":   now.Add(time.Millisecond),
			"last_message": "hi",
		}))
		require.NoError(t, uow.Commit())

		msgs, err := factory.NewUnitOfWork(ctx).MessageRepository().FindAll(ctx, specification.ByConversationID{ConversationID: conv.Id}, specification.Chronological)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "coaching", msgs[1].Meta["mode"])
	})

	t.Run("delete removes messages with the conversation", func(t *testing.T) {
		uow := factory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		n, err := uow.MessageRepository().DeleteByConversationId(ctx, conv.Id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		require.NoError(t, uow.ConversationRepository().Delete(ctx, conv.Id))
		require.NoError(t, uow.Commit())

		found, err := factory.NewUnitOfWork(ctx).ConversationRepository().FindOne(ctx, specification.ByID{ID: conv.Id})
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}
