package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/model"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/internal/repository/cache"
	"essay-coach-be/internal/repository/memory"
	"essay-coach-be/internal/repository/specification"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/pkg/apperror"
	"essay-coach-be/pkg/database"
	"essay-coach-be/pkg/events"
	"essay-coach-be/pkg/metrics"
	"essay-coach-be/pkg/timefmt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testGreeting = "Hi there! Ready to start your essay?"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	db        *gorm.DB
	manager   *Manager
	factory   unitofwork.RepositoryFactory
	publisher *recordingPublisher
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	db, err := database.NewInMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock, err := timefmt.NewFormatter("Europe/London")
	require.NoError(t, err)

	factory := unitofwork.NewRepositoryFactory(db)
	publisher := &recordingPublisher{}
	manager := NewManager(
		factory,
		memory.NewSessionRepository(time.Hour),
		cache.NewMemoryListCache(time.Minute),
		clock,
		publisher,
		metrics.NewMetrics(nil),
		logger.NewNopLogger(),
		Config{Greeting: testGreeting, PageSize: pageSize, TitleWords: 4},
	)
	manager.now = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }

	return &fixture{db: db, manager: manager, factory: factory, publisher: publisher}
}

func turnAt(at time.Time, user, reply string) Turn {
	return Turn{UserText: user, ReplyText: reply, SentAt: at, RepliedAt: at.Add(2 * time.Second)}
}

func (f *fixture) storedMessages(t *testing.T, conversationID uuid.UUID) []*entity.Message {
	t.Helper()
	ctx := context.Background()
	msgs, err := f.factory.NewUnitOfWork(ctx).MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationID},
		specification.Chronological,
	)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) conversationCount(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	ctx := context.Background()
	n, err := f.factory.NewUnitOfWork(ctx).ConversationRepository().Count(ctx, specification.UserOwnedBy{UserID: userID})
	require.NoError(t, err)
	return n
}

func TestStartNewSessionSeedsGreeting(t *testing.T) {
	f := newFixture(t, 10)
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")

	view := sess.Snapshot()
	require.Len(t, view.Messages, 1)
	assert.Equal(t, testGreeting, view.Messages[0].Content)
	assert.Equal(t, "assistant", view.Messages[0].Role)
	assert.Nil(t, view.ConversationID)
	assert.Zero(t, f.conversationCount(t, sess.UserID), "no store write before the first turn")
}

func TestAppendTurnCreatesConversationOnce(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	ticket, err := f.manager.BeginTurn(sess)
	require.NoError(t, err)
	first, err := f.manager.AppendTurn(ctx, sess, ticket, turnAt(at, "Can you help me outline", "Sure, start with your thesis."))
	require.NoError(t, err)
	f.manager.EndTurn(sess, ticket)

	assert.Equal(t, "Mar 05, 2024 • Can you help me", first.Title)
	assert.Equal(t, "active", first.Status)

	long := strings.Repeat("x", 150)
	ticket, err = f.manager.BeginTurn(sess)
	require.NoError(t, err)
	second, err := f.manager.AppendTurn(ctx, sess, ticket, turnAt(at.Add(time.Minute), "Is this better?", long))
	require.NoError(t, err)
	f.manager.EndTurn(sess, ticket)

	assert.Equal(t, first.Id, second.Id)
	assert.Equal(t, first.Title, second.Title, "title never changes after creation")
	assert.Equal(t, int64(1), f.conversationCount(t, sess.UserID))
	assert.Equal(t, 1, f.publisher.count(events.TypeConversationCreated))

	stored, err := f.factory.NewUnitOfWork(ctx).ConversationRepository().FindOne(ctx, specification.ByID{ID: first.Id})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 100), stored.LastMessage)
	assert.True(t, at.Add(time.Minute+2*time.Second).Equal(stored.UpdatedAt))

	view := sess.Snapshot()
	require.NotNil(t, view.ConversationID)
	assert.Equal(t, first.Id, *view.ConversationID)

	persisted := f.storedMessages(t, first.Id)
	require.Len(t, view.Messages, len(persisted)+1, "greeting lives only in memory")
	for i, msg := range persisted {
		assert.Equal(t, view.Messages[i+1].Role, msg.Role)
		assert.Equal(t, view.Messages[i+1].Content, msg.Content)
		assert.True(t, view.Messages[i+1].Timestamp.Equal(msg.CreatedAt))
	}
}

func TestAppendTurnOrdersTimestamps(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ticket, err := f.manager.BeginTurn(sess)
		require.NoError(t, err)
		_, err = f.manager.AppendTurn(ctx, sess, ticket, Turn{
			UserText:  fmt.Sprintf("u%d", i),
			ReplyText: fmt.Sprintf("a%d", i),
			SentAt:    at,
			RepliedAt: at,
		})
		require.NoError(t, err)
		f.manager.EndTurn(sess, ticket)
	}

	view := sess.Snapshot()
	persisted := f.storedMessages(t, *view.ConversationID)
	require.Len(t, persisted, 6)
	for i := 1; i < len(persisted); i++ {
		assert.True(t, persisted[i].CreatedAt.After(persisted[i-1].CreatedAt))
		assert.Equal(t, view.Messages[i+1].Content, persisted[i].Content)
	}
}

func TestAppendTurnStoreFailureIsRetryable(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	require.NoError(t, f.db.Migrator().DropTable(&model.Message{}))

	ticket, err := f.manager.BeginTurn(sess)
	require.NoError(t, err)
	_, err = f.manager.AppendTurn(ctx, sess, ticket, turnAt(at, "Can you help me outline", "Sure."))
	require.ErrorIs(t, err, apperror.ErrStore)

	view := sess.Snapshot()
	assert.Len(t, view.Messages, 1, "log is untouched by a failed append")
	require.NotNil(t, view.ConversationID, "the created conversation is remembered for the retry")

	require.NoError(t, database.Migrate(f.db))

	retried, err := f.manager.AppendTurn(ctx, sess, ticket, turnAt(at, "Can you help me outline", "Sure."))
	require.NoError(t, err)
	f.manager.EndTurn(sess, ticket)

	assert.Equal(t, *view.ConversationID, retried.Id)
	assert.Equal(t, int64(1), f.conversationCount(t, sess.UserID))
	assert.Len(t, f.storedMessages(t, retried.Id), 2)
	assert.Len(t, sess.Snapshot().Messages, 3)
}

func TestLoadConversationChecksOwnership(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	alice := f.manager.Create(uuid.New(), "alice@example.com", "user")
	bob := f.manager.Create(uuid.New(), "bob@example.com", "user")
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	ticket, err := f.manager.BeginTurn(alice)
	require.NoError(t, err)
	conversation, err := f.manager.AppendTurn(ctx, alice, ticket, turnAt(at, "What's a good thesis statement?", "One that argues."))
	require.NoError(t, err)
	f.manager.EndTurn(alice, ticket)

	_, err = f.manager.LoadConversation(ctx, bob, conversation.Id)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Nil(t, bob.Snapshot().ConversationID)

	_, err = f.manager.LoadConversation(ctx, alice, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	f.manager.StartNewSession(alice)
	view, err := f.manager.LoadConversation(ctx, alice, conversation.Id)
	require.NoError(t, err)
	require.NotNil(t, view.ConversationID)
	assert.Equal(t, conversation.Id, *view.ConversationID)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "What's a good thesis statement?", view.Messages[0].Content)
	assert.Equal(t, "One that argues.", view.Messages[1].Content)
}

func TestAppendTurnDiscardsStaleTicket(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")

	ticket, err := f.manager.BeginTurn(sess)
	require.NoError(t, err)

	f.manager.StartNewSession(sess)
	assert.False(t, f.manager.Current(sess, ticket))

	_, err = f.manager.AppendTurn(ctx, sess, ticket, turnAt(time.Now(), "hello", "hi"))
	assert.ErrorIs(t, err, apperror.ErrTurnAbandoned)
	assert.Zero(t, f.conversationCount(t, sess.UserID))
	assert.Len(t, sess.Snapshot().Messages, 1)
}

func TestBeginTurnAllowsOneTurnAtATime(t *testing.T) {
	f := newFixture(t, 10)
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")

	stale, err := f.manager.BeginTurn(sess)
	require.NoError(t, err)

	_, err = f.manager.BeginTurn(sess)
	assert.ErrorIs(t, err, apperror.ErrTurnInProgress)

	f.manager.StartNewSession(sess)
	fresh, err := f.manager.BeginTurn(sess)
	require.NoError(t, err, "a reset releases the abandoned reservation")

	f.manager.EndTurn(sess, stale)
	_, err = f.manager.BeginTurn(sess)
	assert.ErrorIs(t, err, apperror.ErrTurnInProgress, "a stale ticket cannot release the fresh turn")

	f.manager.EndTurn(sess, fresh)
	_, err = f.manager.BeginTurn(sess)
	assert.NoError(t, err)
}

func seedConversations(t *testing.T, f *fixture, owner uuid.UUID, n int) {
	t.Helper()
	ctx := context.Background()
	repo := f.factory.NewUnitOfWork(ctx).ConversationRepository()
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := repo.CreateIfAbsent(ctx, &entity.Conversation{
			Id:         uuid.New(),
			UserId:     owner,
			SessionKey: uuid.New(),
			Title:      fmt.Sprintf("conversation %d", i),
			Status:     "active",
			CreatedAt:  at,
			UpdatedAt:  at,
		})
		require.NoError(t, err)
	}
}

func TestListConversationsHasMore(t *testing.T) {
	tests := []struct {
		total     int
		page      int
		wantItems int
		wantMore  bool
	}{
		{0, 0, 0, false},
		{9, 0, 9, false},
		{10, 0, 10, false},
		{11, 0, 10, true},
		{11, 1, 1, false},
		{25, 1, 10, true},
		{25, 2, 5, false},
		{25, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d conversations page %d", tt.total, tt.page), func(t *testing.T) {
			f := newFixture(t, 10)
			owner := uuid.New()
			seedConversations(t, f, owner, tt.total)
			seedConversations(t, f, uuid.New(), 3)

			page, err := f.manager.ListConversations(context.Background(), owner, tt.page, 10)
			require.NoError(t, err)
			assert.Len(t, page.Items, tt.wantItems)
			assert.Equal(t, tt.wantMore, page.HasMore)
			assert.Equal(t, int64(tt.total), page.Total)
			for i := 1; i < len(page.Items); i++ {
				assert.False(t, page.Items[i].UpdatedAt.After(page.Items[i-1].UpdatedAt))
			}
		})
	}
}

func TestPageTransitions(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")
	seedConversations(t, f, sess.UserID, 25)

	page, err := f.manager.PreviousPage(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page, "previous on the first page is a no-op")

	page, err = f.manager.NextPage(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)

	page, err = f.manager.NextPage(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.False(t, page.HasMore)

	page, err = f.manager.NextPage(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page, "next without more results is a no-op")

	page, err = f.manager.PreviousPage(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)

	page, err = f.manager.LatestPage(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Page)

	_, err = f.manager.NextPage(ctx, sess)
	require.NoError(t, err)
	f.manager.StartNewSession(sess)
	assert.Equal(t, 0, sess.Snapshot().Page)
}

func TestListingReflectsWrites(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")

	before, err := f.manager.CurrentPage(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, before.Items)

	ticket, err := f.manager.BeginTurn(sess)
	require.NoError(t, err)
	_, err = f.manager.AppendTurn(ctx, sess, ticket, turnAt(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), "hello there", "hi"))
	require.NoError(t, err)
	f.manager.EndTurn(sess, ticket)

	after, err := f.manager.CurrentPage(ctx, sess)
	require.NoError(t, err)
	require.Len(t, after.Items, 1)
	assert.Equal(t, "hi", after.Items[0].LastMessage)
}

func TestDetachConversation(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	sess := f.manager.Create(uuid.New(), "student@example.com", "user")

	ticket, err := f.manager.BeginTurn(sess)
	require.NoError(t, err)
	conversation, err := f.manager.AppendTurn(ctx, sess, ticket, turnAt(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), "hello", "hi"))
	require.NoError(t, err)
	f.manager.EndTurn(sess, ticket)

	assert.False(t, f.manager.DetachConversation(ctx, sess.UserID, uuid.New()))
	assert.Len(t, sess.Snapshot().Messages, 3)

	assert.True(t, f.manager.DetachConversation(ctx, sess.UserID, conversation.Id))
	view := sess.Snapshot()
	assert.Nil(t, view.ConversationID)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, testGreeting, view.Messages[0].Content)
}

func TestDestroyAbandonsInFlightTurn(t *testing.T) {
	f := newFixture(t, 10)
	userID := uuid.New()
	sess := f.manager.Create(userID, "student@example.com", "user")

	ticket, err := f.manager.BeginTurn(sess)
	require.NoError(t, err)

	f.manager.Destroy(userID)
	_, ok := f.manager.Get(userID)
	assert.False(t, ok)
	assert.False(t, f.manager.Current(sess, ticket))

	again := f.manager.Ensure(userID, "student@example.com", "user")
	assert.NotSame(t, sess, again)
	assert.Len(t, again.Snapshot().Messages, 1)
}
