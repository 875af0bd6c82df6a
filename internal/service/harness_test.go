package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/internal/repository/cache"
	"essay-coach-be/internal/repository/memory"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/pkg/coach/prompt"
	"essay-coach-be/pkg/coach/session"
	"essay-coach-be/pkg/database"
	"essay-coach-be/pkg/events"
	"essay-coach-be/pkg/identity"
	"essay-coach-be/pkg/llm"
	"essay-coach-be/pkg/metrics"
	"essay-coach-be/pkg/timefmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testGreeting   = "GREETING"
	testDisclaimer = "DISCLAIMER"
)

type fakeCall struct {
	Messages []llm.Message
	Options  *llm.Options
}

// fakeProvider answers with reply unless chat is set.
type fakeProvider struct {
	mu    sync.Mutex
	calls []fakeCall
	reply string
	chat  func(ctx context.Context) (string, error)
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Messages: append([]llm.Message(nil), history...), Options: llm.Apply(options...)})
	chat := f.chat
	reply := f.reply
	f.mu.Unlock()

	if chat != nil {
		return chat(ctx)
	}
	return reply, nil
}

func (f *fakeProvider) Name() string { return "fake/test" }

func (f *fakeProvider) lastCall() fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

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

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	db        *gorm.DB
	factory   unitofwork.RepositoryFactory
	sessions  *session.Manager
	provider  *fakeProvider
	publisher *recordingPublisher
	chat      IChatService
	admin     IAdminService
	auth      IAuthService
}

func newHarness(t *testing.T) *harness {
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
	m := metrics.NewMetrics(prometheus.NewRegistry())
	log := logger.NewNopLogger()

	sessions := session.NewManager(
		factory,
		memory.NewSessionRepository(time.Hour),
		cache.NewMemoryListCache(time.Minute),
		clock,
		publisher,
		m,
		log,
		session.Config{Greeting: testGreeting, PageSize: 10, TitleWords: 4},
	)
	assembler := prompt.NewAssembler(prompt.Config{
		PersonaInstructions: "PERSONA",
		ReviewInstructions:  "RUBRIC",
		Greeting:            testGreeting,
		Disclaimer:          testDisclaimer,
		Keywords:            []string{"review", "assess", "grade", "evaluate", "score", "feedback", "rubric"},
		Coaching:            prompt.Budget{MaxTokens: 400, WindowTurns: 6},
		Review:              prompt.Budget{MaxTokens: 5000, WindowTurns: 10},
	})
	provider := &fakeProvider{reply: "Here is my advice."}

	return &harness{
		db:        db,
		factory:   factory,
		sessions:  sessions,
		provider:  provider,
		publisher: publisher,
		chat: NewChatService(sessions, assembler, provider, clock, publisher, m, log, log,
			ChatOptions{Model: "test-model", Timeout: 200 * time.Millisecond}),
		admin: NewAdminService(factory, sessions, clock, publisher, m, log),
		auth:  NewAuthService(identity.NewLocalProvider(factory), sessions, "test-secret", time.Hour, log),
	}
}

func (h *harness) createUser(t *testing.T, email, password string, role entity.UserRole) Principal {
	t.Helper()
	ctx := context.Background()
	hash, err := identity.HashPassword(password)
	require.NoError(t, err)
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: &hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, h.factory.NewUnitOfWork(ctx).UserRepository().Create(ctx, user))
	return Principal{UserID: user.Id, Email: email, Role: string(role)}
}

func (h *harness) countConversations(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	n, err := h.factory.NewUnitOfWork(ctx).ConversationRepository().Count(ctx)
	require.NoError(t, err)
	return n
}

func (h *harness) countMessages(t *testing.T) int64 {
	t.Helper()
	ctx := context.Background()
	n, err := h.factory.NewUnitOfWork(ctx).MessageRepository().Count(ctx)
	require.NoError(t, err)
	return n
}

func nopLogger() logger.ILogger {
	return logger.NewNopLogger()
}
