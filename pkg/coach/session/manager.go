// Package session keeps each user's live chat Session consistent with the
// conversation store and owns the conversation lifecycle.
package session

import (
	"context"
	"time"

	"essay-coach-be/internal/constant"
	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/internal/repository/cache"
	"essay-coach-be/internal/repository/memory"
	"essay-coach-be/internal/repository/specification"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/pkg/apperror"
	"essay-coach-be/pkg/events"
	"essay-coach-be/pkg/metrics"
	"essay-coach-be/pkg/store"
	"essay-coach-be/pkg/timefmt"

	"github.com/google/uuid"
)

const (
	module            = "SESSION"
	lastMessageRunes  = 100
	timestampStepping = time.Millisecond
)

type Config struct {
	Greeting   string
	PageSize   int
	TitleWords int
}

// Turn is one completed user/assistant exchange ready to be persisted.
type Turn struct {
	UserText  string
	ReplyText string
	SentAt    time.Time
	RepliedAt time.Time
	// Meta is stored on the assistant message.
	Meta map[string]interface{}
}

// Ticket is handed out by BeginTurn. It pins the session generation and the
// history the model saw.
type Ticket struct {
	generation uint64
	History    []store.Message
}

type Manager struct {
	uowFactory unitofwork.RepositoryFactory
	sessions   *memory.SessionRepository
	lists      cache.ConversationListCache
	clock      *timefmt.Formatter
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     logger.ILogger
	cfg        Config
	now        func() time.Time
}

func NewManager(
	uowFactory unitofwork.RepositoryFactory,
	sessions *memory.SessionRepository,
	lists cache.ConversationListCache,
	clock *timefmt.Formatter,
	publisher events.Publisher,
	m *metrics.Metrics,
	log logger.ILogger,
	cfg Config,
) *Manager {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.TitleWords <= 0 {
		cfg.TitleWords = 4
	}
	return &Manager{
		uowFactory: uowFactory,
		sessions:   sessions,
		lists:      lists,
		clock:      clock,
		publisher:  publisher,
		metrics:    m,
		logger:     log,
		cfg:        cfg,
		now:        time.Now,
	}
}

func (m *Manager) PageSize() int { return m.cfg.PageSize }

func (m *Manager) greeting() store.Message {
	return store.Message{Role: constant.MessageRoleAssistant, Content: m.cfg.Greeting, Timestamp: m.now().UTC()}
}

func (m *Manager) isGreeting(msg store.Message) bool {
	return msg.Role == constant.MessageRoleAssistant && msg.Content == m.cfg.Greeting
}

// reset must be called with the session locked.
func (m *Manager) reset(sess *store.Session) {
	sess.Key = uuid.New()
	sess.ConversationID = nil
	sess.Messages = []store.Message{m.greeting()}
	sess.Page = 0
	sess.HasMore = false
	sess.Generation++
	sess.InFlight = false
}

// Create starts a fresh Session for an authenticated user, replacing any
// Session the user already had.
func (m *Manager) Create(userID uuid.UUID, email, role string) *store.Session {
	if old, ok := m.sessions.Get(userID); ok {
		old.Lock()
		old.Generation++
		old.Unlock()
	}

	sess := &store.Session{UserID: userID, Email: email, Role: role}
	m.reset(sess)
	m.sessions.Save(sess)
	return sess
}

func (m *Manager) Get(userID uuid.UUID) (*store.Session, bool) {
	return m.sessions.Get(userID)
}

// Ensure returns the user's Session, creating a fresh one when the process
// holds none (for example after a restart with a still valid token).
func (m *Manager) Ensure(userID uuid.UUID, email, role string) *store.Session {
	if sess, ok := m.sessions.Get(userID); ok {
		return sess
	}
	return m.Create(userID, email, role)
}

// ActiveSessions counts Sessions held by this process.
func (m *Manager) ActiveSessions() int {
	return m.sessions.Count()
}

// Destroy discards the Session. Turns still in flight become stale.
func (m *Manager) Destroy(userID uuid.UUID) {
	if sess, ok := m.sessions.Get(userID); ok {
		sess.Lock()
		sess.Generation++
		sess.Unlock()
	}
	m.sessions.Delete(userID)
}

// StartNewSession clears everything but identity and seeds the log with the
// greeting. Nothing is written to the store.
func (m *Manager) StartNewSession(sess *store.Session) store.View {
	sess.Lock()
	m.reset(sess)
	sess.Unlock()

	m.logger.Debug(module, "Started new session", map[string]interface{}{"user_id": sess.UserID.String()})
	return sess.Snapshot()
}

// LoadConversation replaces the session log with the stored messages of a
// conversation owned by the session user.
func (m *Manager) LoadConversation(ctx context.Context, sess *store.Session, conversationID uuid.UUID) (store.View, error) {
	const op = "load conversation"

	uow := m.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationID},
		specification.UserOwnedBy{UserID: sess.UserID},
	)
	if err != nil {
		return store.View{}, apperror.Store(op, err)
	}
	if conversation == nil {
		return store.View{}, apperror.NotFound(op)
	}

	stored, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversation.Id},
		specification.Chronological,
	)
	if err != nil {
		return store.View{}, apperror.Store(op, err)
	}

	log := make([]store.Message, 0, len(stored))
	for _, msg := range stored {
		log = append(log, store.Message{Role: msg.Role, Content: msg.Content, Timestamp: msg.CreatedAt})
	}

	sess.Lock()
	id := conversation.Id
	sess.ConversationID = &id
	sess.Key = conversation.SessionKey
	sess.Messages = log
	sess.Generation++
	sess.InFlight = false
	sess.Unlock()

	return sess.Snapshot(), nil
}

// BeginTurn reserves the session for one turn.
func (m *Manager) BeginTurn(sess *store.Session) (Ticket, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.InFlight {
		return Ticket{}, apperror.ErrTurnInProgress
	}
	sess.InFlight = true
	return Ticket{
		generation: sess.Generation,
		History:    append([]store.Message(nil), sess.Messages...),
	}, nil
}

// EndTurn releases the reservation taken by BeginTurn. It is a no-op when
// the session moved on to a newer generation.
func (m *Manager) EndTurn(sess *store.Session, ticket Ticket) {
	sess.Lock()
	defer sess.Unlock()
	if sess.Generation == ticket.generation {
		sess.InFlight = false
	}
}

// Current reports whether ticket still belongs to the live session state.
func (m *Manager) Current(sess *store.Session, ticket Ticket) bool {
	sess.Lock()
	defer sess.Unlock()
	return sess.Generation == ticket.generation
}

// AppendTurn persists a completed turn and then appends it to the in-memory
// log. The conversation is created on the first turn. If persisting the
// messages fails the conversation id is kept, so a retry appends to the same
// conversation; the log is only touched after the store accepted the turn.
func (m *Manager) AppendTurn(ctx context.Context, sess *store.Session, ticket Ticket, turn Turn) (*entity.Conversation, error) {
	const op = "append turn"

	sess.Lock()
	defer sess.Unlock()

	if sess.Generation != ticket.generation {
		return nil, apperror.ErrTurnAbandoned
	}

	sentAt, repliedAt := m.orderTimestamps(sess, turn)

	conversation, err := m.currentConversation(ctx, sess, turn.UserText, sentAt)
	if err != nil {
		return nil, err
	}
	id := conversation.Id
	sess.ConversationID = &id

	uow := m.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Store(op, err)
	}
	defer uow.Rollback()

	messages := []*entity.Message{
		{
			Id:             uuid.New(),
			ConversationId: conversation.Id,
			Role:           constant.MessageRoleUser,
			Content:        turn.UserText,
			CreatedAt:      sentAt,
		},
		{
			Id:             uuid.New(),
			ConversationId: conversation.Id,
			Role:           constant.MessageRoleAssistant,
			Content:        turn.ReplyText,
			Meta:           turn.Meta,
			CreatedAt:      repliedAt,
		},
	}
	if err := uow.MessageRepository().CreateBatch(ctx, messages); err != nil {
		return nil, apperror.Store(op, err)
	}

	preview := truncateRunes(turn.ReplyText, lastMessageRunes)
	if err := uow.ConversationRepository().UpdateFields(ctx, conversation.Id, map[string]interface{}{
		"updated_at":   repliedAt,
		"last_message": preview,
	}); err != nil {
		return nil, apperror.Store(op, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Store(op, err)
	}

	conversation.UpdatedAt = repliedAt
	conversation.LastMessage = preview

	sess.Messages = append(sess.Messages,
		store.Message{Role: constant.MessageRoleUser, Content: turn.UserText, Timestamp: sentAt},
		store.Message{Role: constant.MessageRoleAssistant, Content: turn.ReplyText, Timestamp: repliedAt},
	)

	m.lists.Invalidate(ctx, sess.UserID)
	return conversation, nil
}

// orderTimestamps keeps the log totally ordered even when the clock does not
// advance between messages.
func (m *Manager) orderTimestamps(sess *store.Session, turn Turn) (time.Time, time.Time) {
	sentAt := turn.SentAt.UTC()
	if sentAt.IsZero() {
		sentAt = m.now().UTC()
	}
	if n := len(sess.Messages); n > 0 && !m.isGreeting(sess.Messages[n-1]) {
		if last := sess.Messages[n-1].Timestamp; !sentAt.After(last) {
			sentAt = last.Add(timestampStepping)
		}
	}
	repliedAt := turn.RepliedAt.UTC()
	if !repliedAt.After(sentAt) {
		repliedAt = sentAt.Add(timestampStepping)
	}
	return sentAt, repliedAt
}

// currentConversation must be called with the session locked.
func (m *Manager) currentConversation(ctx context.Context, sess *store.Session, firstUserText string, createdAt time.Time) (*entity.Conversation, error) {
	const op = "append turn"
	repo := m.uowFactory.NewUnitOfWork(ctx).ConversationRepository()

	if sess.ConversationID != nil {
		conversation, err := repo.FindOne(ctx,
			specification.ByID{ID: *sess.ConversationID},
			specification.UserOwnedBy{UserID: sess.UserID},
		)
		if err != nil {
			return nil, apperror.Store(op, err)
		}
		if conversation == nil {
			return nil, apperror.NotFound(op)
		}
		return conversation, nil
	}

	conversation := &entity.Conversation{
		Id:         uuid.New(),
		UserId:     sess.UserID,
		SessionKey: sess.Key,
		Title:      DeriveTitle(m.clock.TitlePrefix(createdAt), firstUserText, m.cfg.TitleWords),
		Status:     constant.ConversationStatusActive,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	created, err := repo.CreateIfAbsent(ctx, conversation)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if conversation.UserId != sess.UserID {
		return nil, apperror.NotFound(op)
	}

	if created {
		m.metrics.ConversationCreated()
		m.logger.Info(module, "Conversation created", map[string]interface{}{
			"user_id":         sess.UserID.String(),
			"conversation_id": conversation.Id.String(),
		})
		m.publish(ctx, events.New(events.TypeConversationCreated, map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"user_id":         sess.UserID.String(),
			"title":           conversation.Title,
		}))
	}
	return conversation, nil
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn(module, "Failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

// ListConversations returns one zero-indexed page of the user's
// conversations, newest activity first.
func (m *Manager) ListConversations(ctx context.Context, userID uuid.UUID, page, size int) (*entity.ConversationPage, error) {
	const op = "list conversations"
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = m.cfg.PageSize
	}

	version := m.lists.Version(ctx, userID)
	if cached, ok := m.lists.Get(ctx, userID, version, page, size); ok {
		return cached, nil
	}

	repo := m.uowFactory.NewUnitOfWork(ctx).ConversationRepository()
	total, err := repo.Count(ctx, specification.UserOwnedBy{UserID: userID})
	if err != nil {
		return nil, apperror.Store(op, err)
	}

	items := []*entity.Conversation{}
	if total > int64(page*size) {
		items, err = repo.FindAll(ctx,
			specification.UserOwnedBy{UserID: userID},
			specification.RecentlyUpdated,
			specification.PageOf(page, size),
		)
		if err != nil {
			return nil, apperror.Store(op, err)
		}
	}

	result := &entity.ConversationPage{
		Items:   items,
		Page:    page,
		Size:    size,
		Total:   total,
		HasMore: total > int64((page+1)*size),
	}
	m.lists.Set(ctx, userID, version, page, size, result)
	return result, nil
}

// CurrentPage lists the conversations at the session's page and remembers
// whether a next page exists.
func (m *Manager) CurrentPage(ctx context.Context, sess *store.Session) (*entity.ConversationPage, error) {
	sess.Lock()
	page := sess.Page
	sess.Unlock()

	result, err := m.ListConversations(ctx, sess.UserID, page, m.cfg.PageSize)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	if sess.Page == page {
		sess.HasMore = result.HasMore
	}
	sess.Unlock()
	return result, nil
}

// NextPage advances only when the last listing reported more results.
func (m *Manager) NextPage(ctx context.Context, sess *store.Session) (*entity.ConversationPage, error) {
	sess.Lock()
	if sess.HasMore {
		sess.Page++
	}
	sess.Unlock()
	return m.CurrentPage(ctx, sess)
}

// PreviousPage steps back; it is a no-op on the first page.
func (m *Manager) PreviousPage(ctx context.Context, sess *store.Session) (*entity.ConversationPage, error) {
	sess.Lock()
	if sess.Page > 0 {
		sess.Page--
	}
	sess.Unlock()
	return m.CurrentPage(ctx, sess)
}

func (m *Manager) LatestPage(ctx context.Context, sess *store.Session) (*entity.ConversationPage, error) {
	sess.Lock()
	sess.Page = 0
	sess.Unlock()
	return m.CurrentPage(ctx, sess)
}

// InvalidateListings drops cached listings of a user after an out-of-band
// write such as an admin delete.
func (m *Manager) InvalidateListings(ctx context.Context, userID uuid.UUID) {
	m.lists.Invalidate(ctx, userID)
}

// DetachConversation resets the owner's live session if it is positioned on
// a conversation that no longer exists.
func (m *Manager) DetachConversation(ctx context.Context, ownerID, conversationID uuid.UUID) bool {
	m.lists.Invalidate(ctx, ownerID)

	sess, ok := m.sessions.Get(ownerID)
	if !ok {
		return false
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.ConversationID == nil || *sess.ConversationID != conversationID {
		return false
	}
	m.reset(sess)
	m.logger.Info(module, "Detached session from deleted conversation", map[string]interface{}{
		"user_id":         ownerID.String(),
		"conversation_id": conversationID.String(),
	})
	return true
}
