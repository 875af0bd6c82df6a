package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"essay-coach-be/internal/dto"
	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/internal/repository/specification"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/pkg/apperror"
	"essay-coach-be/pkg/coach/export"
	"essay-coach-be/pkg/coach/session"
	"essay-coach-be/pkg/events"
	"essay-coach-be/pkg/identity"
	"essay-coach-be/pkg/metrics"
	"essay-coach-be/pkg/timefmt"

	"github.com/google/uuid"
)

type IAdminService interface {
	GetDashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error)
	GetAllUsers(ctx context.Context) ([]dto.AdminUserResponse, error)
	CreateUser(ctx context.Context, req *dto.AdminCreateUserRequest) (*dto.AdminUserResponse, error)
	GetUserConversations(ctx context.Context, userId uuid.UUID) ([]dto.AdminConversationResponse, error)
	GetTranscript(ctx context.Context, conversationId uuid.UUID) (*dto.TranscriptResponse, error)
	ExportConversation(ctx context.Context, conversationId uuid.UUID) (string, []byte, error)
	DeleteConversation(ctx context.Context, conversationId uuid.UUID) error
	DeleteConversations(ctx context.Context, ids []uuid.UUID) (int, error)
	DeleteUserConversations(ctx context.Context, userId uuid.UUID) (int, error)
}

type adminService struct {
	uowFactory unitofwork.RepositoryFactory
	sessions   *session.Manager
	clock      *timefmt.Formatter
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     logger.ILogger
}

func NewAdminService(
	uowFactory unitofwork.RepositoryFactory,
	sessions *session.Manager,
	clock *timefmt.Formatter,
	publisher events.Publisher,
	m *metrics.Metrics,
	log logger.ILogger,
) IAdminService {
	return &adminService{
		uowFactory: uowFactory,
		sessions:   sessions,
		clock:      clock,
		publisher:  publisher,
		metrics:    m,
		logger:     log,
	}
}

func (s *adminService) GetDashboardStats(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	const op = "dashboard stats"
	uow := s.uowFactory.NewUnitOfWork(ctx)

	users, err := uow.UserRepository().Count(ctx)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	conversations, err := uow.ConversationRepository().Count(ctx)
	if err != nil {
		return nil, apperror.Store(op, err)
	}

	return &dto.DashboardStatsResponse{
		TotalUsers:         users,
		TotalConversations: conversations,
		ActiveSessions:     s.sessions.ActiveSessions(),
	}, nil
}

// GetAllUsers lists users newest first. Last activity is the update time of
// the user's most recent conversation.
func (s *adminService) GetAllUsers(ctx context.Context) ([]dto.AdminUserResponse, error) {
	const op = "list users"
	uow := s.uowFactory.NewUnitOfWork(ctx)

	users, err := uow.UserRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, apperror.Store(op, err)
	}

	res := make([]dto.AdminUserResponse, 0, len(users))
	for _, u := range users {
		latest, err := uow.ConversationRepository().FindOne(ctx,
			specification.UserOwnedBy{UserID: u.Id},
			specification.RecentlyUpdated,
		)
		if err != nil {
			return nil, apperror.Store(op, err)
		}

		var lastActive *time.Time
		if latest != nil {
			t := latest.UpdatedAt
			lastActive = &t
		}
		res = append(res, dto.AdminUserResponse{
			Id:         u.Id,
			Email:      u.Email,
			Role:       string(u.Role),
			CreatedAt:  u.CreatedAt,
			LastActive: lastActive,
		})
	}
	return res, nil
}

func (s *adminService) CreateUser(ctx context.Context, req *dto.AdminCreateUserRequest) (*dto.AdminUserResponse, error) {
	const op = "create user"
	uow := s.uowFactory.NewUnitOfWork(ctx)
	email := identity.NormalizeEmail(req.Email)

	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if existing != nil {
		return nil, apperror.Validation(op, errors.New("email already registered"))
	}

	hash, err := identity.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := entity.UserRoleUser
	if req.Role == string(entity.UserRoleAdmin) {
		role = entity.UserRoleAdmin
	}

	now := time.Now().UTC()
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: &hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, apperror.Store(op, err)
	}

	s.logger.Info("ADMIN", "User created", map[string]interface{}{"user_id": user.Id.String(), "role": string(role)})
	return &dto.AdminUserResponse{Id: user.Id, Email: user.Email, Role: string(user.Role), CreatedAt: user.CreatedAt}, nil
}

func (s *adminService) GetUserConversations(ctx context.Context, userId uuid.UUID) ([]dto.AdminConversationResponse, error) {
	const op = "list user conversations"
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.RecentlyUpdated,
	)
	if err != nil {
		return nil, apperror.Store(op, err)
	}

	res := make([]dto.AdminConversationResponse, 0, len(conversations))
	for _, c := range conversations {
		count, err := uow.MessageRepository().Count(ctx, specification.ByConversationID{ConversationID: c.Id})
		if err != nil {
			return nil, apperror.Store(op, err)
		}
		res = append(res, toAdminConversation(c, count))
	}
	return res, nil
}

func (s *adminService) transcript(ctx context.Context, op string, conversationId uuid.UUID) (*entity.Conversation, []*entity.Message, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, nil, apperror.Store(op, err)
	}
	if conversation == nil {
		return nil, nil, apperror.NotFound(op)
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.Chronological,
	)
	if err != nil {
		return nil, nil, apperror.Store(op, err)
	}
	return conversation, messages, nil
}

func (s *adminService) GetTranscript(ctx context.Context, conversationId uuid.UUID) (*dto.TranscriptResponse, error) {
	conversation, messages, err := s.transcript(ctx, "get transcript", conversationId)
	if err != nil {
		return nil, err
	}
	return &dto.TranscriptResponse{
		Conversation: toAdminConversation(conversation, int64(len(messages))),
		Rows:         export.Rows(s.clock, messages),
	}, nil
}

// ExportConversation renders the transcript as CSV and returns the download
// file name with it.
func (s *adminService) ExportConversation(ctx context.Context, conversationId uuid.UUID) (string, []byte, error) {
	conversation, messages, err := s.transcript(ctx, "export conversation", conversationId)
	if err != nil {
		return "", nil, err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.Rows(s.clock, messages)); err != nil {
		return "", nil, err
	}
	return export.FileName(s.clock, conversation.Id, time.Now()), buf.Bytes(), nil
}

func (s *adminService) DeleteConversation(ctx context.Context, conversationId uuid.UUID) error {
	_, err := s.deleteConversation(ctx, conversationId)
	return err
}

// DeleteConversations deletes each conversation atomically and reports how
// many existed. Unknown ids are skipped.
func (s *adminService) DeleteConversations(ctx context.Context, ids []uuid.UUID) (int, error) {
	deleted := 0
	for _, id := range ids {
		if _, err := s.deleteConversation(ctx, id); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *adminService) DeleteUserConversations(ctx context.Context, userId uuid.UUID) (int, error) {
	conversations, err := s.uowFactory.NewUnitOfWork(ctx).ConversationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return 0, apperror.Store("delete user conversations", err)
	}

	ids := make([]uuid.UUID, 0, len(conversations))
	for _, c := range conversations {
		ids = append(ids, c.Id)
	}
	return s.DeleteConversations(ctx, ids)
}

// deleteConversation removes the messages and then the conversation in one
// transaction.
func (s *adminService) deleteConversation(ctx context.Context, conversationId uuid.UUID) (*entity.Conversation, error) {
	const op = "delete conversation"

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Store(op, err)
	}
	defer uow.Rollback()

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if conversation == nil {
		return nil, apperror.NotFound(op)
	}

	removed, err := uow.MessageRepository().DeleteByConversationId(ctx, conversationId)
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if err := uow.ConversationRepository().Delete(ctx, conversationId); err != nil {
		return nil, apperror.Store(op, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Store(op, err)
	}

	s.sessions.InvalidateListings(ctx, conversation.UserId)
	s.metrics.ConversationDeleted(1)
	s.logger.Info("ADMIN", "Conversation deleted", map[string]interface{}{
		"conversation_id":  conversationId.String(),
		"user_id":          conversation.UserId.String(),
		"messages_deleted": removed,
	})

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.New(events.TypeConversationDeleted, map[string]interface{}{
			"conversation_id": conversationId.String(),
			"user_id":         conversation.UserId.String(),
		})); err != nil {
			s.logger.Warn("ADMIN", "Failed to publish delete event", map[string]interface{}{"error": err.Error()})
		}
	}
	return conversation, nil
}

func toAdminConversation(c *entity.Conversation, messageCount int64) dto.AdminConversationResponse {
	return dto.AdminConversationResponse{
		Id:           c.Id,
		UserId:       c.UserId,
		Title:        c.Title,
		Status:       c.Status,
		LastMessage:  c.LastMessage,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: messageCount,
	}
}
