package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"essay-coach-be/internal/dto"
	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/pkg/apperror"
	"essay-coach-be/pkg/coach/prompt"
	"essay-coach-be/pkg/coach/session"
	"essay-coach-be/pkg/events"
	"essay-coach-be/pkg/llm"
	"essay-coach-be/pkg/metrics"
	"essay-coach-be/pkg/store"
	"essay-coach-be/pkg/timefmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Principal is the authenticated caller as read from the access token.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type IChatService interface {
	GetSession(ctx context.Context, p Principal) (*dto.SessionResponse, error)
	NewSession(ctx context.Context, p Principal) (*dto.SessionResponse, error)
	SendMessage(ctx context.Context, p Principal, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	LoadConversation(ctx context.Context, p Principal, conversationId uuid.UUID) (*dto.SessionResponse, error)
	ListConversations(ctx context.Context, p Principal) (*dto.ConversationListResponse, error)
	NextPage(ctx context.Context, p Principal) (*dto.ConversationListResponse, error)
	PreviousPage(ctx context.Context, p Principal) (*dto.ConversationListResponse, error)
	LatestPage(ctx context.Context, p Principal) (*dto.ConversationListResponse, error)
}

type ChatOptions struct {
	Model   string
	Timeout time.Duration
}

type chatService struct {
	sessions  *session.Manager
	assembler *prompt.Assembler
	provider  llm.LLMProvider
	clock     *timefmt.Formatter
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    logger.ILogger
	llmLogger logger.ILogger
	tracer    trace.Tracer
	opts      ChatOptions
	now       func() time.Time
}

func NewChatService(
	sessions *session.Manager,
	assembler *prompt.Assembler,
	provider llm.LLMProvider,
	clock *timefmt.Formatter,
	publisher events.Publisher,
	m *metrics.Metrics,
	log logger.ILogger,
	llmLog logger.ILogger,
	opts ChatOptions,
) IChatService {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &chatService{
		sessions:  sessions,
		assembler: assembler,
		provider:  provider,
		clock:     clock,
		publisher: publisher,
		metrics:   m,
		logger:    log,
		llmLogger: llmLog,
		tracer:    otel.Tracer("essay-coach-be/chat"),
		opts:      opts,
		now:       time.Now,
	}
}

func (s *chatService) session(p Principal) *store.Session {
	return s.sessions.Ensure(p.UserID, p.Email, p.Role)
}

func (s *chatService) GetSession(ctx context.Context, p Principal) (*dto.SessionResponse, error) {
	return s.toSessionResponse(s.session(p).Snapshot()), nil
}

func (s *chatService) NewSession(ctx context.Context, p Principal) (*dto.SessionResponse, error) {
	view := s.sessions.StartNewSession(s.session(p))
	return s.toSessionResponse(view), nil
}

func (s *chatService) LoadConversation(ctx context.Context, p Principal, conversationId uuid.UUID) (*dto.SessionResponse, error) {
	view, err := s.sessions.LoadConversation(ctx, s.session(p), conversationId)
	if err != nil {
		return nil, err
	}
	return s.toSessionResponse(view), nil
}

// SendMessage runs one turn: assemble, call the model, finalize, persist.
// Any failure leaves both the session log and the store untouched.
func (s *chatService) SendMessage(ctx context.Context, p Principal, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	text := strings.TrimSpace(req.Prompt)
	if text == "" {
		return nil, apperror.Validation("send message", errors.New("prompt must not be empty"))
	}

	sess := s.session(p)
	ticket, err := s.sessions.BeginTurn(sess)
	if err != nil {
		return nil, err
	}
	defer s.sessions.EndTurn(sess, ticket)

	history := make([]llm.Message, 0, len(ticket.History))
	for _, m := range ticket.History {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	built := s.assembler.Assemble(history, text)
	mode := string(built.Mode)

	ctx, span := s.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("chat.mode", mode),
		attribute.Int("chat.max_tokens", built.Budget.MaxTokens),
		attribute.Int("chat.context_messages", len(built.Messages)),
	))
	defer span.End()

	sentAt := s.now()
	reply, latency, err := s.callModel(ctx, built)
	if err != nil {
		outcome := "model_error"
		if errors.Is(err, apperror.ErrTurnAbandoned) {
			outcome = "abandoned"
		}
		s.metrics.ObserveTurn(mode, outcome, latency)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	if ctx.Err() != nil || !s.sessions.Current(sess, ticket) {
		s.metrics.ObserveTurn(mode, "abandoned", latency)
		s.logger.Info("CHAT", "Discarded reply for abandoned turn", map[string]interface{}{"user_id": p.UserID.String()})
		return nil, apperror.ErrTurnAbandoned
	}

	final := s.assembler.Finalize(built.Mode, reply)
	conversation, err := s.sessions.AppendTurn(ctx, sess, ticket, session.Turn{
		UserText:  text,
		ReplyText: final,
		SentAt:    sentAt,
		RepliedAt: s.now(),
		Meta: map[string]interface{}{
			"mode":       mode,
			"max_tokens": built.Budget.MaxTokens,
			"provider":   s.provider.Name(),
			"latency_ms": latency.Milliseconds(),
		},
	})
	if err != nil {
		s.metrics.ObserveTurn(mode, "store_error", latency)
		span.RecordError(err)
		span.SetStatus(codes.Error, "store_error")
		s.logger.Error("CHAT", "Failed to persist turn", map[string]interface{}{
			"user_id": p.UserID.String(),
			"error":   err.Error(),
		})
		return nil, err
	}

	s.metrics.ObserveTurn(mode, "ok", latency)
	span.SetAttributes(attribute.String("chat.conversation_id", conversation.Id.String()))

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.New(events.TypeTurnCompleted, map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"user_id":         p.UserID.String(),
			"mode":            mode,
			"latency_ms":      latency.Milliseconds(),
		})); err != nil {
			s.logger.Warn("CHAT", "Failed to publish turn event", map[string]interface{}{"error": err.Error()})
		}
	}

	view := sess.Snapshot()
	n := len(view.Messages)
	return &dto.SendMessageResponse{
		ConversationId: conversation.Id,
		Title:          conversation.Title,
		Mode:           mode,
		Sent:           s.toMessageResponse(view.Messages[n-2]),
		Reply:          s.toMessageResponse(view.Messages[n-1]),
	}, nil
}

// callModel bounds the model call by the configured timeout. A caller that
// went away is reported as an abandoned turn, everything else as a model
// failure.
func (s *chatService) callModel(ctx context.Context, built prompt.Prompt) (string, time.Duration, error) {
	const op = "call model"

	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	options := []llm.Option{
		llm.WithTemperature(0),
		llm.WithMaxTokens(built.Budget.MaxTokens),
	}
	if s.opts.Model != "" {
		options = append(options, llm.WithModel(s.opts.Model))
	}

	start := time.Now()
	reply, err := s.provider.Chat(callCtx, built.Messages, options...)
	latency := time.Since(start)

	details := map[string]interface{}{
		"provider":   s.provider.Name(),
		"mode":       string(built.Mode),
		"max_tokens": built.Budget.MaxTokens,
		"messages":   len(built.Messages),
		"latency_ms": latency.Milliseconds(),
	}

	switch {
	case err != nil && ctx.Err() != nil:
		details["outcome"] = "abandoned"
		s.llmLogger.Info("LLM", "Model call abandoned", details)
		return "", latency, apperror.ErrTurnAbandoned
	case err != nil:
		details["outcome"] = "error"
		details["error"] = err.Error()
		s.llmLogger.Error("LLM", "Model call failed", details)
		return "", latency, apperror.Model(op, err)
	case strings.TrimSpace(reply) == "":
		details["outcome"] = "empty"
		s.llmLogger.Error("LLM", "Model returned an empty reply", details)
		return "", latency, apperror.Model(op, errors.New("empty reply"))
	}

	details["outcome"] = "ok"
	details["reply_chars"] = len(reply)
	s.llmLogger.Info("LLM", "Model call completed", details)
	return reply, latency, nil
}

func (s *chatService) ListConversations(ctx context.Context, p Principal) (*dto.ConversationListResponse, error) {
	page, err := s.sessions.CurrentPage(ctx, s.session(p))
	if err != nil {
		return nil, err
	}
	return toListResponse(page), nil
}

func (s *chatService) NextPage(ctx context.Context, p Principal) (*dto.ConversationListResponse, error) {
	page, err := s.sessions.NextPage(ctx, s.session(p))
	if err != nil {
		return nil, err
	}
	return toListResponse(page), nil
}

func (s *chatService) PreviousPage(ctx context.Context, p Principal) (*dto.ConversationListResponse, error) {
	page, err := s.sessions.PreviousPage(ctx, s.session(p))
	if err != nil {
		return nil, err
	}
	return toListResponse(page), nil
}

func (s *chatService) LatestPage(ctx context.Context, p Principal) (*dto.ConversationListResponse, error) {
	page, err := s.sessions.LatestPage(ctx, s.session(p))
	if err != nil {
		return nil, err
	}
	return toListResponse(page), nil
}

func (s *chatService) toMessageResponse(m store.Message) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Display:   s.clock.Display(m.Timestamp),
	}
}

func (s *chatService) toSessionResponse(view store.View) *dto.SessionResponse {
	messages := make([]dto.ChatMessageResponse, 0, len(view.Messages))
	for _, m := range view.Messages {
		messages = append(messages, s.toMessageResponse(m))
	}
	return &dto.SessionResponse{
		ConversationId: view.ConversationID,
		Messages:       messages,
		Page:           view.Page,
	}
}

func toListResponse(page *entity.ConversationPage) *dto.ConversationListResponse {
	items := make([]dto.ConversationSummaryResponse, 0, len(page.Items))
	for _, c := range page.Items {
		items = append(items, dto.ConversationSummaryResponse{
			Id:          c.Id,
			Title:       c.Title,
			Status:      c.Status,
			LastMessage: c.LastMessage,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	return &dto.ConversationListResponse{
		Items:       items,
		Page:        page.Page,
		Size:        page.Size,
		Total:       page.Total,
		HasMore:     page.HasMore,
		HasPrevious: page.Page > 0,
	}
}
