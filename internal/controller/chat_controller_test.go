package controller

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"essay-coach-be/internal/dto"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/internal/pkg/serverutils"
	"essay-coach-be/internal/service"
	"essay-coach-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

// stubChatService implements only what the tests call.
type stubChatService struct {
	service.IChatService
	sendErr  error
	lastSent service.Principal
	loaded   uuid.UUID
}

func (s *stubChatService) SendMessage(_ context.Context, p service.Principal, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	s.lastSent = p
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &dto.SendMessageResponse{
		ConversationId: uuid.New(),
		Mode:           "coaching",
		Sent:           dto.ChatMessageResponse{Role: "user", Content: req.Prompt},
		Reply:          dto.ChatMessageResponse{Role: "assistant", Content: "ok"},
	}, nil
}

func (s *stubChatService) LoadConversation(_ context.Context, _ service.Principal, id uuid.UUID) (*dto.SessionResponse, error) {
	s.loaded = id
	return &dto.SessionResponse{ConversationId: &id}, nil
}

func newChatApp(svc service.IChatService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler(logger.NewNopLogger())})
	noLimit := func(ctx *fiber.Ctx) error { return ctx.Next() }
	NewChatController(svc, serverutils.JwtMiddleware(testSecret), noLimit).RegisterRoutes(app.Group("/api"))
	return app
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"email":   "student@example.com",
		"role":    "user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestSendMessageRoute(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		body       string
		auth       bool
		sendErr    error
		wantStatus int
	}{
		{"ok", `{"prompt":"help me outline"}`, true, nil, 200},
		{"no token", `{"prompt":"help me outline"}`, false, nil, 401},
		{"missing prompt", `{}`, true, nil, 400},
		{"malformed body", `{"prompt":`, true, nil, 400},
		{"turn in progress", `{"prompt":"again"}`, true, apperror.ErrTurnInProgress, 409},
		{"model down", `{"prompt":"again"}`, true, apperror.Model("call model", context.DeadlineExceeded), 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubChatService{sendErr: tt.sendErr}
			app := newChatApp(svc)

			req := httptest.NewRequest("POST", "/api/chat/messages", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth {
				req.Header.Set("Authorization", bearer(t, userID))
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == 200 {
				assert.Equal(t, userID, svc.lastSent.UserID)
				assert.Equal(t, "student@example.com", svc.lastSent.Email)

				var body serverutils.Response[dto.SendMessageResponse]
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.True(t, body.Success)
				assert.Equal(t, "help me outline", body.Data.Sent.Content)
			}
		})
	}
}

func TestLoadConversationRoute(t *testing.T) {
	svc := &stubChatService{}
	app := newChatApp(svc)
	auth := bearer(t, uuid.New())

	req := httptest.NewRequest("POST", "/api/chat/conversations/not-a-uuid/load", nil)
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	id := uuid.New()
	req = httptest.NewRequest("POST", "/api/chat/conversations/"+id.String()+"/load", nil)
	req.Header.Set("Authorization", auth)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, id, svc.loaded)
}
