package service

import (
	"context"
	"time"

	"essay-coach-be/internal/dto"
	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/pkg/coach/session"
	"essay-coach-be/pkg/identity"

	"github.com/golang-jwt/jwt/v5"
)

type IAuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, p Principal) error
}

type authService struct {
	identity  identity.Provider
	sessions  *session.Manager
	jwtSecret string
	tokenTTL  time.Duration
	logger    logger.ILogger
}

func NewAuthService(provider identity.Provider, sessions *session.Manager, jwtSecret string, tokenTTL time.Duration, log logger.ILogger) IAuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		identity:  provider,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    log,
	}
}

// Login verifies credentials, issues an access token and opens a fresh
// session with the greeting.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.identity.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("AUTH", "Login failed", map[string]interface{}{"email": identity.NormalizeEmail(req.Email)})
		return nil, err
	}

	claims := jwt.MapClaims{
		"user_id": user.UserID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, err
	}

	s.sessions.Create(user.UserID, user.Email, string(user.Role))
	s.logger.Info("AUTH", "User logged in", map[string]interface{}{"user_id": user.UserID.String()})

	return &dto.LoginResponse{
		AccessToken: signedToken,
		User: dto.UserResponse{
			Id:    user.UserID,
			Email: user.Email,
			Role:  string(user.Role),
		},
	}, nil
}

func (s *authService) Logout(ctx context.Context, p Principal) error {
	s.sessions.Destroy(p.UserID)
	s.logger.Info("AUTH", "User logged out", map[string]interface{}{"user_id": p.UserID.String()})
	return nil
}
