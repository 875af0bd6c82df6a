// Package identity is the credential boundary. It turns an email and
// password into a verified identity and never exposes why a check failed.
package identity

import (
	"context"
	"strings"

	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/repository/specification"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/pkg/apperror"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   entity.UserRole
}

type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
}

// LocalProvider checks bcrypt hashes stored on the users table.
type LocalProvider struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewLocalProvider(uowFactory unitofwork.RepositoryFactory) *LocalProvider {
	return &LocalProvider{uowFactory: uowFactory}
}

func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	const op = "authenticate"

	uow := p.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, apperror.Store(op, err)
	}
	if user == nil || user.PasswordHash == nil {
		return nil, apperror.Authentication(op)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.Authentication(op)
	}

	return &Identity{UserID: user.Id, Email: user.Email, Role: user.Role}, nil
}

// HashPassword is used when an administrator provisions an account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
