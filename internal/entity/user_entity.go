package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User mirrors an identity provider account for role lookups.
type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash *string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
