package main

import (
	"context"
	"os"
	"time"

	"essay-coach-be/internal/config"
	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/repository/specification"
	"essay-coach-be/internal/repository/unitofwork"
	"essay-coach-be/pkg/database"
	"essay-coach-be/pkg/identity"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Seeds the first administrator from ADMIN_EMAIL and ADMIN_PASSWORD.
func main() {
	cfg := config.Load()

	email := identity.NormalizeEmail(os.Getenv("ADMIN_EMAIL"))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || len(password) < 8 {
		color.Red("Error: ADMIN_EMAIL and ADMIN_PASSWORD (min 8 chars) are required")
		os.Exit(1)
	}

	db, err := database.NewGormDB(database.Options{Driver: cfg.Database.Driver, DSN: cfg.Database.Connection})
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	users := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx).UserRepository()

	existing, err := users.FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		color.Red("Error: lookup failed: %v", err)
		os.Exit(1)
	}
	if existing != nil {
		color.Yellow("Skip: %s already exists (role=%s)", email, existing.Role)
		return
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		color.Red("Error: hashing password: %v", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	admin := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: &hash,
		Role:         entity.UserRoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, admin); err != nil {
		color.Red("Error: creating admin: %v", err)
		os.Exit(1)
	}

	color.Green("Seeded admin %s (%s)", email, admin.Id)
}
