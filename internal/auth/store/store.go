// Package store provides an interface for user account storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medialuna/farmshop/internal/auth"
)

// User is a staff account that can log in to the shop.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         auth.Role
	CreatedAt    time.Time
}

// UserStore is an interface for user account storage operations.
type UserStore interface {
	// FindByEmail retrieves a user by email.
	// Returns ErrUserNotFound if no user carries the email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create adds a new user account.
	// Returns ErrEmailRegistered if the email is already in use.
	Create(ctx context.Context, name, email, passwordHash string, role auth.Role) (*User, error)
}
