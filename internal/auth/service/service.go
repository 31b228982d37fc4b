// Package service provides login, registration and session lifecycle logic.
package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/medialuna/farmshop/internal/auth"
	aerrors "github.com/medialuna/farmshop/internal/auth/errors"
	"github.com/medialuna/farmshop/internal/auth/session"
	"github.com/medialuna/farmshop/internal/auth/store"
)

// AuthService defines the methods for account and session management.
type AuthService interface {
	// Register creates a new user account. Returns ErrEmailRegistered if the
	// email is already in use, ErrInvalidRole for unknown roles.
	Register(ctx context.Context, user RegisterDto) (*auth.Identity, error)

	// Login verifies credentials and opens a session. Returns the identity
	// and the opaque session token, or ErrInvalidCredentials.
	Login(ctx context.Context, credentials LoginDto) (*auth.Identity, string, error)

	// Logout closes the session for the given token. Idempotent.
	Logout(ctx context.Context, token string) error

	// Identify resolves a session token to an identity.
	// Returns ErrSessionNotFound if the token is unknown or expired.
	Identify(ctx context.Context, token string) (*auth.Identity, error)
}

// Service implements AuthService on a user store and a session store.
type Service struct {
	users    store.UserStore
	sessions session.Store
}

// NewService creates a new instance of AuthService.
func NewService(users store.UserStore, sessions session.Store) *Service {
	return &Service{users: users, sessions: sessions}
}

// RegisterDto represents the data transfer object for creating an account.
// The original site required only four password characters; keep that floor.
type RegisterDto struct {
	Name     string `json:"name"     validate:"required,min=3"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
	Role     string `json:"role"     validate:"omitempty,oneof=admin employee"`
}

// LoginDto represents the data transfer object for a login attempt.
type LoginDto struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new user account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, user RegisterDto) (*auth.Identity, error) {
	role := auth.Role(user.Role)
	if user.Role == "" {
		role = auth.RoleEmployee
	}
	if !role.Valid() {
		return nil, aerrors.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.users.Create(ctx, user.Name, user.Email, string(hash), role)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{UserID: created.ID, Name: created.Name, Email: created.Email, Role: created.Role}, nil
}

// Login verifies the password against the stored bcrypt hash and opens a
// session. Unknown users and wrong passwords both map to
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, credentials LoginDto) (*auth.Identity, string, error) {
	user, err := s.users.FindByEmail(ctx, credentials.Email)
	if err != nil {
		if errors.Is(err, aerrors.ErrUserNotFound) {
			return nil, "", aerrors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credentials.Password)); err != nil {
		return nil, "", aerrors.ErrInvalidCredentials
	}

	identity := auth.Identity{UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
	token, err := s.sessions.Create(ctx, identity)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open session: %w", err)
	}
	return &identity, token, nil
}

// Logout closes the session for the given token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Identify resolves a session token to an identity.
func (s *Service) Identify(ctx context.Context, token string) (*auth.Identity, error) {
	return s.sessions.Get(ctx, token)
}
