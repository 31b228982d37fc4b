package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medialuna/farmshop/internal/auth"
	aerrors "github.com/medialuna/farmshop/internal/auth/errors"
	"github.com/medialuna/farmshop/internal/auth/session"
	"github.com/medialuna/farmshop/internal/auth/store"
)

// mockUserStore is a mock implementation of the UserStore interface
type mockUserStore struct {
	user  store.User
	error error
}

// Simulate finding a user by email
func (m *mockUserStore) FindByEmail(_ context.Context, _ string) (*store.User, error) {
	if m.error != nil {
		return nil, m.error
	}
	return &m.user, nil
}

// Simulate creating a user
func (m *mockUserStore) Create(_ context.Context, name, email, passwordHash string, role auth.Role) (*store.User, error) {
	if m.error != nil {
		return nil, m.error
	}
	return &store.User{ID: m.user.ID, Name: name, Email: email, PasswordHash: passwordHash, Role: role}, nil
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func Test_AuthService_Register(t *testing.T) {
	mockID := uuid.New()
	testCases := []struct {
		name         string
		mockStore    *mockUserStore
		dto          RegisterDto
		expectedRole auth.Role
		expectError  error
	}{
		{
			name:         "Success - defaults to employee role",
			mockStore:    &mockUserStore{user: store.User{ID: mockID}},
			dto:          RegisterDto{Name: "Marta Ruiz", Email: "marta@example.com", Password: "hunter2"},
			expectedRole: auth.RoleEmployee,
		},
		{
			name:         "Success - explicit admin role",
			mockStore:    &mockUserStore{user: store.User{ID: mockID}},
			dto:          RegisterDto{Name: "Marta Ruiz", Email: "marta@example.com", Password: "hunter2", Role: "admin"},
			expectedRole: auth.RoleAdmin,
		},
		{
			name:        "Error - unknown role",
			mockStore:   &mockUserStore{},
			dto:         RegisterDto{Name: "Marta Ruiz", Email: "marta@example.com", Password: "hunter2", Role: "owner"},
			expectError: aerrors.ErrInvalidRole,
		},
		{
			name:        "Error - email already registered",
			mockStore:   &mockUserStore{error: aerrors.ErrEmailRegistered},
			dto:         RegisterDto{Name: "Marta Ruiz", Email: "marta@example.com", Password: "hunter2"},
			expectError: aerrors.ErrEmailRegistered,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			service := NewService(tc.mockStore, session.NewMemoryStore(time.Hour))
			// when
			identity, err := service.Register(context.Background(), tc.dto)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, identity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedRole, identity.Role)
			assert.Equal(t, tc.dto.Email, identity.Email)
		})
	}
}

func Test_AuthService_Login(t *testing.T) {
	mockID := uuid.New()
	passwordHash := func(t *testing.T) string { return hashOf(t, "hunter2") }
	testCases := []struct {
		name        string
		mockStore   func(t *testing.T) *mockUserStore
		dto         LoginDto
		expectError error
	}{
		{
			name: "Success - session opened",
			mockStore: func(t *testing.T) *mockUserStore {
				return &mockUserStore{user: store.User{
					ID: mockID, Name: "Marta Ruiz", Email: "marta@example.com",
					PasswordHash: passwordHash(t), Role: auth.RoleAdmin,
				}}
			},
			dto: LoginDto{Email: "marta@example.com", Password: "hunter2"},
		},
		{
			name: "Error - wrong password",
			mockStore: func(t *testing.T) *mockUserStore {
				return &mockUserStore{user: store.User{
					ID: mockID, Email: "marta@example.com", PasswordHash: passwordHash(t),
				}}
			},
			dto:         LoginDto{Email: "marta@example.com", Password: "wrong"},
			expectError: aerrors.ErrInvalidCredentials,
		},
		{
			name: "Error - unknown email maps to invalid credentials",
			mockStore: func(t *testing.T) *mockUserStore {
				return &mockUserStore{error: aerrors.ErrUserNotFound}
			},
			dto:         LoginDto{Email: "nobody@example.com", Password: "hunter2"},
			expectError: aerrors.ErrInvalidCredentials,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			sessions := session.NewMemoryStore(time.Hour)
			service := NewService(tc.mockStore(t), sessions)
			// when
			identity, token, err := service.Login(context.Background(), tc.dto)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Nil(t, identity)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, token)
			assert.Equal(t, mockID, identity.UserID)

			// the token must resolve back to the same identity
			resolved, err := service.Identify(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, identity, resolved)
		})
	}
}

func Test_AuthService_Logout(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	service := NewService(&mockUserStore{user: store.User{
		ID: uuid.New(), Email: "marta@example.com", PasswordHash: hashOf(t, "hunter2"),
	}}, sessions)

	_, token, err := service.Login(context.Background(), LoginDto{Email: "marta@example.com", Password: "hunter2"})
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), token))

	_, err = service.Identify(context.Background(), token)
	assert.ErrorIs(t, err, aerrors.ErrSessionNotFound)

	// logging out again is a no-op
	assert.NoError(t, service.Logout(context.Background(), token))
}
