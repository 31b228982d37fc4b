package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medialuna/farmshop/internal/auth"
	aerrors "github.com/medialuna/farmshop/internal/auth/errors"
)

const uniqueViolation = "23505"

// PgStore implements UserStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of UserStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

const userColumns = `id, name, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	return &u, nil
}

// FindByEmail retrieves a user account by email.
// Returns ErrUserNotFound if no user carries the email.
func (p *PgStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := scanUser(p.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, aerrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create adds a new user account.
// Returns ErrEmailRegistered if the email is already in use.
func (p *PgStore) Create(ctx context.Context, name, email, passwordHash string, role auth.Role) (*User, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		name, email, passwordHash, string(role))
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, aerrors.ErrEmailRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
