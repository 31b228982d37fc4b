// Package store provides an interface for client-directory storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Client is a purchasing party in the directory. Email is optional but, when
// present, acts as the natural key binding a logged-in user to the client.
type Client struct {
	ID        uuid.UUID
	Name      string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// ClientStore is an interface for client storage operations.
type ClientStore interface {
	// FindAll returns all clients ordered by name ascending.
	FindAll(ctx context.Context) ([]Client, error)

	// FindByID retrieves a single client by its unique identifier.
	// Returns ErrClientNotFound if no client exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)

	// Create adds a new client to the directory.
	// Returns ErrEmailTaken if a non-empty email is already in use.
	Create(ctx context.Context, name, phone, email string) (*Client, error)

	// Update modifies an existing client's details.
	// Returns ErrClientNotFound if no row was affected.
	Update(ctx context.Context, id uuid.UUID, name, phone, email string) (*Client, error)

	// DeleteByID removes a client. Returns ErrClientReferenced (annotated with
	// the referencing sales count) if any sale still references it.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// FindOrCreateByEmail looks a client up by exact email match, creating one
	// with an empty phone and the fallback name when absent. Idempotent.
	FindOrCreateByEmail(ctx context.Context, email, fallbackName string) (*Client, error)
}
