// Package session provides the opaque-token session store backing the
// identity gate.
package session

import (
	"context"

	"github.com/medialuna/farmshop/internal/auth"
)

// Store holds identities keyed by opaque session tokens. Entries expire after
// the TTL configured on the implementation.
type Store interface {
	// Create stores the identity under a fresh opaque token and returns it.
	Create(ctx context.Context, identity auth.Identity) (string, error)

	// Get resolves a token to its identity.
	// Returns ErrSessionNotFound if the token is unknown or expired.
	Get(ctx context.Context, token string) (*auth.Identity, error)

	// Delete removes a session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}
