package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/medialuna/farmshop/internal/auth"
	aerrors "github.com/medialuna/farmshop/internal/auth/errors"
)

const keyPrefix = "session:"

// RedisStore implements Store on Redis, letting sessions survive restarts
// and expire server-side via key TTLs.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a session store backed by the given Redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create stores the identity under a fresh opaque token with the store's TTL.
func (s *RedisStore) Create(ctx context.Context, identity auth.Identity) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Get resolves a token to its identity.
// Returns ErrSessionNotFound if the token is unknown or expired.
func (s *RedisStore) Get(ctx context.Context, token string) (*auth.Identity, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, aerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var identity auth.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	return &identity, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
