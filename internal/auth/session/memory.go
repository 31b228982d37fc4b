package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medialuna/farmshop/internal/auth"
	aerrors "github.com/medialuna/farmshop/internal/auth/errors"
)

type entry struct {
	identity  auth.Identity
	expiresAt time.Time
}

// MemoryStore is an in-process Store used by tests and single-node setups.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, identity auth.Identity) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = entry{identity: identity, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*auth.Identity, error) {
	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, aerrors.ErrSessionNotFound
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, aerrors.ErrSessionNotFound
	}
	identity := e.identity
	return &identity, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
