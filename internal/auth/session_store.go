package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/cache"
)

// SessionStoreInterface defines the interface for session token caching.
type SessionStoreInterface interface {
	Store(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// SessionStore mirrors issued session tokens into the cache under
// token:{userID}. The entry is purely an eviction handle: deleting it is how
// the domain layer forces re-authentication when a user's email or role
// changes, or when the user is deleted. Token verification itself never
// consults the cache.
type SessionStore struct {
	cache cache.Store
}

var _ SessionStoreInterface = (*SessionStore)(nil)

// NewSessionStore creates a new session store.
func NewSessionStore(cache cache.Store) *SessionStore {
	return &SessionStore{cache: cache}
}

// Store caches the session token for a user with TTL.
func (s *SessionStore) Store(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	return s.cache.Set(ctx, cache.TokenKey(userID), []byte(token), ttl)
}

// Invalidate drops the cached session token for a user.
func (s *SessionStore) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Delete(ctx, cache.TokenKey(userID))
}
