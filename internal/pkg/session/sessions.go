// internal/pkg/session/sessions.go
package session

import (
	"context"
	"fmt"

	"rdm-service/internal/domain/user"
)

// Key builds the storage key for one issued session.
func Key(userID int, jti string) string {
	return fmt.Sprintf("session:%d:%s", userID, jti)
}

// Sessions tracks every issued token in durable storage, one Store per
// (user, jti) pair. Dropping an entry revokes the token before it expires.
type Sessions struct {
	storage Storage
}

func NewSessions(storage Storage) *Sessions {
	return &Sessions{storage: storage}
}

// Put records a freshly issued session.
func (s *Sessions) Put(ctx context.Context, userID int, jti, token string, identity user.Identity) error {
	return NewStore(s.storage, Key(userID, jti)).SetAuth(ctx, token, identity)
}

// Validate reports whether the session is still live. A missing or corrupt
// entry reads as revoked, not as an error.
func (s *Sessions) Validate(ctx context.Context, userID int, jti string) (bool, error) {
	st := NewStore(s.storage, Key(userID, jti))
	if err := st.LoadFromStorage(ctx); err != nil {
		return false, err
	}
	return st.IsAuthenticated(), nil
}

// Drop revokes a session.
func (s *Sessions) Drop(ctx context.Context, userID int, jti string) error {
	return NewStore(s.storage, Key(userID, jti)).ClearAuth(ctx)
}
