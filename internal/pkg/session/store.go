// internal/pkg/session/store.go
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"rdm-service/internal/domain/user"
)

// Data is the materialization of "current identity": the bearer token plus
// the profile it was issued for.
type Data struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

// Store caches at most one session and writes it through to durable Storage.
// It is an explicit value handed to callers, never a package global, so tests
// can run several simulated sessions in one process.
type Store struct {
	storage Storage
	key     string

	data            *Data
	isAuthenticated bool
}

// NewStore returns a Store bound to a storage key. An empty key gets a fresh
// random one, i.e. a brand new session.
func NewStore(storage Storage, key string) *Store {
	if key == "" {
		key = "session:" + uuid.New().String()
	}
	return &Store{storage: storage, key: key}
}

// Key returns the durable-storage key this store reads and writes.
func (s *Store) Key() string { return s.key }

// SetAuth replaces the cached session and persists it.
func (s *Store) SetAuth(ctx context.Context, token string, identity user.Identity) error {
	data := &Data{Token: token, User: identity}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		return err
	}
	s.data = data
	s.isAuthenticated = true
	return nil
}

// ClearAuth empties the cache and removes the persisted session.
func (s *Store) ClearAuth(ctx context.Context) error {
	s.data = nil
	s.isAuthenticated = false
	return s.storage.Remove(ctx, s.key)
}

// LoadFromStorage rehydrates the cache from durable storage. Corrupt or
// missing payloads leave the store unauthenticated instead of failing the
// caller; a corrupt payload is also removed so it is not re-read forever.
func (s *Store) LoadFromStorage(ctx context.Context) error {
	raw, err := s.storage.Get(ctx, s.key)
	if err == ErrNotFound {
		s.data = nil
		s.isAuthenticated = false
		return nil
	}
	if err != nil {
		return err
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil || data.Token == "" {
		s.data = nil
		s.isAuthenticated = false
		_ = s.storage.Remove(ctx, s.key)
		return nil
	}

	s.data = &data
	s.isAuthenticated = true
	return nil
}

// IsAuthenticated reports whether a session is cached.
func (s *Store) IsAuthenticated() bool { return s.isAuthenticated }

// Token returns the cached bearer token, or empty when unauthenticated.
func (s *Store) Token() string {
	if s.data == nil {
		return ""
	}
	return s.data.Token
}

// User returns the cached identity, or nil when unauthenticated.
func (s *Store) User() *user.Identity {
	if s.data == nil {
		return nil
	}
	u := s.data.User
	return &u
}

// IsAdmin reports whether the cached identity is an admin.
func (s *Store) IsAdmin() bool { return s.hasRole(user.RoleAdmin) }

// IsOperator reports whether the cached identity is an operator.
func (s *Store) IsOperator() bool { return s.hasRole(user.RoleOperator) }

// IsViewer reports whether the cached identity is a viewer.
func (s *Store) IsViewer() bool { return s.hasRole(user.RoleViewer) }

func (s *Store) hasRole(role user.Role) bool {
	return s.data != nil && s.data.User.Role == role
}
