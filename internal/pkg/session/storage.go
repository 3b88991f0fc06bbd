// internal/pkg/session/storage.go
package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Storage.Get when no value exists for the key.
var ErrNotFound = errors.New("session: key not found")

// Storage is the durable backing store for sessions. The production
// implementation is Redis; tests use an in-memory map.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
