// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "rdm-service/internal/pkg/errors"
)

const (
	maxLoginAttempts = 5
	loginWindow      = 15 * time.Minute
)

// RateLimiter throttles login attempts per (ip, username) pair so one noisy
// source cannot lock an account out for everyone else.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func loginKey(ip, username string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, username)
}

// CheckLoginAttempt counts an attempt and returns ErrRateLimited once the
// window budget is spent. The increment and the expiry travel in one
// pipeline; a counter without an expiry would throttle the pair forever.
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, username string) error {
	key := loginKey(ip, username)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, loginWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to count login attempt: %w", err)
	}
	if incr.Val() > maxLoginAttempts {
		return xerrors.ErrRateLimited
	}
	return nil
}

// ResetLoginAttempts clears the counter after a successful login.
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, username string) error {
	return r.client.Del(ctx, loginKey(ip, username)).Err()
}
