// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/domain/user"
	xerrors "rdm-service/internal/pkg/errors"
	"rdm-service/internal/pkg/jwt"
)

// UserRepository is the slice of user persistence the authenticator needs.
type UserRepository interface {
	FindCredentialsByUsername(ctx context.Context, username string) (*user.Credentials, error)
	FindByID(ctx context.Context, id int) (*user.Identity, error)
	UpdateLastLogin(ctx context.Context, id int, ts time.Time) error
}

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	Generate(identity *user.Identity) (token string, jti string, err error)
	Verify(token string) (*jwt.Claims, error)
}

// RateLimiter throttles login attempts per (ip, username) pair.
type RateLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, username string) error
	ResetLoginAttempts(ctx context.Context, ip, username string) error
}

// AuditRecorder appends to the audit trail, best effort.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry)
}

// SessionStore tracks issued tokens so logout can revoke them before they
// expire. A nil SessionStore makes tokens stateless until expiry.
type SessionStore interface {
	Put(ctx context.Context, userID int, jti, token string, identity user.Identity) error
	Validate(ctx context.Context, userID int, jti string) (bool, error)
	Drop(ctx context.Context, userID int, jti string) error
}

type Service struct {
	users    UserRepository
	tokens   TokenIssuer
	limiter  RateLimiter
	auditor  AuditRecorder
	sessions SessionStore
	logger   *zap.Logger
}

func NewService(users UserRepository, tokens TokenIssuer, limiter RateLimiter, auditor AuditRecorder, sessions SessionStore, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		limiter:  limiter,
		auditor:  auditor,
		sessions: sessions,
		logger:   logger,
	}
}

// dummyHash is a bcrypt hash of a random string, compared against when the
// username does not exist so timing stays comparable.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// verifyCredentials resolves a username/password pair to an identity. Unknown
// username, wrong password and deactivated account all collapse into the same
// ErrInvalidCredentials so responses cannot be used to enumerate accounts.
func (s *Service) verifyCredentials(ctx context.Context, username, password string) (*user.Identity, error) {
	creds, err := s.users.FindCredentialsByUsername(ctx, username)
	if errors.Is(err, xerrors.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, xerrors.ErrInvalidCredentials
	}
	if !creds.Identity.IsActive {
		return nil, xerrors.ErrInvalidCredentials
	}
	return &creds.Identity, nil
}

// Login authenticates the request and returns a fresh bearer token.
func (s *Service) Login(ctx context.Context, req *user.LoginRequest) (*user.LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, xerrors.ErrInvalidCredentials
	}

	if err := s.limiter.CheckLoginAttempt(ctx, req.IPAddress, req.Username); err != nil {
		if errors.Is(err, xerrors.ErrRateLimited) {
			return nil, err
		}
		// A limiter outage must not lock everyone out.
		s.logger.Warn("login rate limiter unavailable", zap.Error(err))
	}

	identity, err := s.verifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	token, jti, err := s.tokens.Generate(identity)
	if err != nil {
		s.logger.Error("failed to issue token", zap.Int("user_id", identity.ID), zap.Error(err))
		return nil, xerrors.ErrInternal
	}

	if s.sessions != nil {
		if err := s.sessions.Put(ctx, identity.ID, jti, token, *identity); err != nil {
			// Validation consults the store, so an unstored token would be
			// dead on arrival. Fail the login instead.
			s.logger.Error("failed to store session", zap.Int("user_id", identity.ID), zap.Error(err))
			return nil, xerrors.ErrInternal
		}
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		s.logger.Warn("failed to stamp last login", zap.Int("user_id", identity.ID), zap.Error(err))
	} else {
		identity.LastLogin = &now
	}

	if err := s.limiter.ResetLoginAttempts(ctx, req.IPAddress, req.Username); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &identity.ID,
		Action:       audit.ActionLogin,
		ResourceType: "user",
		ResourceID:   &identity.ID,
		Details:      map[string]interface{}{"jti": jti, "userAgent": req.UserAgent},
		IPAddress:    req.IPAddress,
	})

	return &user.LoginResponse{
		Token: token,
		Type:  "Bearer",
		User:  *identity,
	}, nil
}

// ValidateToken verifies a bearer token and resolves its identity against
// current state, so deactivation takes effect before the token expires.
func (s *Service) ValidateToken(ctx context.Context, token string) (*user.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		live, err := s.sessions.Validate(ctx, claims.UserID, claims.ID)
		if err != nil {
			return nil, xerrors.Wrap(err, "failed to check session")
		}
		if !live {
			return nil, xerrors.ErrUnauthorized
		}
	}

	identity, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !identity.IsActive {
		return nil, xerrors.ErrUnauthorized
	}
	return identity, nil
}

// Me returns the identity behind an already-authenticated request.
func (s *Service) Me(ctx context.Context, userID int) (*user.Identity, error) {
	identity, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrUnauthorized
	}
	return identity, err
}

// Logout revokes the presented token's session and records the event. The
// audit entry lands even when revocation fails; a token that cannot be
// revoked still dies at expiry.
func (s *Service) Logout(ctx context.Context, identity *user.Identity, token, ip string) {
	if s.sessions != nil && token != "" {
		if claims, err := s.tokens.Verify(token); err == nil {
			if err := s.sessions.Drop(ctx, claims.UserID, claims.ID); err != nil {
				s.logger.Warn("failed to revoke session",
					zap.Int("user_id", claims.UserID), zap.Error(err))
			}
		}
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &identity.ID,
		Action:       audit.ActionLogout,
		ResourceType: "user",
		ResourceID:   &identity.ID,
		IPAddress:    ip,
	})
}
