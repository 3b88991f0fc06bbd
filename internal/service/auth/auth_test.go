package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/domain/user"
	xerrors "rdm-service/internal/pkg/errors"
	"rdm-service/internal/pkg/jwt"
)

type fakeUserRepo struct {
	byUsername map[string]*user.Credentials
	byID       map[int]*user.Identity
	lastLogin  map[int]time.Time
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: make(map[string]*user.Credentials),
		byID:       make(map[int]*user.Identity),
		lastLogin:  make(map[int]time.Time),
	}
}

func (f *fakeUserRepo) add(identity user.Identity, password string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	f.byUsername[identity.Username] = &user.Credentials{Identity: identity, PasswordHash: string(hash)}
	stored := identity
	f.byID[identity.ID] = &stored
}

func (f *fakeUserRepo) FindCredentialsByUsername(_ context.Context, username string) (*user.Credentials, error) {
	c, ok := f.byUsername[username]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id int) (*user.Identity, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id int, ts time.Time) error {
	f.lastLogin[id] = ts
	return nil
}

type fakeTokens struct {
	token   string
	jti     string
	fail    bool
	claims  *jwt.Claims
	lastGen *user.Identity
}

func (f *fakeTokens) Generate(identity *user.Identity) (string, string, error) {
	if f.fail {
		return "", "", errors.New("signing failed")
	}
	f.lastGen = identity
	return f.token, f.jti, nil
}

func (f *fakeTokens) Verify(token string) (*jwt.Claims, error) {
	if f.claims == nil || token != f.token {
		return nil, xerrors.ErrTokenMalformed
	}
	return f.claims, nil
}

type fakeLimiter struct {
	limited bool
	resets  int
}

func (f *fakeLimiter) CheckLoginAttempt(_ context.Context, _, _ string) error {
	if f.limited {
		return xerrors.ErrRateLimited
	}
	return nil
}

func (f *fakeLimiter) ResetLoginAttempts(_ context.Context, _, _ string) error {
	f.resets++
	return nil
}

type recordingAuditor struct {
	entries []*audit.Entry
}

func (r *recordingAuditor) Record(_ context.Context, e *audit.Entry) {
	r.entries = append(r.entries, e)
}

// fakeSessions tracks live sessions by user+jti, like the Redis-backed store.
type fakeSessions struct {
	live map[string]bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{live: make(map[string]bool)}
}

func sessKey(userID int, jti string) string {
	return fmt.Sprintf("%d:%s", userID, jti)
}

func (f *fakeSessions) Put(_ context.Context, userID int, jti, _ string, _ user.Identity) error {
	f.live[sessKey(userID, jti)] = true
	return nil
}

func (f *fakeSessions) Validate(_ context.Context, userID int, jti string) (bool, error) {
	return f.live[sessKey(userID, jti)], nil
}

func (f *fakeSessions) Drop(_ context.Context, userID int, jti string) error {
	delete(f.live, sessKey(userID, jti))
	return nil
}

func newTestService(repo *fakeUserRepo, tokens *fakeTokens, limiter *fakeLimiter, auditor *recordingAuditor, sessions SessionStore) *Service {
	return NewService(repo, tokens, limiter, auditor, sessions, zap.NewNop())
}

func TestLoginSuccess(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(user.Identity{ID: 1, Username: "alice", Role: user.RoleAdmin, IsActive: true}, "correct horse")
	tokens := &fakeTokens{token: "signed-token", jti: "jti-1"}
	limiter := &fakeLimiter{}
	auditor := &recordingAuditor{}
	sessions := newFakeSessions()

	svc := newTestService(repo, tokens, limiter, auditor, sessions)
	resp, err := svc.Login(context.Background(), &user.LoginRequest{
		Username: "alice", Password: "correct horse", IPAddress: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "signed-token" || resp.Type != "Bearer" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.User.ID != 1 {
		t.Errorf("unexpected user: %+v", resp.User)
	}
	if _, ok := repo.lastLogin[1]; !ok {
		t.Error("last login should be stamped")
	}
	if limiter.resets != 1 {
		t.Error("rate limit counter should be reset on success")
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionLogin {
		t.Errorf("expected one login audit entry, got %+v", auditor.entries)
	}
	if live, _ := sessions.Validate(context.Background(), 1, "jti-1"); !live {
		t.Error("login should store the session")
	}
}

// An unknown username and a wrong password must be indistinguishable.
func TestLoginFailuresAreUniform(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(user.Identity{ID: 1, Username: "alice", Role: user.RoleViewer, IsActive: true}, "right")
	repo.add(user.Identity{ID: 2, Username: "mallory", Role: user.RoleViewer, IsActive: false}, "right")

	svc := newTestService(repo, &fakeTokens{token: "t", jti: "j"}, &fakeLimiter{}, &recordingAuditor{}, newFakeSessions())

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "whatever"},
		{"wrong password", "alice", "wrong"},
		{"deactivated account", "mallory", "right"},
		{"empty password", "alice", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), &user.LoginRequest{
				Username: tc.username, Password: tc.password,
			})
			if !errors.Is(err, xerrors.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(user.Identity{ID: 1, Username: "alice", Role: user.RoleViewer, IsActive: true}, "pw-longer")

	svc := newTestService(repo, &fakeTokens{token: "t", jti: "j"}, &fakeLimiter{limited: true}, &recordingAuditor{}, newFakeSessions())
	_, err := svc.Login(context.Background(), &user.LoginRequest{Username: "alice", Password: "pw-longer"})
	if !errors.Is(err, xerrors.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func operatorTokens() *fakeTokens {
	return &fakeTokens{
		token: "good",
		jti:   "jti-5",
		claims: &jwt.Claims{
			UserID: 5, Username: "bob", Role: user.RoleOperator,
			RegisteredClaims: jwtlib.RegisteredClaims{ID: "jti-5"},
		},
	}
}

func TestValidateToken(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(user.Identity{ID: 5, Username: "bob", Role: user.RoleOperator, IsActive: true}, "pw")
	sessions := newFakeSessions()
	sessions.live[sessKey(5, "jti-5")] = true

	svc := newTestService(repo, operatorTokens(), &fakeLimiter{}, &recordingAuditor{}, sessions)

	identity, err := svc.ValidateToken(context.Background(), "good")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity.ID != 5 {
		t.Errorf("unexpected identity: %+v", identity)
	}

	if _, err := svc.ValidateToken(context.Background(), "bad"); !errors.Is(err, xerrors.ErrTokenMalformed) {
		t.Errorf("expected ErrTokenMalformed, got %v", err)
	}
}

// A valid token for a since-deactivated account must stop working.
func TestValidateTokenDeactivatedUser(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(user.Identity{ID: 5, Username: "bob", Role: user.RoleOperator, IsActive: true}, "pw")
	repo.byID[5].IsActive = false
	sessions := newFakeSessions()
	sessions.live[sessKey(5, "jti-5")] = true

	svc := newTestService(repo, operatorTokens(), &fakeLimiter{}, &recordingAuditor{}, sessions)

	if _, err := svc.ValidateToken(context.Background(), "good"); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

// Logout drops the session, so the token stops validating before it expires.
func TestLogoutRevokesSession(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(user.Identity{ID: 5, Username: "bob", Role: user.RoleOperator, IsActive: true}, "long password")
	auditor := &recordingAuditor{}
	sessions := newFakeSessions()

	svc := newTestService(repo, operatorTokens(), &fakeLimiter{}, auditor, sessions)

	resp, err := svc.Login(context.Background(), &user.LoginRequest{Username: "bob", Password: "long password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), resp.Token); err != nil {
		t.Fatalf("token should validate while the session lives: %v", err)
	}

	svc.Logout(context.Background(), &resp.User, resp.Token, "10.0.0.2")
	if _, err := svc.ValidateToken(context.Background(), resp.Token); !errors.Is(err, xerrors.ErrUnauthorized) {
		t.Fatalf("revoked token should read unauthorized, got %v", err)
	}
	if len(auditor.entries) != 2 || auditor.entries[1].Action != audit.ActionLogout {
		t.Errorf("expected login+logout audit entries, got %+v", auditor.entries)
	}
	if auditor.entries[1].IPAddress != "10.0.0.2" {
		t.Error("logout entry should carry the caller IP")
	}
}
