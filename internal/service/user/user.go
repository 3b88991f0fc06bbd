// internal/service/user/user.go
package user

import (
	"context"
	"errors"
	"net/mail"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/domain/user"
	xerrors "rdm-service/internal/pkg/errors"
)

// Repository is the slice of user persistence the service needs. Create runs
// inside a caller-supplied transaction so provisioning can commit the user
// row and its audit entry atomically.
type Repository interface {
	FindByID(ctx context.Context, id int) (*user.Identity, error)
	FindByUsername(ctx context.Context, username string) (*user.Identity, error)
	Create(ctx context.Context, tx pgx.Tx, identity *user.Identity, passwordHash string) error
	Update(ctx context.Context, id int, req *user.UpdateUserRequest, passwordHash *string) (*user.Identity, error)
	SetActive(ctx context.Context, id int, active bool) error
	List(ctx context.Context, page, size int) ([]*user.Identity, int, error)
}

// AuditRepository is the transactional slice of the audit trail.
type AuditRepository interface {
	InsertTx(ctx context.Context, tx pgx.Tx, e *audit.Entry) error
}

// TxBeginner opens database transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
}

// AuditRecorder appends to the audit trail, best effort.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry)
}

type Service struct {
	repo     Repository
	auditTx  AuditRepository
	db       TxBeginner
	auditor  AuditRecorder
	logger   *zap.Logger
}

func NewService(repo Repository, auditTx AuditRepository, db TxBeginner, auditor AuditRecorder, logger *zap.Logger) *Service {
	return &Service{repo: repo, auditTx: auditTx, db: db, auditor: auditor, logger: logger}
}

func validateCreate(req *user.CreateUserRequest) error {
	if req.Username == "" || len(req.Password) < 8 {
		return xerrors.ErrInvalidInput
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return xerrors.ErrInvalidInput
	}
	if !req.Role.Valid() {
		return xerrors.ErrInvalidInput
	}
	return nil
}

// Create provisions an account. The user row and the audit entry land in one
// transaction; a duplicate username or email is rejected as a conflict, never
// merged into the existing account.
func (s *Service) Create(ctx context.Context, actor *user.Identity, req *user.CreateUserRequest) (*user.Identity, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to hash password")
	}

	identity := &user.Identity{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: true,
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to begin tx")
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Create(ctx, tx, identity, string(hash)); err != nil {
		return nil, err
	}

	entry := &audit.Entry{
		UserID:       &actor.ID,
		Action:       audit.ActionCreate,
		ResourceType: "user",
		ResourceID:   &identity.ID,
		Details:      map[string]interface{}{"username": identity.Username, "role": string(identity.Role)},
	}
	if err := s.auditTx.InsertTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, xerrors.Wrap(err, "failed to commit user creation")
	}

	s.logger.Info("user provisioned",
		zap.Int("user_id", identity.ID),
		zap.String("role", string(identity.Role)),
		zap.Int("actor_id", actor.ID))
	return identity, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int) (*user.Identity, error) {
	return s.repo.FindByID(ctx, id)
}

// Update patches an account with the non-nil fields of req.
func (s *Service) Update(ctx context.Context, actor *user.Identity, id int, req *user.UpdateUserRequest) (*user.Identity, error) {
	if req.Role != nil && !req.Role.Valid() {
		return nil, xerrors.ErrInvalidInput
	}
	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return nil, xerrors.ErrInvalidInput
		}
	}

	var hash *string
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return nil, xerrors.ErrInvalidInput
		}
		h, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, xerrors.Wrap(err, "failed to hash password")
		}
		hs := string(h)
		hash = &hs
	}

	identity, err := s.repo.Update(ctx, id, req, hash)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &actor.ID,
		Action:       audit.ActionUpdate,
		ResourceType: "user",
		ResourceID:   &id,
	})
	return identity, nil
}

// Deactivate disables an account. Admins cannot deactivate themselves; that
// would strand a deployment with no administrator.
func (s *Service) Deactivate(ctx context.Context, actor *user.Identity, id int) error {
	if actor.ID == id {
		return xerrors.ErrInvalidInput
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &actor.ID,
		Action:       audit.ActionDelete,
		ResourceType: "user",
		ResourceID:   &id,
	})
	return nil
}

// List returns one page of accounts.
func (s *Service) List(ctx context.Context, page, size int) ([]*user.Identity, int, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return s.repo.List(ctx, page, size)
}

// EnsureAdminExists provisions the bootstrap administrator on startup when
// the configured username is absent. A later duplicate is left alone.
func (s *Service) EnsureAdminExists(ctx context.Context, username, email, password string) error {
	if username == "" || password == "" {
		return errors.New("admin bootstrap requires username and password")
	}

	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		s.logger.Info("admin account already exists, skipping bootstrap")
		return nil
	}
	if !errors.Is(err, xerrors.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return xerrors.Wrap(err, "failed to hash admin password")
	}

	identity := &user.Identity{
		Username: username,
		Email:    email,
		Role:     user.RoleAdmin,
		IsActive: true,
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return xerrors.Wrap(err, "failed to begin tx")
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Create(ctx, tx, identity, string(hash)); err != nil {
		return err
	}
	entry := &audit.Entry{
		Action:       audit.ActionCreate,
		ResourceType: "user",
		ResourceID:   &identity.ID,
		Details:      map[string]interface{}{"username": username, "bootstrap": true},
	}
	if err := s.auditTx.InsertTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return xerrors.Wrap(err, "failed to commit admin bootstrap")
	}

	s.logger.Info("bootstrap admin created", zap.String("username", username))
	return nil
}
