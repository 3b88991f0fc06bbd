// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rdm-service/internal/domain/user"
	xerrors "rdm-service/internal/pkg/errors"
)

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, role, is_active, created_at, updated_at, last_login`

func scanIdentity(row pgx.Row) (*user.Identity, error) {
	var u user.Identity
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// FindByUsername retrieves an identity by exact, case-sensitive username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.Identity, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanIdentity(r.db.QueryRow(ctx, query, username))
}

// FindCredentialsByUsername retrieves an identity together with its stored
// password hash. The hash never travels further up than the auth service.
func (r *UserRepository) FindCredentialsByUsername(ctx context.Context, username string) (*user.Credentials, error) {
	query := `
		SELECT ` + userColumns + `, password_hash
		FROM users
		WHERE username = $1
	`

	var c user.Credentials
	err := r.db.QueryRow(ctx, query, username).Scan(
		&c.Identity.ID, &c.Identity.Username, &c.Identity.Email, &c.Identity.Role,
		&c.Identity.IsActive, &c.Identity.CreatedAt, &c.Identity.UpdatedAt,
		&c.Identity.LastLogin, &c.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credentials: %w", err)
	}
	return &c, nil
}

// FindByID retrieves an identity by ID.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*user.Identity, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanIdentity(r.db.QueryRow(ctx, query, id))
}

// Create inserts a new identity inside the given transaction so the caller
// can commit it atomically with its audit entry. Duplicate username or email
// surfaces as xerrors.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, tx pgx.Tx, identity *user.Identity, passwordHash string) error {
	query := `
		INSERT INTO users (username, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		identity.Username, identity.Email, passwordHash, identity.Role, identity.IsActive,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return xerrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the identity's last successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, ts time.Time) error {
	query := `UPDATE users SET last_login = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, ts); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of req to the identity.
func (r *UserRepository) Update(ctx context.Context, id int, req *user.UpdateUserRequest, passwordHash *string) (*user.Identity, error) {
	query := `
		UPDATE users SET
			username      = COALESCE($2, username),
			email         = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			role          = COALESCE($5, role),
			is_active     = COALESCE($6, is_active),
			updated_at    = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanIdentity(r.db.QueryRow(ctx, query,
		id, req.Username, req.Email, passwordHash, req.Role, req.IsActive))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, xerrors.ErrConflict
	}
	return u, err
}

// SetActive flips the active flag.
func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set user active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// List returns one page of identities ordered by username.
func (r *UserRepository) List(ctx context.Context, page, size int) ([]*user.Identity, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY username
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*user.Identity
	for rows.Next() {
		var u user.Identity
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.IsActive,
			&u.CreatedAt, &u.UpdatedAt, &u.LastLogin); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, total, rows.Err()
}
