// internal/repository/postgres/permission_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rdm-service/internal/domain/permission"
	xerrors "rdm-service/internal/pkg/errors"
)

type PermissionRepository struct {
	db *pgxpool.Pool
}

func NewPermissionRepository(db *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// FindLevels returns every permission level the user holds on the device,
// through direct grants and through group membership. The guard picks the
// strongest one.
func (r *PermissionRepository) FindLevels(ctx context.Context, userID, deviceID int) ([]permission.Level, error) {
	query := `
		SELECT level FROM device_permissions
		WHERE user_id = $1 AND device_id = $2
		UNION
		SELECT gp.level
		FROM group_device_permissions gp
		JOIN user_groups ug ON ug.group_id = gp.group_id
		WHERE ug.user_id = $1 AND gp.device_id = $2
	`
	rows, err := r.db.Query(ctx, query, userID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var levels []permission.Level
	for rows.Next() {
		var l permission.Level
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// Grant gives a user a direct permission level on a device. A repeated grant
// for the same pair replaces the stored level.
func (r *PermissionRepository) Grant(ctx context.Context, g *permission.Grant) error {
	query := `
		INSERT INTO device_permissions (user_id, device_id, level, granted_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET level = EXCLUDED.level, granted_by = EXCLUDED.granted_by, granted_at = NOW()
		RETURNING granted_at
	`
	err := r.db.QueryRow(ctx, query, g.UserID, g.DeviceID, g.Level, g.GrantedBy).Scan(&g.GrantedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		// foreign key violation: unknown user or device
		return xerrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// Revoke removes a direct grant.
func (r *PermissionRepository) Revoke(ctx context.Context, userID, deviceID int) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM device_permissions WHERE user_id = $1 AND device_id = $2`,
		userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ListByDevice returns every direct grant on a device.
func (r *PermissionRepository) ListByDevice(ctx context.Context, deviceID int) ([]*permission.Grant, error) {
	query := `
		SELECT user_id, device_id, level, granted_at, granted_by
		FROM device_permissions
		WHERE device_id = $1
		ORDER BY granted_at
	`
	rows, err := r.db.Query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var grants []*permission.Grant
	for rows.Next() {
		var g permission.Grant
		if err := rows.Scan(&g.UserID, &g.DeviceID, &g.Level, &g.GrantedAt, &g.GrantedBy); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}
