// internal/repository/postgres/device_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"rdm-service/internal/domain/device"
	xerrors "rdm-service/internal/pkg/errors"
)

type DeviceRepository struct {
	db *pgxpool.Pool
}

func NewDeviceRepository(db *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, name, host, port, protocol, username, description,
	tags, status, is_active, created_by, created_at, updated_at`

func scanDevice(row pgx.Row) (*device.Device, error) {
	var d device.Device
	err := row.Scan(&d.ID, &d.Name, &d.Host, &d.Port, &d.Protocol, &d.Username,
		&d.Description, pq.Array(&d.Tags), &d.Status, &d.IsActive, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan device: %w", err)
	}
	return &d, nil
}

// FindByID retrieves a device regardless of its active flag. Callers that
// must not touch retired devices use FindActiveByID.
func (r *DeviceRepository) FindByID(ctx context.Context, id int) (*device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`
	return scanDevice(r.db.QueryRow(ctx, query, id))
}

// FindActiveByID retrieves a device only when it has not been retired.
func (r *DeviceRepository) FindActiveByID(ctx context.Context, id int) (*device.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = $1 AND is_active = TRUE`
	return scanDevice(r.db.QueryRow(ctx, query, id))
}

// FindSecrets retrieves the connection secrets for a device. They are stored
// apart from the catalog row and only the broker reads them.
func (r *DeviceRepository) FindSecrets(ctx context.Context, id int) (*device.Secrets, error) {
	query := `SELECT password, private_key FROM device_secrets WHERE device_id = $1`

	var s device.Secrets
	err := r.db.QueryRow(ctx, query, id).Scan(&s.Password, &s.PrivateKey)
	if errors.Is(err, pgx.ErrNoRows) {
		// A device without stored secrets is still connectable; the
		// gateway may hold its own credential mapping.
		return &device.Secrets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find device secrets: %w", err)
	}
	return &s, nil
}

// Create inserts a catalog row plus its secrets in one transaction.
func (r *DeviceRepository) Create(ctx context.Context, d *device.Device, secrets *device.Secrets) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO devices (name, host, port, protocol, username, description, tags, status, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		d.Name, d.Host, d.Port, d.Protocol, d.Username, d.Description,
		pq.Array(d.Tags), d.Status, d.CreatedBy,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return xerrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	if secrets != nil && (secrets.Password != "" || secrets.PrivateKey != "") {
		_, err = tx.Exec(ctx,
			`INSERT INTO device_secrets (device_id, password, private_key) VALUES ($1, $2, $3)`,
			d.ID, secrets.Password, secrets.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to store device secrets: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Update applies the non-nil fields of req to the device.
func (r *DeviceRepository) Update(ctx context.Context, id int, req *device.UpdateDeviceRequest) (*device.Device, error) {
	query := `
		UPDATE devices SET
			name        = COALESCE($2, name),
			host        = COALESCE($3, host),
			port        = COALESCE($4, port),
			protocol    = COALESCE($5, protocol),
			username    = COALESCE($6, username),
			description = COALESCE($7, description),
			tags        = COALESCE($8, tags),
			is_active   = COALESCE($9, is_active),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING ` + deviceColumns

	var tags interface{}
	if req.Tags != nil {
		tags = pq.Array(req.Tags)
	}

	d, err := scanDevice(r.db.QueryRow(ctx, query,
		id, req.Name, req.Host, req.Port, req.Protocol, req.Username,
		req.Description, tags, req.IsActive))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, xerrors.ErrConflict
	}
	return d, err
}

// SetStatus records the last observed reachability of a device.
func (r *DeviceRepository) SetStatus(ctx context.Context, id int, status device.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE devices SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set device status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete retires a device. The row stays so historical connection logs keep
// their foreign key.
func (r *DeviceRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE devices SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// List returns one page of active devices matching the filters,
// ordered by name.
func (r *DeviceRepository) List(ctx context.Context, f *device.ListFilters) ([]*device.Device, int, error) {
	where := `WHERE is_active = TRUE`
	args := []interface{}{}
	idx := 1

	if f.Search != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR host ILIKE $%d)`, idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}
	if f.Protocol != "" {
		where += fmt.Sprintf(` AND protocol = $%d`, idx)
		args = append(args, f.Protocol)
		idx++
	}
	if f.Status != "" {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, f.Status)
		idx++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM devices `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+deviceColumns+` FROM devices %s ORDER BY name LIMIT $%d OFFSET $%d`,
		where, idx, idx+1)
	args = append(args, f.Size, f.Page*f.Size)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []*device.Device
	for rows.Next() {
		var d device.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.Host, &d.Port, &d.Protocol, &d.Username,
			&d.Description, pq.Array(&d.Tags), &d.Status, &d.IsActive, &d.CreatedBy,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, &d)
	}
	return devices, total, rows.Err()
}
