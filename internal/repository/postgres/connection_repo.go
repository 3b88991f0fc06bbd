// internal/repository/postgres/connection_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rdm-service/internal/domain/connection"
	xerrors "rdm-service/internal/pkg/errors"
)

type ConnectionRepository struct {
	db *pgxpool.Pool
}

func NewConnectionRepository(db *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

const connectionColumns = `id, user_id, device_id, gateway_conn_id, connection_start,
	connection_end, duration_seconds, status, ip_address, user_agent`

func scanLog(row pgx.Row) (*connection.Log, error) {
	var l connection.Log
	err := row.Scan(&l.ID, &l.UserID, &l.DeviceID, &l.GatewayConnID, &l.Start,
		&l.End, &l.Duration, &l.Status, &l.IPAddress, &l.UserAgent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection log: %w", err)
	}
	return &l, nil
}

// CreateOpen inserts a pending log for the pair (user, device). A partial
// unique index on open logs makes the insert the arbiter: a second open log
// for the same pair loses the race inside Postgres and comes back as
// xerrors.ErrAlreadyConnected, whichever instance it raced against.
func (r *ConnectionRepository) CreateOpen(ctx context.Context, l *connection.Log) error {
	query := `
		INSERT INTO connection_logs (user_id, device_id, status, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, connection_start
	`
	err := r.db.QueryRow(ctx, query,
		l.UserID, l.DeviceID, connection.StatusPending, l.IPAddress, l.UserAgent,
	).Scan(&l.ID, &l.Start)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return xerrors.ErrAlreadyConnected
	}
	if err != nil {
		return fmt.Errorf("failed to create connection log: %w", err)
	}
	l.Status = connection.StatusPending
	return nil
}

// MarkActive records the gateway handle once the gateway accepted the
// connection, promoting the log out of its pending state.
func (r *ConnectionRepository) MarkActive(ctx context.Context, id int, gatewayConnID string) error {
	query := `
		UPDATE connection_logs
		SET gateway_conn_id = $2, status = $3
		WHERE id = $1 AND connection_end IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id, gatewayConnID, connection.StatusSuccess)
	if err != nil {
		return fmt.Errorf("failed to mark connection active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Close ends an open log, stamping the end time, duration and final status.
// The WHERE clause only matches open rows, so concurrent closes race inside
// Postgres and exactly one wins; the loser sees zero rows on a row that
// exists, which is xerrors.ErrAlreadyClosed.
func (r *ConnectionRepository) Close(ctx context.Context, id int, status connection.Status) (*connection.Log, error) {
	query := `
		UPDATE connection_logs
		SET connection_end = NOW(),
		    duration_seconds = EXTRACT(EPOCH FROM NOW() - connection_start)::int,
		    status = $2
		WHERE id = $1 AND connection_end IS NULL
		RETURNING ` + connectionColumns

	l, err := scanLog(r.db.QueryRow(ctx, query, id, status))
	if errors.Is(err, xerrors.ErrNotFound) {
		// Distinguish a missing log from one already closed.
		var exists bool
		if qerr := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM connection_logs WHERE id = $1)`, id,
		).Scan(&exists); qerr != nil {
			return nil, fmt.Errorf("failed to check connection log: %w", qerr)
		}
		if exists {
			return nil, xerrors.ErrAlreadyClosed
		}
		return nil, xerrors.ErrNotFound
	}
	return l, err
}

// FindByID retrieves one log.
func (r *ConnectionRepository) FindByID(ctx context.Context, id int) (*connection.Log, error) {
	query := `SELECT ` + connectionColumns + ` FROM connection_logs WHERE id = $1`
	return scanLog(r.db.QueryRow(ctx, query, id))
}

// ListByUser returns one page of a user's logs, newest first.
func (r *ConnectionRepository) ListByUser(ctx context.Context, userID, page, size int) ([]*connection.Log, int, error) {
	return r.list(ctx, `user_id = $1`, userID, page, size)
}

// ListByDevice returns one page of a device's logs, newest first.
func (r *ConnectionRepository) ListByDevice(ctx context.Context, deviceID, page, size int) ([]*connection.Log, int, error) {
	return r.list(ctx, `device_id = $1`, deviceID, page, size)
}

func (r *ConnectionRepository) list(ctx context.Context, where string, arg, page, size int) ([]*connection.Log, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM connection_logs WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count connection logs: %w", err)
	}

	query := `
		SELECT ` + connectionColumns + `
		FROM connection_logs
		WHERE ` + where + `
		ORDER BY connection_start DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, arg, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list connection logs: %w", err)
	}
	defer rows.Close()

	var logs []*connection.Log
	for rows.Next() {
		var l connection.Log
		if err := rows.Scan(&l.ID, &l.UserID, &l.DeviceID, &l.GatewayConnID, &l.Start,
			&l.End, &l.Duration, &l.Status, &l.IPAddress, &l.UserAgent); err != nil {
			return nil, 0, fmt.Errorf("failed to scan connection log: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, total, rows.Err()
}
