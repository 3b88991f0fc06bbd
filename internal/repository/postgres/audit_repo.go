// internal/repository/postgres/audit_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rdm-service/internal/domain/audit"
)

// AuditRepository appends entries to the audit trail. There is no update or
// delete path; the table is insert-only.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertAuditQuery = `
	INSERT INTO audit_logs (user_id, action, resource_type, resource_id, details, ip_address)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
`

func marshalDetails(details map[string]interface{}) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit details: %w", err)
	}
	return b, nil
}

// Insert appends one entry.
func (r *AuditRepository) Insert(ctx context.Context, e *audit.Entry) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, insertAuditQuery,
		e.UserID, e.Action, e.ResourceType, e.ResourceID, details, e.IPAddress,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// InsertTx appends one entry inside the caller's transaction, so provisioning
// commits the subject row and its audit entry together or not at all.
func (r *AuditRepository) InsertTx(ctx context.Context, tx pgx.Tx, e *audit.Entry) error {
	details, err := marshalDetails(e.Details)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, insertAuditQuery,
		e.UserID, e.Action, e.ResourceType, e.ResourceID, details, e.IPAddress,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// List returns one page of entries, newest first, optionally filtered by
// user and action.
func (r *AuditRepository) List(ctx context.Context, userID *int, action audit.Action, page, size int) ([]*audit.Entry, int, error) {
	where := `WHERE TRUE`
	args := []interface{}{}
	idx := 1

	if userID != nil {
		where += fmt.Sprintf(` AND user_id = $%d`, idx)
		args = append(args, *userID)
		idx++
	}
	if action != "" {
		where += fmt.Sprintf(` AND action = $%d`, idx)
		args = append(args, action)
		idx++
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, action, resource_type, resource_id, details, ip_address, created_at
		FROM audit_logs %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, idx, idx+1)
	args = append(args, size, page*size)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType,
			&e.ResourceID, &details, &e.IPAddress, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}
