package notification

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles recipient resolution and bulk notification writes.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// BranchAdmins returns the user ids of admins scoped to the branch, or every
// admin when no branch is given.
func (r *Repository) BranchAdmins(ctx context.Context, branchID *string) ([]string, error) {
	const query = `
		SELECT id::text
		FROM users
		WHERE role = 'admin'
		  AND ($1::uuid IS NULL OR branch_id = $1::uuid)
	`

	rows, err := r.pool.Query(ctx, query, branchID)
	if err != nil {
		return nil, fmt.Errorf("notification: query branch admins: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("notification: scan admin id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: iterate admins: %w", err)
	}

	return ids, nil
}

// FilterExisting drops ids that do not correspond to a user row.
func (r *Repository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const query = `SELECT id::text FROM users WHERE id = ANY($1::uuid[])`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("notification: verify recipients: %w", err)
	}
	defer rows.Close()

	var valid []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("notification: scan recipient: %w", err)
		}
		valid = append(valid, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification: iterate recipients: %w", err)
	}

	return valid, nil
}

// BulkInsert writes one notification row per recipient via COPY.
func (r *Repository) BulkInsert(ctx context.Context, notes []Notification) (int, error) {
	if len(notes) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, []any{n.UserID, n.Title, n.Message, n.Type})
	}

	copied, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"notifications"},
		[]string{"user_id", "title", "message", "type"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("notification: bulk insert: %w", err)
	}

	return int(copied), nil
}
