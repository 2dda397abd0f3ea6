package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("review: agreement not found")
	ErrBadStatus = errors.New("review: agreement not awaiting review")
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListPending returns fully signed agreements awaiting admin review,
// optionally scoped to a branch.
func (r *Repository) ListPending(ctx context.Context, branchID string) ([]Record, error) {
	query := `
		SELECT id, title, branch_id, status::text, approval_status::text, signed_at, updated_at
		FROM agreements
		WHERE approval_status = 'pending_review'
	`
	args := []any{}
	if branchID != "" {
		query += " AND branch_id = $1"
		args = append(args, branchID)
	}
	query += " ORDER BY signed_at DESC NULLS LAST"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("review: list pending: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 8)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.BranchID, &rec.Status, &rec.ApprovalStatus, &rec.SignedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("review: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("review: iterate: %w", err)
	}
	return out, nil
}

// Approve flips a pending-review agreement to approved and stamps every
// signer row admin_approved, in one transaction.
func (r *Repository) Approve(ctx context.Context, agreementID string) (Record, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("review: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateSQL = `
		UPDATE agreements
		SET approval_status = 'approved',
		    updated_at = now()
		WHERE id = $1 AND approval_status = 'pending_review'
		RETURNING id, title, branch_id, status::text, approval_status::text, signed_at, updated_at
	`

	var rec Record
	err = tx.QueryRow(ctx, updateSQL, agreementID).
		Scan(&rec.ID, &rec.Title, &rec.BranchID, &rec.Status, &rec.ApprovalStatus, &rec.SignedAt, &rec.UpdatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("review: approve: %w", err)
		}

		var exists bool
		if checkErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM agreements WHERE id = $1)`, agreementID).Scan(&exists); checkErr != nil {
			return Record{}, fmt.Errorf("review: approve fetch: %w", checkErr)
		}
		if !exists {
			return Record{}, ErrNotFound
		}
		return Record{}, ErrBadStatus
	}

	if _, err := tx.Exec(ctx,
		`UPDATE agreement_signers SET admin_approved = true WHERE agreement_id = $1`, agreementID); err != nil {
		return Record{}, fmt.Errorf("review: stamp signers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("review: commit: %w", err)
	}

	return rec, nil
}
