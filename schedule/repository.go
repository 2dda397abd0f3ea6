package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("schedule: not found")
)

type Repository interface {
	Create(ctx context.Context, rec ScheduledAgreement) (ScheduledAgreement, error)
	List(ctx context.Context, filters Filters) ([]ScheduledAgreement, int, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (ScheduledAgreement, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (ScheduledAgreement, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const scheduledColumns = `id, title, status, template_id, type_id, branch_id,
	scheduled_with_client_id, scheduled_with_staff_id, scheduled_with_name,
	scheduled_for, notes, created_at`

func (r *PGRepository) Create(ctx context.Context, rec ScheduledAgreement) (ScheduledAgreement, error) {
	query := fmt.Sprintf(`
		INSERT INTO scheduled_agreements
			(id, title, status, template_id, type_id, branch_id,
			 scheduled_with_client_id, scheduled_with_staff_id, scheduled_with_name,
			 scheduled_for, notes)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s
	`, scheduledColumns)

	row := r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.Title,
		rec.Status,
		rec.TemplateID,
		rec.TypeID,
		rec.BranchID,
		rec.WithClientID,
		rec.WithStaffID,
		rec.WithName,
		rec.ScheduledFor,
		rec.Notes,
	)

	created, err := scanScheduled(row)
	if err != nil {
		return ScheduledAgreement{}, fmt.Errorf("schedule: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) List(ctx context.Context, filters Filters) ([]ScheduledAgreement, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	base := fmt.Sprintf(`SELECT %s FROM scheduled_agreements`, scheduledColumns)
	where := []string{"1=1"}
	args := []any{}

	if filters.BranchID != "" {
		where = append(where, fmt.Sprintf("branch_id=$%d", len(args)+1))
		args = append(args, filters.BranchID)
	}
	if filters.ClientID != "" {
		where = append(where, fmt.Sprintf("scheduled_with_client_id=$%d", len(args)+1))
		args = append(args, filters.ClientID)
	}
	if filters.StaffID != "" {
		where = append(where, fmt.Sprintf("scheduled_with_staff_id=$%d", len(args)+1))
		args = append(args, filters.StaffID)
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status=$%d", len(args)+1))
		args = append(args, filters.Status)
	}

	whereClause := " WHERE " + strings.Join(where, " AND ")

	limit := filters.PageSize
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`%s%s ORDER BY scheduled_for ASC LIMIT %d OFFSET %d`, base, whereClause, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("schedule: query list: %w", err)
	}
	defer rows.Close()

	list := []ScheduledAgreement{}
	for rows.Next() {
		rec, err := scanScheduled(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("schedule: iterate list: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM scheduled_agreements%s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("schedule: count list: %w", err)
	}

	return list, total, nil
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (ScheduledAgreement, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM scheduled_agreements
		WHERE id = $1
		FOR UPDATE
	`, scheduledColumns)

	rec, err := scanScheduled(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ScheduledAgreement{}, ErrNotFound
		}
		return ScheduledAgreement{}, fmt.Errorf("schedule: get for update: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (ScheduledAgreement, error) {
	query := fmt.Sprintf(`
		UPDATE scheduled_agreements
		SET status = $2
		WHERE id = $1
		RETURNING %s
	`, scheduledColumns)

	rec, err := scanScheduled(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		return ScheduledAgreement{}, fmt.Errorf("schedule: update status: %w", err)
	}
	return rec, nil
}

func scanScheduled(row pgx.Row) (ScheduledAgreement, error) {
	var rec ScheduledAgreement
	return rec, row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Status,
		&rec.TemplateID,
		&rec.TypeID,
		&rec.BranchID,
		&rec.WithClientID,
		&rec.WithStaffID,
		&rec.WithName,
		&rec.ScheduledFor,
		&rec.Notes,
		&rec.CreatedAt,
	)
}
