package party

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrClientNotFound signals the requested client does not exist.
	ErrClientNotFound = errors.New("party: client not found")
	// ErrStaffNotFound signals the requested staff member does not exist.
	ErrStaffNotFound = errors.New("party: staff not found")
)

// Repository provides read access to client and staff records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetClient fetches a client by its primary key.
func (r *Repository) GetClient(ctx context.Context, id string) (Person, error) {
	const query = `
		SELECT id, branch_id, full_name, auth_user_id, created_at
		FROM clients
		WHERE id = $1
	`
	return r.get(ctx, query, id, ErrClientNotFound)
}

// GetStaff fetches a staff member by its primary key.
func (r *Repository) GetStaff(ctx context.Context, id string) (Person, error) {
	const query = `
		SELECT id, branch_id, full_name, auth_user_id, created_at
		FROM staff
		WHERE id = $1
	`
	return r.get(ctx, query, id, ErrStaffNotFound)
}

func (r *Repository) get(ctx context.Context, query, id string, notFound error) (Person, error) {
	var p Person
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.BranchID,
		&p.FullName,
		&p.AuthUserID,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, notFound
		}
		return Person{}, fmt.Errorf("party: query person: %w", err)
	}

	return p, nil
}
