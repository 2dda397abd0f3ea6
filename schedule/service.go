package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrCancelForbidden    = errors.New("schedule: cancel forbidden")
	ErrCancelInvalidState = errors.New("schedule: cancel invalid state")
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Service struct {
	pool        TxBeginner
	repo        Repository
	idGenerator func() string
	now         func() time.Time
}

type CreateParams struct {
	Title        string
	TemplateID   *string
	TypeID       *string
	BranchID     *string
	WithClientID *string
	WithStaffID  *string
	WithName     string
	ScheduledFor time.Time
	Notes        *string
}

type ListResult struct {
	Items []ScheduledAgreement
	Total int
}

func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Create(ctx context.Context, params CreateParams) (ScheduledAgreement, error) {
	if strings.TrimSpace(params.Title) == "" {
		return ScheduledAgreement{}, fmt.Errorf("schedule: title required")
	}
	if params.WithClientID != nil && params.WithStaffID != nil {
		return ScheduledAgreement{}, fmt.Errorf("schedule: at most one of client or staff may be scheduled")
	}
	if params.ScheduledFor.Before(s.now()) {
		return ScheduledAgreement{}, fmt.Errorf("schedule: scheduled_for must be in the future")
	}

	rec := ScheduledAgreement{
		ID:           s.idGenerator(),
		Title:        strings.TrimSpace(params.Title),
		Status:       StatusUpcoming,
		TemplateID:   params.TemplateID,
		TypeID:       params.TypeID,
		BranchID:     params.BranchID,
		WithClientID: params.WithClientID,
		WithStaffID:  params.WithStaffID,
		WithName:     strings.TrimSpace(params.WithName),
		ScheduledFor: params.ScheduledFor,
		Notes:        params.Notes,
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return ScheduledAgreement{}, err
	}

	return created, nil
}

func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

type CancelParams struct {
	ScheduledID string
	ActorRole   string
}

// Cancel flips an upcoming scheduled agreement to Cancelled. Only admins may
// cancel, and only before conversion or review has started.
func (s *Service) Cancel(ctx context.Context, params CancelParams) (ScheduledAgreement, error) {
	if params.ScheduledID == "" {
		return ScheduledAgreement{}, fmt.Errorf("schedule: cancel missing id")
	}
	if strings.ToLower(params.ActorRole) != "admin" {
		return ScheduledAgreement{}, ErrCancelForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ScheduledAgreement{}, fmt.Errorf("schedule: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.GetForUpdate(ctx, tx, params.ScheduledID)
	if err != nil {
		return ScheduledAgreement{}, err
	}

	if rec.Status != StatusUpcoming && rec.Status != StatusPendingApproval {
		return ScheduledAgreement{}, ErrCancelInvalidState
	}

	updated, err := s.repo.UpdateStatus(ctx, tx, params.ScheduledID, StatusCancelled)
	if err != nil {
		return ScheduledAgreement{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ScheduledAgreement{}, fmt.Errorf("schedule: cancel commit: %w", err)
	}

	return updated, nil
}
