package review

import "context"

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListPending(ctx context.Context, branchID string) ([]Record, error) {
	return s.repo.ListPending(ctx, branchID)
}

func (s *Service) Approve(ctx context.Context, agreementID string) (Record, error) {
	return s.repo.Approve(ctx, agreementID)
}
