package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RecipientRepository defines the data access required by fan-out.
type RecipientRepository interface {
	BranchAdmins(ctx context.Context, branchID *string) ([]string, error)
	FilterExisting(ctx context.Context, ids []string) ([]string, error)
	BulkInsert(ctx context.Context, notes []Notification) (int, error)
}

// Service computes recipient sets and bulk-inserts notification rows.
type Service struct {
	repo   RecipientRepository
	logger *zap.Logger
}

func NewService(repo RecipientRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// AgreementSigned notifies every admin of the agreement's branch that a
// signature landed. The signer's own user account is excluded. Invalid
// recipients are skipped and counted, never failed on.
func (s *Service) AgreementSigned(ctx context.Context, params AgreementSignedParams) (FanoutResult, error) {
	if params.AgreementID == "" {
		return FanoutResult{}, fmt.Errorf("notification: missing agreement id")
	}

	candidates, err := s.repo.BranchAdmins(ctx, params.BranchID)
	if err != nil {
		return FanoutResult{}, err
	}

	seen := make(map[string]struct{}, len(candidates))
	deduped := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		if params.SignerAuthUserID != nil && id == *params.SignerAuthUserID {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	valid, err := s.repo.FilterExisting(ctx, deduped)
	if err != nil {
		return FanoutResult{}, err
	}
	skipped := len(deduped) - len(valid)

	message := fmt.Sprintf("%s (%s) has signed %q", params.SignerName, params.SignerType, params.AgreementTitle)
	notes := make([]Notification, 0, len(valid))
	for _, userID := range valid {
		notes = append(notes, Notification{
			UserID:  userID,
			Title:   "Agreement signed",
			Message: message,
			Type:    TypeAgreementSigned,
		})
	}

	inserted, err := s.repo.BulkInsert(ctx, notes)
	if err != nil {
		return FanoutResult{}, err
	}

	s.logger.Info("agreement signed fan-out delivered",
		zap.String("agreement_id", params.AgreementID),
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped))

	return FanoutResult{Inserted: inserted, Skipped: skipped}, nil
}
