package agreement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"caresign/party"
)

// ConversionRepository defines the data access required by the conversion
// orchestrator.
type ConversionRepository interface {
	GetScheduled(ctx context.Context, id string) (Scheduled, error)
	GetTemplate(ctx context.Context, id string) (Template, error)
	InsertAgreement(ctx context.Context, params NewAgreement) (string, error)
	DeleteAgreement(ctx context.Context, id string) error
	InsertSigner(ctx context.Context, params NewSigner) (string, error)
	MarkScheduledCompleted(ctx context.Context, id string) error
}

// PartyResolver resolves the durable and auth-bound identity of the signing party.
type PartyResolver interface {
	GetClient(ctx context.Context, id string) (party.Person, error)
	GetStaff(ctx context.Context, id string) (party.Person, error)
}

// ConversionService materialises a scheduled agreement into a live, signable
// agreement plus its signer row. The write sequence is not transactional: the
// only cleanup on partial failure is the compensating delete of the agreement
// when the signer insert fails, and that delete is best-effort.
type ConversionService struct {
	repo    ConversionRepository
	parties PartyResolver
	logger  *zap.Logger
	now     func() time.Time
}

func NewConversionService(repo ConversionRepository, parties PartyResolver, logger *zap.Logger) *ConversionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionService{
		repo:    repo,
		parties: parties,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ConversionService) WithClock(now func() time.Time) *ConversionService {
	s.now = now
	return s
}

// Convert runs the full conversion sequence for one scheduled agreement.
// There is no status precondition: converting an already-Completed record
// creates another agreement.
func (s *ConversionService) Convert(ctx context.Context, scheduledID string) (ConvertOutcome, error) {
	if scheduledID == "" {
		return ConvertOutcome{}, fmt.Errorf("agreement: missing scheduled agreement id")
	}

	sched, err := s.repo.GetScheduled(ctx, scheduledID)
	if err != nil {
		return ConvertOutcome{}, err
	}

	signer, err := s.resolveSigner(ctx, sched)
	if err != nil {
		return ConvertOutcome{}, err
	}

	var content *string
	if sched.TemplateID != nil {
		tpl, err := s.repo.GetTemplate(ctx, *sched.TemplateID)
		if err != nil {
			return ConvertOutcome{}, err
		}

		var clientName, staffName string
		switch signer.Type {
		case SignerTypeClient:
			clientName = signer.Name
		case SignerTypeStaff:
			staffName = signer.Name
		}
		rendered := RenderTemplate(tpl.Content, clientName, staffName, sched.Title, s.now())
		content = &rendered
	}

	newAgreement := NewAgreement{
		Title:        sched.Title,
		Content:      content,
		TypeID:       sched.TypeID,
		TemplateID:   sched.TemplateID,
		BranchID:     sched.BranchID,
		SigningParty: signer.Type,
		SignedByName: signer.Name,
	}
	switch signer.Type {
	case SignerTypeClient:
		newAgreement.SignedByClientID = signer.PartyID
	case SignerTypeStaff:
		newAgreement.SignedByStaffID = signer.PartyID
	}

	agreementID, err := s.repo.InsertAgreement(ctx, newAgreement)
	if err != nil {
		return ConvertOutcome{}, err
	}

	signerID, err := s.repo.InsertSigner(ctx, NewSigner{
		AgreementID:    agreementID,
		SignerType:     signer.Type,
		SignerID:       signer.PartyID,
		SignerName:     signer.Name,
		SignerAuthUser: signer.AuthUserID,
	})
	if err != nil {
		// Roll back the agreement we just created. The delete itself is not
		// verified; a failure here leaves an orphaned Pending agreement.
		if delErr := s.repo.DeleteAgreement(ctx, agreementID); delErr != nil {
			s.logger.Warn("compensating agreement delete failed",
				zap.String("agreement_id", agreementID),
				zap.Error(delErr))
		}
		return ConvertOutcome{}, err
	}

	outcome := ConvertOutcome{
		AgreementID: agreementID,
		SignerID:    signerID,
		Invalidate: []string{
			QueryScheduledAgreements,
			QueryAgreements,
			QueryClientScheduledAgreements,
		},
	}

	// The status flip on the source record is the one write whose failure the
	// caller never sees as an error.
	if err := s.repo.MarkScheduledCompleted(ctx, scheduledID); err != nil {
		s.logger.Warn("scheduled agreement status update failed after conversion",
			zap.String("scheduled_id", scheduledID),
			zap.String("agreement_id", agreementID),
			zap.Error(err))
		outcome.Degraded = append(outcome.Degraded,
			fmt.Sprintf("scheduled status update failed: %v", err))
	}

	return outcome, nil
}

type resolvedSigner struct {
	Type       string
	PartyID    *string
	AuthUserID *string
	Name       string
}

func (s *ConversionService) resolveSigner(ctx context.Context, sched Scheduled) (resolvedSigner, error) {
	switch {
	case sched.WithClientID != nil:
		p, err := s.parties.GetClient(ctx, *sched.WithClientID)
		if err != nil {
			if errors.Is(err, party.ErrClientNotFound) {
				return resolvedSigner{Type: SignerTypeOther, Name: sched.WithName}, nil
			}
			return resolvedSigner{}, err
		}
		return resolvedSigner{
			Type:       SignerTypeClient,
			PartyID:    &p.ID,
			AuthUserID: p.AuthUserID,
			Name:       displayName(p.FullName, sched.WithName),
		}, nil

	case sched.WithStaffID != nil:
		p, err := s.parties.GetStaff(ctx, *sched.WithStaffID)
		if err != nil {
			if errors.Is(err, party.ErrStaffNotFound) {
				return resolvedSigner{Type: SignerTypeOther, Name: sched.WithName}, nil
			}
			return resolvedSigner{}, err
		}
		return resolvedSigner{
			Type:       SignerTypeStaff,
			PartyID:    &p.ID,
			AuthUserID: p.AuthUserID,
			Name:       displayName(p.FullName, sched.WithName),
		}, nil

	default:
		return resolvedSigner{Type: SignerTypeOther, Name: sched.WithName}, nil
	}
}

func displayName(resolved, fallback string) string {
	if resolved != "" {
		return resolved
	}
	return fallback
}
