package agreement

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"caresign/notification"
	"caresign/storage"
)

// SigningRepository defines the data access required by the signer completion
// tracker.
type SigningRepository interface {
	InsertSignatureFile(ctx context.Context, agreementID, fileName, storagePath string) (string, error)
	MarkSignerSigned(ctx context.Context, agreementID, signerID string, fileID *string, at time.Time) error
	SignerContext(ctx context.Context, agreementID, signerID string) (SignerContext, error)
	ActivateIfFullySigned(ctx context.Context, agreementID, signature string, at time.Time) (bool, error)
}

// Notifier is the fire-and-forget admin notification boundary.
type Notifier interface {
	AgreementSigned(ctx context.Context, params notification.AgreementSignedParams) (notification.FanoutResult, error)
}

// SignRequest carries one signer's signature event.
type SignRequest struct {
	AgreementID     string
	SignerID        string
	SignatureData   string // base64 image payload, optionally a data URL
	SignatureFileID *string
}

// SigningService records one signer's signature and decides whether the
// owning agreement is now fully executed. Signature-file persistence and
// notification dispatch degrade gracefully; only the signer update and the
// activation decision are on the fatal path.
type SigningService struct {
	repo     SigningRepository
	store    storage.ObjectStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSigningService(repo SigningRepository, store storage.ObjectStore, notifier Notifier, logger *zap.Logger) *SigningService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SigningService{
		repo:     repo,
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *SigningService) WithClock(now func() time.Time) *SigningService {
	s.now = now
	return s
}

// Sign persists the signature, updates the signer row, fans out the admin
// notification, and activates the agreement when no pending signer remains.
func (s *SigningService) Sign(ctx context.Context, req SignRequest) (SignOutcome, error) {
	if req.AgreementID == "" {
		return SignOutcome{}, fmt.Errorf("agreement: missing agreement id")
	}
	if req.SignerID == "" {
		return SignOutcome{}, fmt.Errorf("agreement: missing signer id")
	}

	var degraded []string

	fileID := req.SignatureFileID
	if req.SignatureData != "" && fileID == nil {
		id, err := s.persistSignature(ctx, req)
		if err != nil {
			// The signer is still updated, with a null file reference.
			s.logger.Warn("signature file persistence failed",
				zap.String("agreement_id", req.AgreementID),
				zap.String("signer_id", req.SignerID),
				zap.Error(err))
			degraded = append(degraded, fmt.Sprintf("signature persistence failed: %v", err))
		} else {
			fileID = &id
		}
	}

	if err := s.repo.MarkSignerSigned(ctx, req.AgreementID, req.SignerID, fileID, s.now()); err != nil {
		return SignOutcome{}, err
	}

	// Notification delivery is not part of the signing contract.
	if s.notifier != nil {
		if err := s.notifySigned(ctx, req); err != nil {
			s.logger.Warn("agreement signed notification failed",
				zap.String("agreement_id", req.AgreementID),
				zap.String("signer_id", req.SignerID),
				zap.Error(err))
			degraded = append(degraded, fmt.Sprintf("notification dispatch failed: %v", err))
		}
	}

	allSigned, err := s.repo.ActivateIfFullySigned(ctx, req.AgreementID, req.SignatureData, s.now())
	if err != nil {
		return SignOutcome{}, err
	}

	return SignOutcome{
		AllSigned: allSigned,
		Invalidate: []string{
			QueryStaffAgreements,
			QueryClientAgreements,
			QueryAgreementSigners,
			QueryAgreements,
			QueryClientPendingAgreements,
			QueryStaffPendingAgreements,
			QuerySignedAgreements,
		},
		Degraded: degraded,
	}, nil
}

func (s *SigningService) persistSignature(ctx context.Context, req SignRequest) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stripDataURL(req.SignatureData))
	if err != nil {
		return "", fmt.Errorf("agreement: decode signature payload: %w", err)
	}

	objectName := storage.SignatureObjectName(req.AgreementID, req.SignerID)
	if _, err := s.store.Upload(ctx, bytes.NewReader(data), objectName, "image/png"); err != nil {
		return "", err
	}

	return s.repo.InsertSignatureFile(ctx, req.AgreementID, path.Base(objectName), objectName)
}

func (s *SigningService) notifySigned(ctx context.Context, req SignRequest) error {
	sc, err := s.repo.SignerContext(ctx, req.AgreementID, req.SignerID)
	if err != nil {
		return err
	}

	_, err = s.notifier.AgreementSigned(ctx, notification.AgreementSignedParams{
		AgreementID:      req.AgreementID,
		AgreementTitle:   sc.AgreementTitle,
		SignerName:       sc.SignerName,
		SignerType:       sc.SignerType,
		SignerAuthUserID: sc.SignerAuthUser,
		BranchID:         sc.BranchID,
	})
	return err
}

func stripDataURL(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			return payload[i+1:]
		}
	}
	return payload
}
