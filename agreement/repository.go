package agreement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrScheduledNotFound is returned when no scheduled agreement exists for the identifier.
	ErrScheduledNotFound = errors.New("agreement: scheduled agreement not found")
	// ErrTemplateNotFound is returned when the referenced template is missing.
	ErrTemplateNotFound = errors.New("agreement: template not found")
	// ErrSignerNotFound is returned when the signer row to update does not exist.
	ErrSignerNotFound = errors.New("agreement: signer not found")
)

// Repository is the pgx-backed data access layer for the conversion and
// signing workflows. Conversion deliberately runs its writes as separate
// statements rather than one transaction; the compensating delete in the
// service is the only cleanup on partial failure.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetScheduled fetches a scheduled agreement joined with its type name.
func (r *Repository) GetScheduled(ctx context.Context, id string) (Scheduled, error) {
	const query = `
		SELECT s.id, s.title, s.status, s.template_id, s.type_id,
		       COALESCE(t.name, ''), s.branch_id,
		       s.scheduled_with_client_id, s.scheduled_with_staff_id,
		       s.scheduled_with_name, s.scheduled_for, s.notes, s.created_at
		FROM scheduled_agreements s
		LEFT JOIN agreement_types t ON t.id = s.type_id
		WHERE s.id = $1
	`

	var s Scheduled
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Title,
		&s.Status,
		&s.TemplateID,
		&s.TypeID,
		&s.TypeName,
		&s.BranchID,
		&s.WithClientID,
		&s.WithStaffID,
		&s.WithName,
		&s.ScheduledFor,
		&s.Notes,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Scheduled{}, ErrScheduledNotFound
		}
		return Scheduled{}, fmt.Errorf("agreement: fetch scheduled: %w", err)
	}

	return s, nil
}

// GetTemplate fetches raw template content.
func (r *Repository) GetTemplate(ctx context.Context, id string) (Template, error) {
	const query = `SELECT id, title, content FROM agreement_templates WHERE id = $1`

	var t Template
	if err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Title, &t.Content); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrTemplateNotFound
		}
		return Template{}, fmt.Errorf("agreement: fetch template: %w", err)
	}

	return t, nil
}

// InsertAgreement creates the live agreement row in Pending state.
func (r *Repository) InsertAgreement(ctx context.Context, params NewAgreement) (string, error) {
	const insertSQL = `
		INSERT INTO agreements
			(title, content, type_id, template_id, branch_id, status, approval_status,
			 signed_by_client_id, signed_by_staff_id, signing_party, signed_by_name)
		VALUES ($1, $2, $3, $4, $5, 'Pending', 'pending_signatures', $6, $7, $8, $9)
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, insertSQL,
		params.Title,
		params.Content,
		params.TypeID,
		params.TemplateID,
		params.BranchID,
		params.SignedByClientID,
		params.SignedByStaffID,
		params.SigningParty,
		params.SignedByName,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("agreement: insert agreement: %w", err)
	}

	return id, nil
}

// DeleteAgreement removes an agreement row. Used only as the compensating
// action when the signer insert fails after the agreement insert succeeded.
func (r *Repository) DeleteAgreement(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM agreements WHERE id = $1`, id); err != nil {
		return fmt.Errorf("agreement: delete agreement: %w", err)
	}
	return nil
}

// InsertSigner creates the pending signer row for a converted agreement.
func (r *Repository) InsertSigner(ctx context.Context, params NewSigner) (string, error) {
	const insertSQL = `
		INSERT INTO agreement_signers
			(agreement_id, signer_type, signer_id, signer_name, signer_auth_user_id, signing_status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, insertSQL,
		params.AgreementID,
		params.SignerType,
		params.SignerID,
		params.SignerName,
		params.SignerAuthUser,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("agreement: insert signer: %w", err)
	}

	return id, nil
}

// MarkScheduledCompleted flips the source scheduled agreement to Completed.
func (r *Repository) MarkScheduledCompleted(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_agreements SET status = 'Completed' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("agreement: mark scheduled completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduledNotFound
	}
	return nil
}

// InsertSignatureFile records the metadata row for an uploaded signature image.
func (r *Repository) InsertSignatureFile(ctx context.Context, agreementID, fileName, storagePath string) (string, error) {
	const insertSQL = `
		INSERT INTO agreement_files (agreement_id, file_name, storage_path, category)
		VALUES ($1, $2, $3, 'signature')
		RETURNING id
	`

	var id string
	if err := r.pool.QueryRow(ctx, insertSQL, agreementID, fileName, storagePath).Scan(&id); err != nil {
		return "", fmt.Errorf("agreement: insert signature file: %w", err)
	}

	return id, nil
}

// MarkSignerSigned records the signature event on the signer row.
func (r *Repository) MarkSignerSigned(ctx context.Context, agreementID, signerID string, fileID *string, at time.Time) error {
	const updateSQL = `
		UPDATE agreement_signers
		SET signing_status = 'signed',
		    signed_at = $1,
		    signature_file_id = $2
		WHERE id = $3 AND agreement_id = $4
	`

	tag, err := r.pool.Exec(ctx, updateSQL, at, fileID, signerID, agreementID)
	if err != nil {
		return fmt.Errorf("agreement: mark signer signed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSignerNotFound
	}

	return nil
}

// SignerContext loads the display fields needed for the admin notification.
func (r *Repository) SignerContext(ctx context.Context, agreementID, signerID string) (SignerContext, error) {
	const query = `
		SELECT a.title, a.branch_id, s.signer_name, s.signer_type, s.signer_auth_user_id
		FROM agreements a
		JOIN agreement_signers s ON s.agreement_id = a.id
		WHERE a.id = $1 AND s.id = $2
	`

	var sc SignerContext
	err := r.pool.QueryRow(ctx, query, agreementID, signerID).Scan(
		&sc.AgreementTitle,
		&sc.BranchID,
		&sc.SignerName,
		&sc.SignerType,
		&sc.SignerAuthUser,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SignerContext{}, ErrSignerNotFound
		}
		return SignerContext{}, fmt.Errorf("agreement: fetch signer context: %w", err)
	}

	return sc, nil
}

// ActivateIfFullySigned atomically activates the agreement when no pending
// signer remains. The guard lives in the statement itself, so two signers
// finishing at the same time cannot both skip (or both perform) the
// activation based on a stale read. The digital signature column keeps the
// payload of whichever signer ran the statement last.
func (r *Repository) ActivateIfFullySigned(ctx context.Context, agreementID, signature string, at time.Time) (bool, error) {
	const updateSQL = `
		UPDATE agreements
		SET status = 'Active',
		    approval_status = 'pending_review',
		    signed_at = $1,
		    digital_signature = NULLIF($2, ''),
		    updated_at = $1
		WHERE id = $3
		  AND NOT EXISTS (
		        SELECT 1 FROM agreement_signers
		        WHERE agreement_id = $3 AND signing_status <> 'signed'
		  )
	`

	tag, err := r.pool.Exec(ctx, updateSQL, at, signature, agreementID)
	if err != nil {
		return false, fmt.Errorf("agreement: activate if fully signed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
