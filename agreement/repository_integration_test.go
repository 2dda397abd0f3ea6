package agreement

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caresign/notification"
	"caresign/party"
	"caresign/storage"
)

// TestConversionAndSigning_Integration connects to a real PostgreSQL via
// DATABASE_URL and walks a scheduled agreement through conversion, signing,
// and activation against the live schema.
func TestConversionAndSigning_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	if !tableExists(ctx, t, pool, "scheduled_agreements") || !tableExists(ctx, t, pool, "agreements") || !tableExists(ctx, t, pool, "agreement_signers") {
		t.Skip("database schema missing; apply migrations/0001_init.sql first")
	}

	var (
		orgID       string
		branchID    string
		adminID     string
		clientID    string
		templateID  string
		scheduledID string
	)

	mustQueryRow := func(query string, args ...any) pgx.Row {
		return pool.QueryRow(ctx, query, args...)
	}

	if err := mustQueryRow(`INSERT INTO organizations (name) VALUES ($1) RETURNING id`,
		fmt.Sprintf("Harbour Care %d", time.Now().UnixNano())).Scan(&orgID); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	if err := mustQueryRow(`INSERT INTO branches (organization_id, name) VALUES ($1, 'North Branch') RETURNING id`, orgID).Scan(&branchID); err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	if err := mustQueryRow(`INSERT INTO users (email, full_name, role, branch_id) VALUES ($1, 'Branch Admin', 'admin', $2) RETURNING id`,
		fmt.Sprintf("admin+%d@example.com", time.Now().UnixNano()), branchID).Scan(&adminID); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := mustQueryRow(`INSERT INTO clients (branch_id, full_name) VALUES ($1, 'Margaret Hale') RETURNING id`, branchID).Scan(&clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if err := mustQueryRow(`INSERT INTO agreement_templates (title, content) VALUES ($1, $2) RETURNING id`,
		"Care Consent", "I, {{CLIENT_NAME}}, agree to {{AGREEMENT_TITLE}} on {{TODAY}}.").Scan(&templateID); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	if err := mustQueryRow(`
        INSERT INTO scheduled_agreements (title, template_id, branch_id, scheduled_with_client_id, scheduled_with_name, scheduled_for)
        VALUES ('Care Consent', $1, $2, $3, 'Margaret Hale', now() + interval '1 day') RETURNING id
    `, templateID, branchID, clientID).Scan(&scheduledID); err != nil {
		t.Fatalf("seed scheduled agreement: %v", err)
	}

	repo := NewRepository(pool)
	conversions := NewConversionService(repo, party.NewRepository(pool), nil)
	notifier := notification.NewService(notification.NewRepository(pool), nil)
	signings := NewSigningService(repo, storage.NewMemoryStore(), notifier, nil)

	var agreementID, signerID string

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM notifications WHERE user_id = $1`, adminID)
		pool.Exec(ctx2, `UPDATE agreement_signers SET signature_file_id = NULL WHERE agreement_id = $1`, agreementID)
		pool.Exec(ctx2, `DELETE FROM agreement_files WHERE agreement_id = $1`, agreementID)
		pool.Exec(ctx2, `DELETE FROM agreements WHERE id = $1`, agreementID)
		pool.Exec(ctx2, `DELETE FROM scheduled_agreements WHERE id = $1`, scheduledID)
		pool.Exec(ctx2, `DELETE FROM agreement_templates WHERE id = $1`, templateID)
		pool.Exec(ctx2, `DELETE FROM clients WHERE id = $1`, clientID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id = $1`, adminID)
		pool.Exec(ctx2, `DELETE FROM branches WHERE id = $1`, branchID)
		pool.Exec(ctx2, `DELETE FROM organizations WHERE id = $1`, orgID)
	})

	outcome, err := conversions.Convert(ctx, scheduledID)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	agreementID = outcome.AgreementID
	signerID = outcome.SignerID
	if len(outcome.Degraded) != 0 {
		t.Fatalf("expected clean conversion, degraded: %v", outcome.Degraded)
	}

	var (
		status   string
		approval string
		content  *string
	)
	if err := mustQueryRow(`SELECT status::text, approval_status::text, content FROM agreements WHERE id = $1`, agreementID).Scan(&status, &approval, &content); err != nil {
		t.Fatalf("verify agreement: %v", err)
	}
	if status != "Pending" || approval != "pending_signatures" {
		t.Fatalf("expected Pending/pending_signatures, got %s/%s", status, approval)
	}
	if content == nil || *content == "" {
		t.Fatal("expected rendered template content")
	}

	var schedStatus string
	if err := mustQueryRow(`SELECT status::text FROM scheduled_agreements WHERE id = $1`, scheduledID).Scan(&schedStatus); err != nil {
		t.Fatalf("verify scheduled status: %v", err)
	}
	if schedStatus != "Completed" {
		t.Fatalf("expected scheduled agreement Completed, got %s", schedStatus)
	}

	signOutcome, err := signings.Sign(ctx, SignRequest{
		AgreementID:   agreementID,
		SignerID:      signerID,
		SignatureData: signaturePNG,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !signOutcome.AllSigned {
		t.Fatal("sole signer must fully execute the agreement")
	}
	if len(signOutcome.Degraded) != 0 {
		t.Fatalf("expected clean signing, degraded: %v", signOutcome.Degraded)
	}

	var (
		signerStatus string
		signedAt     *time.Time
	)
	if err := mustQueryRow(`SELECT signing_status::text, signed_at FROM agreement_signers WHERE id = $1`, signerID).Scan(&signerStatus, &signedAt); err != nil {
		t.Fatalf("verify signer: %v", err)
	}
	if signerStatus != "signed" || signedAt == nil {
		t.Fatalf("expected signed signer with timestamp, got %s/%v", signerStatus, signedAt)
	}

	var signature *string
	if err := mustQueryRow(`SELECT status::text, approval_status::text, digital_signature FROM agreements WHERE id = $1`, agreementID).Scan(&status, &approval, &signature); err != nil {
		t.Fatalf("re-verify agreement: %v", err)
	}
	if status != "Active" || approval != "pending_review" {
		t.Fatalf("expected Active/pending_review, got %s/%s", status, approval)
	}
	if signature == nil || *signature != signaturePNG {
		t.Fatal("expected the signer's payload recorded as the digital signature")
	}

	var noteCount int
	if err := mustQueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND type = $2`, adminID, notification.TypeAgreementSigned).Scan(&noteCount); err != nil {
		t.Fatalf("verify notifications: %v", err)
	}
	if noteCount != 1 {
		t.Fatalf("expected one admin notification, got %d", noteCount)
	}
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
