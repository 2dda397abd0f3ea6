package actors

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caresign/agreement"
	"caresign/review"
	"caresign/schedule"
)

var signaturePayload = base64.StdEncoding.EncodeToString([]byte("stress signature"))

// Scheduler books future-dated agreements with the seeded client and feeds
// their ids to the converters. The channel push is non-blocking so a slow
// converter never stalls scheduling.
func Scheduler(ctx context.Context, svc *schedule.Service, templateID, branchID, clientID string, created chan<- string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		rec, err := svc.Create(ctx, schedule.CreateParams{
			Title:        fmt.Sprintf("Stress Consent %d", rand.Int63()),
			TemplateID:   &templateID,
			BranchID:     &branchID,
			WithClientID: &clientID,
			WithName:     "Stress Client",
			ScheduledFor: time.Now().Add(time.Hour),
		})
		if err == nil {
			select {
			case created <- rec.ID:
			default:
			}
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Converter turns scheduled agreements into live ones. Conversion is not
// idempotent, so a converter never retries an id it already consumed.
func Converter(ctx context.Context, svc *agreement.ConversionService, created <-chan string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case id := <-created:
			if _, err := svc.Convert(ctx, id); err != nil && !errors.Is(err, agreement.ErrScheduledNotFound) {
				// tolerated under chaos, the oracle sweep catches real damage
				time.Sleep(20 * time.Millisecond)
			}
		}
	}
}

// Signer races other signers for pending signer rows, including rows another
// goroutine is signing at the same moment.
func Signer(ctx context.Context, pool *pgxpool.Pool, svc *agreement.SigningService, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var signerID, agreementID string
		err := pool.QueryRow(ctx, `SELECT id, agreement_id FROM agreement_signers
                                   WHERE signing_status = 'pending'
                                   ORDER BY random() LIMIT 1`).Scan(&signerID, &agreementID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) && ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(25 * time.Millisecond)
			continue
		}
		_, err = svc.Sign(ctx, agreement.SignRequest{
			AgreementID:   agreementID,
			SignerID:      signerID,
			SignatureData: signaturePayload,
		})
		if err != nil && !errors.Is(err, agreement.ErrSignerNotFound) && ctx.Err() != nil {
			return ctx.Err()
		}
		time.Sleep(time.Duration(10+rand.Intn(30)) * time.Millisecond)
	}
}

// Reviewer approves whatever reaches pending_review, racing the activation
// path that feeds it.
func Reviewer(ctx context.Context, svc *review.Service, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		records, err := svc.ListPending(ctx, "")
		if err == nil {
			for _, rec := range records {
				if _, err := svc.Approve(ctx, rec.ID); err != nil &&
					!errors.Is(err, review.ErrNotFound) && !errors.Is(err, review.ErrBadStatus) {
					break
				}
			}
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// Canceller picks upcoming scheduled agreements and cancels them, losing
// some races to the converters.
func Canceller(ctx context.Context, pool *pgxpool.Pool, svc *schedule.Service, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var id string
		err := pool.QueryRow(ctx, `SELECT id FROM scheduled_agreements
                                   WHERE status = 'Upcoming'
                                   ORDER BY random() LIMIT 1`).Scan(&id)
		if err == nil {
			_, err = svc.Cancel(ctx, schedule.CancelParams{ScheduledID: id, ActorRole: "admin"})
			if err != nil &&
				!errors.Is(err, schedule.ErrCancelInvalidState) &&
				!errors.Is(err, schedule.ErrNotFound) && ctx.Err() != nil {
				return ctx.Err()
			}
		}
		time.Sleep(time.Duration(100+rand.Intn(150)) * time.Millisecond)
	}
}
