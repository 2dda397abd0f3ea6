package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"caresign/agreement"
	"caresign/notification"
	"caresign/party"
	"caresign/review"
	"caresign/schedule"
	"caresign/storage"
	"caresign/test/actors"
	"caresign/test/chaos"
	"caresign/test/infra"
	"caresign/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestSigningConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	// migrations
	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool)

	agreementRepo := agreement.NewRepository(pool)
	parties := party.NewRepository(pool)
	notifier := notification.NewService(notification.NewRepository(pool), nil)
	conversions := agreement.NewConversionService(agreementRepo, parties, nil)
	signings := agreement.NewSigningService(agreementRepo, storage.NewMemoryStore(), notifier, nil)
	scheduling := schedule.NewService(pool, schedule.NewRepository(pool))
	reviews := review.NewService(review.NewRepository(pool))

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})
	created := make(chan string, 256)

	// schedulers feeding converters feeding signers
	g.Go(func() error {
		return actors.Scheduler(ctx2, scheduling, seedData.templateID, seedData.branchID, seedData.clientID, created, stop)
	})
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error { return actors.Converter(ctx2, conversions, created, stop) })
		g.Go(func() error { return actors.Signer(ctx2, pool, signings, stop) })
	}
	g.Go(func() error { return actors.Reviewer(ctx2, reviews, stop) })
	g.Go(func() error { return actors.Canceller(ctx2, pool, scheduling, stop) })
	// chaos: kill random backend
	go chaos.TerminateRandomBackend(ctx2, pool, "", stop)

	// schedule oracle checks until duration reached
	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	orgID      string
	branchID   string
	adminID    string
	clientID   string
	templateID string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	var s seedIDs
	if err := pool.QueryRow(ctx, `INSERT INTO organizations (name) VALUES ('Stress Org') RETURNING id`).Scan(&s.orgID); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO branches (organization_id, name) VALUES ($1, 'Stress Branch') RETURNING id`, s.orgID).Scan(&s.branchID); err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, role, branch_id) VALUES ($1, 'Stress Admin', 'admin', $2) RETURNING id`,
		fmt.Sprintf("admin%d@example.com", rand.Int63()), s.branchID).Scan(&s.adminID); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO clients (branch_id, full_name) VALUES ($1, 'Stress Client') RETURNING id`, s.branchID).Scan(&s.clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO agreement_templates (title, content)
                                  VALUES ('Stress Consent', 'I, {{CLIENT_NAME}}, agree to {{AGREEMENT_TITLE}} on {{TODAY}}.') RETURNING id`).Scan(&s.templateID); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"agreements", `SELECT id, title, status, approval_status, signed_at FROM agreements ORDER BY created_at DESC LIMIT 50`},
		{"agreement_signers", `SELECT id, agreement_id, signer_type, signing_status, signed_at FROM agreement_signers ORDER BY created_at DESC LIMIT 50`},
		{"scheduled_agreements", `SELECT id, title, status, scheduled_for FROM scheduled_agreements ORDER BY created_at DESC LIMIT 50`},
		{"notifications", `SELECT id, user_id, title, type, created_at FROM notifications ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			// compact print
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
