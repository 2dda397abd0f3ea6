package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_active_implies_all_signed",
			SQL: `SELECT a.id FROM agreements a
                  JOIN agreement_signers s ON s.agreement_id = a.id
                  WHERE a.status = 'Active' AND s.signing_status <> 'signed'`,
		},
		{
			Name: "O2_active_has_signed_at",
			SQL:  `SELECT id FROM agreements WHERE status = 'Active' AND signed_at IS NULL`,
		},
		{
			Name: "O3_active_has_signed_signer",
			SQL: `SELECT a.id FROM agreements a
                  WHERE a.status = 'Active'
                    AND NOT EXISTS (SELECT 1 FROM agreement_signers s
                                    WHERE s.agreement_id = a.id AND s.signing_status = 'signed')`,
		},
		{
			Name: "O4_signed_signer_has_timestamp",
			SQL:  `SELECT id FROM agreement_signers WHERE signing_status = 'signed' AND signed_at IS NULL`,
		},
		{
			Name: "O5_review_only_after_activation",
			SQL:  `SELECT id FROM agreements WHERE approval_status IN ('pending_review','approved') AND status <> 'Active'`,
		},
		{
			Name: "O6_one_party_per_agreement",
			SQL: `SELECT id FROM agreements
                  WHERE signed_by_client_id IS NOT NULL AND signed_by_staff_id IS NOT NULL`,
		},
		{
			Name: "O7_signature_file_category",
			SQL: `SELECT f.id FROM agreement_files f
                  JOIN agreement_signers s ON s.signature_file_id = f.id
                  WHERE f.category <> 'signature'`,
		},
		{
			Name: "O8_notification_recipients_exist",
			SQL: `SELECT n.id FROM notifications n
                  LEFT JOIN users u ON u.id = n.user_id
                  WHERE u.id IS NULL`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
