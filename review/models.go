package review

import "time"

// Record is an agreement awaiting (or past) admin review after all signers
// have signed.
type Record struct {
	ID             string
	Title          string
	BranchID       *string
	Status         string
	ApprovalStatus string
	SignedAt       *time.Time
	UpdatedAt      time.Time
}
