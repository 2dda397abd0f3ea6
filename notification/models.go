package notification

import "time"

// Notification mirrors the notifications table columns written by fan-out.
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      string
	Read      bool
	CreatedAt time.Time
}

// AgreementSignedParams is the contract of the agreement-signed fan-out,
// consumed fire-and-forget by the signing workflow.
type AgreementSignedParams struct {
	AgreementID      string
	AgreementTitle   string
	SignerName       string
	SignerType       string
	SignerAuthUserID *string
	BranchID         *string
}

// FanoutResult counts delivered and skipped recipients. There are no partial
// success semantics beyond skipping invalid recipients.
type FanoutResult struct {
	Inserted int
	Skipped  int
}

const TypeAgreementSigned = "agreement_signed"
