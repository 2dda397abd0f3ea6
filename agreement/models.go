package agreement

import "time"

// Scheduled agreement statuses.
const (
	ScheduledStatusUpcoming        = "Upcoming"
	ScheduledStatusPendingApproval = "Pending Approval"
	ScheduledStatusUnderReview     = "Under Review"
	ScheduledStatusCompleted       = "Completed"
	ScheduledStatusCancelled       = "Cancelled"
)

// Agreement statuses and approval statuses.
const (
	StatusPending = "Pending"
	StatusActive  = "Active"

	ApprovalPendingSignatures = "pending_signatures"
	ApprovalPendingReview     = "pending_review"
	ApprovalApproved          = "approved"
)

// Signer types and signing statuses.
const (
	SignerTypeClient = "client"
	SignerTypeStaff  = "staff"
	SignerTypeOther  = "other"

	SigningStatusPending = "pending"
	SigningStatusSigned  = "signed"
)

// Query families the frontend caches agreements under. Conversion and signing
// return the families a caller must refresh; the cache itself lives client-side.
const (
	QueryScheduledAgreements       = "scheduled_agreements"
	QueryAgreements                = "agreements"
	QueryClientScheduledAgreements = "client_scheduled_agreements"
	QueryStaffAgreements           = "staff_agreements"
	QueryClientAgreements          = "client_agreements"
	QueryAgreementSigners          = "agreement_signers"
	QueryClientPendingAgreements   = "client_pending_agreements"
	QueryStaffPendingAgreements    = "staff_pending_agreements"
	QuerySignedAgreements          = "signed_agreements"
)

// Scheduled mirrors the scheduled_agreements columns touched by conversion,
// joined with the agreement type name.
type Scheduled struct {
	ID           string
	Title        string
	Status       string
	TemplateID   *string
	TypeID       *string
	TypeName     string
	BranchID     *string
	WithClientID *string
	WithStaffID  *string
	WithName     string
	ScheduledFor time.Time
	Notes        *string
	CreatedAt    time.Time
}

// Template holds raw agreement content with placeholder tokens.
type Template struct {
	ID      string
	Title   string
	Content string
}

// Agreement is the live, signable document instance.
type Agreement struct {
	ID               string
	Title            string
	Content          *string
	TypeID           *string
	TemplateID       *string
	BranchID         *string
	Status           string
	ApprovalStatus   string
	SignedByClientID *string
	SignedByStaffID  *string
	SigningParty     string
	SignedByName     string
	SignedAt         *time.Time
	DigitalSignature *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Signer is one required signature party on an agreement.
type Signer struct {
	ID              string
	AgreementID     string
	SignerType      string
	SignerID        *string
	SignerName      string
	SignerAuthUser  *string
	SigningStatus   string
	SignedAt        *time.Time
	SignatureFileID *string
	AdminApproved   bool
	CreatedAt       time.Time
}

// NewAgreement enumerates the insert parameters for a converted agreement.
type NewAgreement struct {
	Title            string
	Content          *string
	TypeID           *string
	TemplateID       *string
	BranchID         *string
	SignedByClientID *string
	SignedByStaffID  *string
	SigningParty     string
	SignedByName     string
}

// NewSigner enumerates the insert parameters for the signer row created
// alongside a converted agreement.
type NewSigner struct {
	AgreementID    string
	SignerType     string
	SignerID       *string
	SignerName     string
	SignerAuthUser *string
}

// SignerContext is the display information fetched for the post-signature
// admin notification.
type SignerContext struct {
	AgreementTitle string
	BranchID       *string
	SignerName     string
	SignerType     string
	SignerAuthUser *string
}

// ConvertOutcome reports a successful conversion plus the query families the
// caller must invalidate and any degraded best-effort steps.
type ConvertOutcome struct {
	AgreementID string
	SignerID    string
	Invalidate  []string
	Degraded    []string
}

// SignOutcome reports the result of recording one signature.
type SignOutcome struct {
	AllSigned  bool
	Invalidate []string
	Degraded   []string
}
