package schedule

import "time"

type Status string

const (
	StatusUpcoming        Status = "Upcoming"
	StatusPendingApproval Status = "Pending Approval"
	StatusUnderReview     Status = "Under Review"
	StatusCompleted       Status = "Completed"
	StatusCancelled       Status = "Cancelled"
)

// ScheduledAgreement is a future-dated intent to obtain a signature, not yet
// a live document.
type ScheduledAgreement struct {
	ID           string
	Title        string
	Status       Status
	TemplateID   *string
	TypeID       *string
	BranchID     *string
	WithClientID *string
	WithStaffID  *string
	WithName     string
	ScheduledFor time.Time
	Notes        *string
	CreatedAt    time.Time
}

type Filters struct {
	BranchID string
	ClientID string
	StaffID  string
	Status   Status
	Page     int
	PageSize int
}
