package party

import "time"

// Person is the resolved identity of a client or staff member: the durable
// record id plus the auth-bound user id when the person has a login.
type Person struct {
	ID         string
	BranchID   *string
	FullName   string
	AuthUserID *string
	CreatedAt  time.Time
}
