package model

// Role values as issued by the external identity provider in the JWT "role"
// claim.  The core never resolves roles itself; it trusts the verified claim.
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAdmin   = "ADMIN"
)

// Caller carries the verified identity of the requesting user into every
// core operation.  It is populated once by the JWT middleware and passed
// explicitly; the core never reaches into ambient request state.
//
// IsBanned gates booking auto-approval: a banned student's booking is
// created as PENDING_APPROVAL instead of CONFIRMED.
type Caller struct {
	UserID   uint64
	Role     string
	IsBanned bool
}

// IsStaff reports whether the caller may act on other users' bookings and
// is exempt from the pre-session lockout on unbook/switch.
func (c Caller) IsStaff() bool {
	return c.Role == RoleTeacher || c.Role == RoleAdmin
}
