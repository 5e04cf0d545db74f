package model

import "time"

// Seat booking statuses.  PENDING_APPROVAL is applied automatically when the
// booking user is banned; staff later confirm or reject it.  A pending
// booking still occupies its seat and counts against capacity.
const (
	BookingConfirmed       = "CONFIRMED"
	BookingPendingApproval = "PENDING_APPROVAL"
	BookingRejected        = "REJECTED"
)

// SeatBooking ties one user to one seat within one session.  Both
// (SessionID, UserID) and (SessionID, SeatID) are unique at the storage
// layer; those constraints are the final backstop against double booking
// under concurrent transactions.
type SeatBooking struct {
	ID        uint64    `json:"id"`
	SessionID uint64    `json:"session_id"`
	SeatID    uint64    `json:"seat_id"`
	UserID    uint64    `json:"user_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusForCaller returns the initial status a new booking receives:
// PENDING_APPROVAL for banned users, CONFIRMED otherwise.
func StatusForCaller(c Caller) string {
	if c.IsBanned {
		return BookingPendingApproval
	}
	return BookingConfirmed
}
