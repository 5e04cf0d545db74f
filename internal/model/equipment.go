package model

import "time"

// Equipment unit types.  UNIT counts discrete items, ML measures volume of
// a consumable.
const (
	UnitTypeUnit = "UNIT"
	UnitTypeML   = "ML"
)

// Equipment is a lab-wide inventory item.  Total is the amount the lab owns;
// per-session offers are tracked separately in SessionEquipment.
type Equipment struct {
	ID             uint64     `json:"id"`
	LabID          uint64     `json:"lab_id"`
	Name           string     `json:"name"`
	Total          int        `json:"total"`
	UnitType       string     `json:"unit_type"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	CreatedBy      uint64     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SessionEquipment is the per-session offer of a lab-wide equipment item.
// Available is how much of the item is offered for the session (never more
// than Equipment.Total); Reserved is how much of that offer is currently
// booked.  Invariant: 0 ≤ Reserved ≤ Available.
type SessionEquipment struct {
	SessionID   uint64 `json:"session_id"`
	EquipmentID uint64 `json:"equipment_id"`
	Available   int    `json:"available"`
	Reserved    int    `json:"reserved"`
}

// EquipmentBooking reserves an amount of a session's equipment offer for a
// specific seat booking.  The sum of Amount over all bookings of a
// (session, equipment) pair equals SessionEquipment.Reserved.
type EquipmentBooking struct {
	ID            uint64 `json:"id"`
	UserID        uint64 `json:"user_id"`
	SessionID     uint64 `json:"session_id"`
	EquipmentID   uint64 `json:"equipment_id"`
	SeatBookingID uint64 `json:"seat_booking_id"`
	Amount        int    `json:"amount"`
	ActualUsed    *int   `json:"actual_used,omitempty"`
}
