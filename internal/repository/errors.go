// Package repository defines error types that are reused across multiple
// repositories and the services built on top of them. These sentinel values
// allow higher layers such as handlers to distinguish between different
// failure scenarios without inspecting opaque storage errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation they are
// not allowed to perform, such as acting on another user's booking without
// a staff role. Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrLockedOut is returned when a non-staff booking change is attempted
// inside the 15-minute window before session start. Translated to 403.
var ErrLockedOut = errors.New("booking is locked before session start")

// ErrConflict is returned when a session create or update would overlap an
// existing session on the same lab. Translated to 409.
var ErrConflict = errors.New("conflicting session on this lab")

// ErrSeatTaken is returned when the requested seat already has a booking in
// the session. It is produced both by the in-transaction existence check and
// by remapping the storage uniqueness violation on (session_id, seat_id).
var ErrSeatTaken = errors.New("seat already booked in this session")

// ErrAlreadyBooked is returned when the user already holds a seat in the
// session. Backed by the uniqueness constraint on (session_id, user_id).
var ErrAlreadyBooked = errors.New("user already has a seat in this session")

// ErrSessionFull is returned when the conditional capacity decrement affects
// zero rows. It is surfaced distinctly from ErrConflict because it stems
// from the capacity compare-and-set, not a uniqueness violation.
var ErrSessionFull = errors.New("session is full")

// ErrInsufficientEquipment is returned when a reservation would exceed the
// available amount of a session's equipment offer.
var ErrInsufficientEquipment = errors.New("insufficient equipment available")

// ErrReservationsExist is returned when a session equipment offer with
// outstanding reservations would be deleted.
var ErrReservationsExist = errors.New("equipment offer has active reservations")

// ErrBelowReserved is returned when an update would set a session equipment
// offer below its currently reserved amount.
var ErrBelowReserved = errors.New("available cannot drop below reserved")

// ErrExceedsInventory is returned when a session equipment offer exceeds the
// lab-wide inventory total of the item.
var ErrExceedsInventory = errors.New("offer exceeds lab inventory")

// Not-found sentinels, one per entity.
var (
	ErrLabNotFound              = errors.New("lab not found")
	ErrSeatNotFound             = errors.New("seat not found")
	ErrSessionNotFound          = errors.New("session not found")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrEquipmentNotFound        = errors.New("equipment not found")
	ErrSessionEquipmentNotFound = errors.New("session equipment not found")
)

// LayoutConflictError is returned when a layout change would strand an
// existing future booking. It carries enough detail to tell the caller
// which seat and user block the change.
type LayoutConflictError struct {
	SeatName  string
	UserID    uint64
	SessionID uint64
}

func (e *LayoutConflictError) Error() string {
	return fmt.Sprintf("seat %s in session %d is booked by user %d and not representable under the new layout",
		e.SeatName, e.SessionID, e.UserID)
}

// Unique key names from migrations/schema.sql, used to decide how a
// duplicate-key violation on seat_bookings should be remapped.
const (
	uqBookingSeat = "uq_booking_session_seat"
	uqBookingUser = "uq_booking_session_user"
)

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (errno 1062), optionally on the named unique key.
func isDuplicateKey(err error, keyName string) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return false
	}
	if keyName == "" {
		return true
	}
	// MySQL formats 1062 as: Duplicate entry '...' for key 'table.key_name'.
	return strings.Contains(me.Message, keyName)
}
