// Package notify defines the notification events emitted by the booking
// core and the message-broker plumbing that delivers them.  Events are
// published strictly after the owning transaction commits and are
// best-effort: a publish failure is logged and never surfaced to the
// caller whose booking already succeeded.
package notify

// Event kinds carried in BookingEvent.Kind.
const (
	KindBookingConfirmed = "booking.confirmed"
	KindBookingPending   = "booking.pending_approval"
	KindBookingCancelled = "booking.cancelled"
	KindStatusChanged    = "booking.status_changed"
)

// Reminder kinds carried in ReminderEvent.Kind.
const (
	KindStudentReminder = "reminder.student"
	KindTeacherReminder = "reminder.teacher"
)

// BookingEvent describes a booking lifecycle transition.  It contains
// enough information for the mail consumer to render a message without
// querying the primary database.
type BookingEvent struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind"`
	BookingID  uint64 `json:"booking_id"`
	UserID     uint64 `json:"user_id"`
	SessionID  uint64 `json:"session_id"`
	LabName    string `json:"lab_name"`
	SeatName   string `json:"seat_name"`
	Status     string `json:"status"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
	// TeacherID is the session creator; set on pending-approval events so
	// the consumer can also mail the staff member who must approve.
	TeacherID  uint64 `json:"teacher_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// ReminderEvent is emitted by the periodic reminder scan for sessions
// entering one of the lookahead windows.
type ReminderEvent struct {
	EventID   string `json:"event_id"`
	Kind      string `json:"kind"`
	SessionID uint64 `json:"session_id"`
	LabID     uint64 `json:"lab_id"`
	StartsAt  string `json:"starts_at"`
	EndsAt    string `json:"ends_at"`
	TeacherID uint64 `json:"teacher_id"`
}
