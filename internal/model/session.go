package model

import "time"

// MinSessionDuration is the shortest allowed session time window.
const MinSessionDuration = 5 * time.Minute

// BookingLockout is the period before a session's start during which
// ordinary users can no longer change bookings.
const BookingLockout = 15 * time.Minute

// Session is a bounded time window on a lab during which seats can be
// booked.  Capacity is the denormalized count of currently unbooked seats;
// it is maintained incrementally by every booking mutation and must equal
// totalSeats(layout at last resize) − count(seat bookings) at rest.
//
// The reminder timestamps are idempotency markers set by the periodic
// reminder scan to guarantee at most one reminder per session per kind.
type Session struct {
	ID                    uint64     `json:"id"`
	LabID                 uint64     `json:"lab_id"`
	StartsAt              time.Time  `json:"starts_at"`
	EndsAt                time.Time  `json:"ends_at"`
	Capacity              int        `json:"capacity"`
	CreatedBy             uint64     `json:"created_by"`
	StudentReminderSentAt *time.Time `json:"student_reminder_sent_at,omitempty"`
	TeacherReminderSentAt *time.Time `json:"teacher_reminder_sent_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// LockTime returns the instant from which non-staff booking changes are
// rejected.  The comparison is strict: a request at exactly LockTime still
// succeeds, one nanosecond later fails.
func (s *Session) LockTime() time.Time {
	return s.StartsAt.Add(-BookingLockout)
}

// Locked reports whether the lockout window has begun at the given instant.
func (s *Session) Locked(now time.Time) bool {
	return now.After(s.LockTime())
}

// Overlaps implements the interval conflict rule used for sessions on the
// same lab: boundaries count as conflict, so a session ending exactly when
// another starts is rejected.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
