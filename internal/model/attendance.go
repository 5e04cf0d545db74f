package model

import "time"

// Attendance statuses recorded by staff after a session ends.
const (
	AttendancePresent = "PRESENT"
	AttendanceAbsent  = "ABSENT"
	AttendanceExcused = "EXCUSED"
)

// Attendance records whether a user showed up to a session.  The composite
// key is (UserID, SessionID); repeated marks overwrite the previous one.
type Attendance struct {
	UserID    uint64    `json:"user_id"`
	SessionID uint64    `json:"session_id"`
	Status    string    `json:"status"`
	MarkedBy  uint64    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"`
	Notes     *string   `json:"notes,omitempty"`
}

// ValidAttendanceStatus reports whether s is one of the known statuses.
func ValidAttendanceStatus(s string) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceExcused:
		return true
	}
	return false
}
