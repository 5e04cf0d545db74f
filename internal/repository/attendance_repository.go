package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// AttendanceRepo provides persistence for post-session attendance marks.
type AttendanceRepo struct {
	db *sql.DB
}

// NewAttendanceRepo constructs an AttendanceRepo with the given DB handle.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

// Upsert creates or overwrites the attendance mark for (user, session).
// Repeated marks by staff replace the previous status and notes.
func (r *AttendanceRepo) Upsert(ctx context.Context, a *model.Attendance) error {
	const q = `INSERT INTO attendance (user_id, session_id, status, marked_by, marked_at, notes)
	           VALUES (?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE status = VALUES(status), marked_by = VALUES(marked_by),
	                                   marked_at = VALUES(marked_at), notes = VALUES(notes)`
	_, err := r.db.ExecContext(ctx, q, a.UserID, a.SessionID, a.Status, a.MarkedBy, a.MarkedAt.UTC(), a.Notes)
	return err
}

// ListBySession returns all attendance marks of a session.
func (r *AttendanceRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Attendance, error) {
	const q = `SELECT user_id, session_id, status, marked_by, marked_at, notes
	           FROM attendance WHERE session_id = ? ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Attendance
	for rows.Next() {
		var a model.Attendance
		var notes sql.NullString
		if err := rows.Scan(&a.UserID, &a.SessionID, &a.Status, &a.MarkedBy, &a.MarkedAt, &notes); err != nil {
			return nil, err
		}
		if notes.Valid {
			n := notes.String
			a.Notes = &n
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
