package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

// ErrInvalidAttendance is returned for an unknown attendance status.
var ErrInvalidAttendance = errors.New("invalid attendance status")

// ErrSessionNotEnded is returned when attendance is marked before the
// session's end time has passed.
var ErrSessionNotEnded = errors.New("session has not ended yet")

// AttendanceMarks is the persistence port for attendance;
// *repository.AttendanceRepo satisfies it.
type AttendanceMarks interface {
	Upsert(ctx context.Context, a *model.Attendance) error
}

// AttendanceService records who showed up after a session ended.
type AttendanceService struct {
	store Store
	marks AttendanceMarks
	log   zerolog.Logger

	now func() time.Time
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(store Store, marks AttendanceMarks, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{store: store, marks: marks, log: log, now: time.Now}
}

// Mark records or overwrites an attendance status for a user in a session.
// Staff only, and only once the session has ended.  The user must have
// held a seat booking in the session.
func (s *AttendanceService) Mark(ctx context.Context, caller model.Caller, sessionID, userID uint64, status string, notes *string) (*model.Attendance, error) {
	if !caller.IsStaff() {
		return nil, repository.ErrForbidden
	}
	if !model.ValidAttendanceStatus(status) {
		return nil, ErrInvalidAttendance
	}
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		sess, err := tx.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		if s.now().UTC().Before(sess.EndsAt) {
			return ErrSessionNotEnded
		}
		_, err = tx.BookingBySessionAndUser(ctx, sessionID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	a := &model.Attendance{
		UserID:    userID,
		SessionID: sessionID,
		Status:    status,
		MarkedBy:  caller.UserID,
		MarkedAt:  s.now().UTC(),
		Notes:     notes,
	}
	if err := s.marks.Upsert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
