package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

// ErrInvalidWindow is returned for session windows that are malformed or
// shorter than model.MinSessionDuration.
var ErrInvalidWindow = errors.New("invalid session time window")

// ErrInvalidLabConfig is returned when a session is created on a lab whose
// layout yields no bookable seats.
var ErrInvalidLabConfig = errors.New("lab layout has no bookable seats")

// SessionService manages the session lifecycle: creation with overlap
// checks, rescheduling and cascading removal.
type SessionService struct {
	store Store
	log   zerolog.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(store Store, log zerolog.Logger) *SessionService {
	return &SessionService{store: store, log: log}
}

// Create opens a new session on the lab.  Staff only.  The lab row is
// locked for the duration of the transaction so the overlap check and the
// insert are atomic with respect to concurrent creates on the same lab.
// Initial capacity is the layout's total seat count.
func (s *SessionService) Create(ctx context.Context, caller model.Caller, labID uint64, startsAt, endsAt time.Time) (*model.Session, error) {
	if !caller.IsStaff() {
		return nil, repository.ErrForbidden
	}
	if err := validateWindow(startsAt, endsAt); err != nil {
		return nil, err
	}

	var sess *model.Session
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		lab, err := tx.LockLab(ctx, labID)
		if err != nil {
			return err
		}
		total := lab.Layout.TotalSeats()
		if total <= 0 {
			return ErrInvalidLabConfig
		}
		overlap, err := tx.HasOverlap(ctx, labID, startsAt, endsAt, 0)
		if err != nil {
			return err
		}
		if overlap {
			return repository.ErrConflict
		}
		sess = &model.Session{
			LabID:     labID,
			StartsAt:  startsAt.UTC(),
			EndsAt:    endsAt.UTC(),
			Capacity:  total,
			CreatedBy: caller.UserID,
		}
		return tx.CreateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateTimes moves a session to a new window.  Staff only.  The overlap
// check excludes the session itself so it can shrink or shift in place.
// Existing bookings travel with the window untouched.
func (s *SessionService) UpdateTimes(ctx context.Context, caller model.Caller, sessionID uint64, startsAt, endsAt time.Time) (*model.Session, error) {
	if !caller.IsStaff() {
		return nil, repository.ErrForbidden
	}
	if err := validateWindow(startsAt, endsAt); err != nil {
		return nil, err
	}

	var sess *model.Session
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		sess, err = tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, err := tx.LockLab(ctx, sess.LabID); err != nil {
			return err
		}
		overlap, err := tx.HasOverlap(ctx, sess.LabID, startsAt, endsAt, sessionID)
		if err != nil {
			return err
		}
		if overlap {
			return repository.ErrConflict
		}
		if err := tx.UpdateSessionTimes(ctx, sessionID, startsAt, endsAt); err != nil {
			return err
		}
		sess.StartsAt = startsAt.UTC()
		sess.EndsAt = endsAt.UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Remove deletes the session and everything scoped to it: attendance,
// equipment bookings, equipment offers and seat bookings.  Staff only.
func (s *SessionService) Remove(ctx context.Context, caller model.Caller, sessionID uint64) error {
	if !caller.IsStaff() {
		return repository.ErrForbidden
	}
	return s.store.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.LockSession(ctx, sessionID); err != nil {
			return err
		}
		return tx.DeleteSessionCascade(ctx, sessionID)
	})
}

func validateWindow(startsAt, endsAt time.Time) error {
	if !endsAt.After(startsAt) {
		return ErrInvalidWindow
	}
	if endsAt.Sub(startsAt) < model.MinSessionDuration {
		return ErrInvalidWindow
	}
	return nil
}
