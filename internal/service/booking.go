package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/notify"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

// EquipmentLine is one requested equipment reservation attached to a seat
// booking.
type EquipmentLine struct {
	EquipmentID uint64 `json:"equipment_id" validate:"required"`
	Amount      int    `json:"amount" validate:"required,gt=0"`
}

// BookingService is the booking transaction engine.  Each operation runs as
// a single storage transaction; notification dispatch happens strictly
// after commit and never influences the operation's result.
type BookingService struct {
	store    Store
	notifier Notifier
	log      zerolog.Logger

	// now is the clock used for lockout checks; overridable in tests.
	now func() time.Time
}

// NewBookingService constructs a BookingService.
func NewBookingService(store Store, notifier Notifier, log zerolog.Logger) *BookingService {
	return &BookingService{store: store, notifier: notifier, log: log, now: time.Now}
}

// BookSeat books a seat for the caller in the given session, optionally
// reserving equipment lines in the same transaction.
//
// The pre-session lockout applies to everyone here, staff included.  Staff
// are exempt only on unbook and switch; see DESIGN.md before unifying.
func (s *BookingService) BookSeat(ctx context.Context, caller model.Caller, sessionID, labID uint64, seatName string, notes *string, equipment []EquipmentLine) (*model.SeatBooking, error) {
	var booking *model.SeatBooking
	var sess *model.Session
	var lab *model.Lab

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		lab, err = tx.Lab(ctx, labID)
		if err != nil {
			return err
		}
		ref, err := lab.Layout.Resolve(seatName)
		if err != nil {
			return err
		}
		sess, err = tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.LabID != labID {
			return repository.ErrSessionNotFound
		}
		if sess.Locked(s.now().UTC()) {
			return repository.ErrLockedOut
		}
		seat, err := tx.GetOrCreateSeat(ctx, labID, ref)
		if err != nil {
			return err
		}
		if _, err := tx.BookingBySessionAndUser(ctx, sessionID, caller.UserID); err == nil {
			return repository.ErrAlreadyBooked
		} else if !errors.Is(err, repository.ErrBookingNotFound) {
			return err
		}
		if _, err := tx.BookingBySessionAndSeat(ctx, sessionID, seat.ID); err == nil {
			return repository.ErrSeatTaken
		} else if !errors.Is(err, repository.ErrBookingNotFound) {
			return err
		}
		// The conditional decrement is the concurrency guard: it only lands
		// while capacity is positive, so two racing bookings cannot both
		// take the last seat.
		if err := tx.DecrementCapacity(ctx, sessionID); err != nil {
			return err
		}
		booking = &model.SeatBooking{
			SessionID: sessionID,
			SeatID:    seat.ID,
			UserID:    caller.UserID,
			Name:      ref.Name,
			Status:    model.StatusForCaller(caller),
			Notes:     notes,
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return err
		}
		for _, line := range equipment {
			if line.Amount <= 0 {
				return fmt.Errorf("%w: amount must be positive", repository.ErrInsufficientEquipment)
			}
			eq, err := tx.Equipment(ctx, line.EquipmentID)
			if err != nil {
				return err
			}
			if eq.LabID != labID {
				return repository.ErrEquipmentNotFound
			}
			if err := tx.ReserveEquipment(ctx, sessionID, line.EquipmentID, line.Amount); err != nil {
				return err
			}
			eb := &model.EquipmentBooking{
				UserID:        caller.UserID,
				SessionID:     sessionID,
				EquipmentID:   line.EquipmentID,
				SeatBookingID: booking.ID,
				Amount:        line.Amount,
			}
			if err := tx.InsertEquipmentBooking(ctx, eb); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := notify.KindBookingConfirmed
	if booking.Status == model.BookingPendingApproval {
		kind = notify.KindBookingPending
	}
	s.publishBooking(ctx, kind, booking, sess, lab)
	return booking, nil
}

// UnbookSeat removes the booking on the named seat.  Staff may remove any
// user's booking by setting asTeacher; ordinary users can only remove their
// own and only outside the lockout window.
func (s *BookingService) UnbookSeat(ctx context.Context, caller model.Caller, sessionID, labID uint64, seatName string, asTeacher bool) error {
	row, num, edge, err := layout.ParseSeatName(seatName)
	if err != nil {
		return err
	}
	canonical := layout.EdgeSeatName
	if !edge {
		canonical = fmt.Sprintf("%s%d", row, num)
	}

	var removed []model.SeatBooking
	var sess *model.Session
	var lab *model.Lab

	err = s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		lab, err = tx.Lab(ctx, labID)
		if err != nil {
			return err
		}
		seat, err := tx.SeatByName(ctx, labID, canonical)
		if err != nil {
			return err
		}
		sess, err = tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.LabID != labID {
			return repository.ErrSessionNotFound
		}
		if !caller.IsStaff() && sess.Locked(s.now().UTC()) {
			return repository.ErrLockedOut
		}
		if asTeacher && !caller.IsStaff() {
			return repository.ErrForbidden
		}
		matches, err := tx.BookingsForUnbook(ctx, sessionID, seat.ID, caller.UserID, asTeacher)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return repository.ErrBookingNotFound
		}
		for _, b := range matches {
			lines, err := tx.EquipmentBookingsForSeatBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			for _, eb := range lines {
				if err := tx.ReleaseEquipment(ctx, sessionID, eb.EquipmentID, eb.Amount); err != nil {
					return err
				}
			}
			if err := tx.DeleteEquipmentBookingsForSeatBooking(ctx, b.ID); err != nil {
				return err
			}
			if err := tx.DeleteBooking(ctx, b.ID); err != nil {
				return err
			}
		}
		removed = matches
		return tx.IncrementCapacity(ctx, sessionID, len(matches))
	})
	if err != nil {
		return err
	}

	for i := range removed {
		s.publishBooking(ctx, notify.KindBookingCancelled, &removed[i], sess, lab)
	}
	return nil
}

// SwitchSeat moves the caller's existing booking to another seat in the
// same session.  Capacity is unaffected: one seat trades for another.
// Switching to the currently held seat is a no-op returning the booking.
func (s *BookingService) SwitchSeat(ctx context.Context, caller model.Caller, sessionID, labID uint64, newSeatName string) (*model.SeatBooking, error) {
	var booking *model.SeatBooking

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		lab, err := tx.Lab(ctx, labID)
		if err != nil {
			return err
		}
		ref, err := lab.Layout.Resolve(newSeatName)
		if err != nil {
			return err
		}
		sess, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.LabID != labID {
			return repository.ErrSessionNotFound
		}
		if !caller.IsStaff() && sess.Locked(s.now().UTC()) {
			return repository.ErrLockedOut
		}
		booking, err = tx.BookingBySessionAndUser(ctx, sessionID, caller.UserID)
		if err != nil {
			return err
		}
		if booking.Name == ref.Name {
			return nil
		}
		seat, err := tx.GetOrCreateSeat(ctx, labID, ref)
		if err != nil {
			return err
		}
		if _, err := tx.BookingBySessionAndSeat(ctx, sessionID, seat.ID); err == nil {
			return repository.ErrSeatTaken
		} else if !errors.Is(err, repository.ErrBookingNotFound) {
			return err
		}
		if err := tx.UpdateBookingSeat(ctx, booking.ID, seat.ID, ref.Name); err != nil {
			return err
		}
		booking.SeatID = seat.ID
		booking.Name = ref.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Approve confirms a pending booking.  Staff only.
func (s *BookingService) Approve(ctx context.Context, caller model.Caller, bookingID uint64) (*model.SeatBooking, error) {
	return s.decide(ctx, caller, bookingID, true)
}

// Reject removes a pending booking, restoring capacity and releasing any
// equipment it reserved.  Staff only.
func (s *BookingService) Reject(ctx context.Context, caller model.Caller, bookingID uint64) (*model.SeatBooking, error) {
	return s.decide(ctx, caller, bookingID, false)
}

func (s *BookingService) decide(ctx context.Context, caller model.Caller, bookingID uint64, approve bool) (*model.SeatBooking, error) {
	if !caller.IsStaff() {
		return nil, repository.ErrForbidden
	}
	var booking *model.SeatBooking
	var sess *model.Session
	var lab *model.Lab

	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		booking, err = tx.BookingByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != model.BookingPendingApproval {
			return repository.ErrConflict
		}
		sess, err = tx.LockSession(ctx, booking.SessionID)
		if err != nil {
			return err
		}
		lab, err = tx.Lab(ctx, sess.LabID)
		if err != nil {
			return err
		}
		if approve {
			booking.Status = model.BookingConfirmed
			return tx.UpdateBookingStatus(ctx, bookingID, model.BookingConfirmed)
		}
		lines, err := tx.EquipmentBookingsForSeatBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		for _, eb := range lines {
			if err := tx.ReleaseEquipment(ctx, booking.SessionID, eb.EquipmentID, eb.Amount); err != nil {
				return err
			}
		}
		if err := tx.DeleteEquipmentBookingsForSeatBooking(ctx, bookingID); err != nil {
			return err
		}
		if err := tx.DeleteBooking(ctx, bookingID); err != nil {
			return err
		}
		booking.Status = model.BookingRejected
		return tx.IncrementCapacity(ctx, booking.SessionID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.publishBooking(ctx, notify.KindStatusChanged, booking, sess, lab)
	return booking, nil
}

// publishBooking emits a booking lifecycle event.  Failures are logged and
// swallowed: the transaction already committed and the caller's result must
// not depend on the broker.
func (s *BookingService) publishBooking(ctx context.Context, kind string, b *model.SeatBooking, sess *model.Session, lab *model.Lab) {
	ev := notify.BookingEvent{
		EventID:    uuid.NewString(),
		Kind:       kind,
		BookingID:  b.ID,
		UserID:     b.UserID,
		SessionID:  b.SessionID,
		LabName:    lab.Name,
		SeatName:   b.Name,
		Status:     b.Status,
		StartsAt:   sess.StartsAt.UTC().Format(time.RFC3339),
		EndsAt:     sess.EndsAt.UTC().Format(time.RFC3339),
		OccurredAt: s.now().UTC().Format(time.RFC3339),
	}
	if kind == notify.KindBookingPending {
		ev.TeacherID = sess.CreatedBy
	}
	if err := s.notifier.PublishBooking(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Uint64("booking_id", b.ID).Msg("booking notification dropped")
	}
}
