// Package service implements the booking core: session lifecycle, the seat
// booking transaction engine, layout changes, the equipment reservation
// ledger, attendance and reminders.  Every operation takes an explicit
// model.Caller; the package never reads identity from ambient state.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
	"github.com/iliyamo/lab-seat-reservation/internal/notify"
	"github.com/iliyamo/lab-seat-reservation/internal/repository"
)

// Store opens transactions against the backing storage.  Production code
// uses the adapter over repository.Store below; tests substitute an
// in-memory implementation.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view the core operates on.  The contract mirrors
// what the schema guarantees: DecrementCapacity and ReserveEquipment are
// conditional updates that fail rather than go negative, and InsertBooking
// surfaces uniqueness violations as repository.ErrSeatTaken /
// repository.ErrAlreadyBooked.
type Tx interface {
	Lab(ctx context.Context, id uint64) (*model.Lab, error)
	LockLab(ctx context.Context, id uint64) (*model.Lab, error)
	UpdateLabLayout(ctx context.Context, labID uint64, l layout.Layout) error
	CreateMissingSeats(ctx context.Context, labID uint64, l layout.Layout) error

	GetOrCreateSeat(ctx context.Context, labID uint64, ref layout.SeatRef) (*model.Seat, error)
	SeatByName(ctx context.Context, labID uint64, name string) (*model.Seat, error)

	Session(ctx context.Context, id uint64) (*model.Session, error)
	LockSession(ctx context.Context, id uint64) (*model.Session, error)
	CreateSession(ctx context.Context, s *model.Session) error
	UpdateSessionTimes(ctx context.Context, id uint64, startsAt, endsAt time.Time) error
	DeleteSessionCascade(ctx context.Context, id uint64) error
	HasOverlap(ctx context.Context, labID uint64, startsAt, endsAt time.Time, excludeID uint64) (bool, error)
	FutureSessions(ctx context.Context, labID uint64, after time.Time) ([]*model.Session, error)
	SetSessionCapacity(ctx context.Context, id uint64, capacity int) error
	DecrementCapacity(ctx context.Context, id uint64) error
	IncrementCapacity(ctx context.Context, id uint64, by int) error

	InsertBooking(ctx context.Context, b *model.SeatBooking) error
	BookingBySessionAndUser(ctx context.Context, sessionID, userID uint64) (*model.SeatBooking, error)
	BookingBySessionAndSeat(ctx context.Context, sessionID, seatID uint64) (*model.SeatBooking, error)
	BookingByID(ctx context.Context, id uint64) (*model.SeatBooking, error)
	BookingsForUnbook(ctx context.Context, sessionID, seatID, userID uint64, anyUser bool) ([]model.SeatBooking, error)
	DeleteBooking(ctx context.Context, id uint64) error
	UpdateBookingSeat(ctx context.Context, id, seatID uint64, name string) error
	UpdateBookingStatus(ctx context.Context, id uint64, status string) error
	FutureBookedSeats(ctx context.Context, labID uint64) ([]model.SeatBooking, error)

	Equipment(ctx context.Context, id uint64) (*model.Equipment, error)
	EquipmentOffer(ctx context.Context, sessionID, equipmentID uint64) (*model.SessionEquipment, error)
	EquipmentOffers(ctx context.Context, sessionID uint64) ([]model.SessionEquipment, error)
	ReserveEquipment(ctx context.Context, sessionID, equipmentID uint64, amount int) error
	ReleaseEquipment(ctx context.Context, sessionID, equipmentID uint64, amount int) error
	UpsertEquipmentOffer(ctx context.Context, sessionID, equipmentID uint64, available int) error
	DeleteEquipmentOffer(ctx context.Context, sessionID, equipmentID uint64) error
	InsertEquipmentBooking(ctx context.Context, eb *model.EquipmentBooking) error
	EquipmentBookingsForSeatBooking(ctx context.Context, seatBookingID uint64) ([]model.EquipmentBooking, error)
	DeleteEquipmentBookingsForSeatBooking(ctx context.Context, seatBookingID uint64) error
}

// Notifier is the outbound notification port.  Implementations must be
// safe to call after commit and must never block the request path for
// long; the core logs and swallows their errors.
type Notifier interface {
	PublishBooking(ctx context.Context, ev notify.BookingEvent) error
	PublishReminder(ctx context.Context, ev notify.ReminderEvent) error
}

// sqlStore adapts repository.Store to the Store interface.
type sqlStore struct {
	inner *repository.Store
}

// NewStore wraps a repository.Store for use by the services.
func NewStore(rs *repository.Store) Store {
	return sqlStore{inner: rs}
}

func (s sqlStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.inner.WithinTx(ctx, func(tx *repository.Tx) error {
		return fn(tx)
	})
}
