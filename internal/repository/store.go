package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// Store bundles the per-entity repositories behind a single transactional
// facade.  The service layer consumes it through the interfaces it declares;
// every core operation runs inside one WithinTx call so partial application
// is never observable.
type Store struct {
	db         *sql.DB
	Labs       *LabRepo
	Seats      *SeatRepo
	Sessions   *SessionRepo
	Bookings   *BookingRepo
	Equipment  *EquipmentRepo
	Attendance *AttendanceRepo
}

// NewStore constructs a Store and its repositories over the given DB handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		Labs:       NewLabRepo(db),
		Seats:      NewSeatRepo(db),
		Sessions:   NewSessionRepo(db),
		Bookings:   NewBookingRepo(db),
		Equipment:  NewEquipmentRepo(db),
		Attendance: NewAttendanceRepo(db),
	}
}

// WithinTx runs fn inside a single database transaction, rolling back on
// error or panic and committing otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Tx) error) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = dbtx.Rollback()
		}
	}()
	if err := fn(&Tx{store: s, tx: dbtx}); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Tx is the transactional view of the store.  Its methods delegate to the
// Tx-suffixed repository methods, all bound to the same sql.Tx.
type Tx struct {
	store *Store
	tx    *sql.Tx
}

func (t *Tx) Lab(ctx context.Context, id uint64) (*model.Lab, error) {
	return t.store.Labs.GetByIDTx(ctx, t.tx, id)
}

func (t *Tx) LockLab(ctx context.Context, id uint64) (*model.Lab, error) {
	return t.store.Labs.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *Tx) UpdateLabLayout(ctx context.Context, labID uint64, l layout.Layout) error {
	return t.store.Labs.UpdateLayoutTx(ctx, t.tx, labID, l)
}

func (t *Tx) CreateMissingSeats(ctx context.Context, labID uint64, l layout.Layout) error {
	return t.store.Seats.CreateMissingTx(ctx, t.tx, labID, l)
}

func (t *Tx) GetOrCreateSeat(ctx context.Context, labID uint64, ref layout.SeatRef) (*model.Seat, error) {
	return t.store.Seats.GetOrCreateTx(ctx, t.tx, labID, ref)
}

func (t *Tx) SeatByName(ctx context.Context, labID uint64, name string) (*model.Seat, error) {
	return t.store.Seats.GetByLabAndNameTx(ctx, t.tx, labID, name)
}

func (t *Tx) Session(ctx context.Context, id uint64) (*model.Session, error) {
	return t.store.Sessions.GetByIDTx(ctx, t.tx, id)
}

func (t *Tx) LockSession(ctx context.Context, id uint64) (*model.Session, error) {
	return t.store.Sessions.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *Tx) CreateSession(ctx context.Context, s *model.Session) error {
	return t.store.Sessions.CreateTx(ctx, t.tx, s)
}

func (t *Tx) UpdateSessionTimes(ctx context.Context, id uint64, startsAt, endsAt time.Time) error {
	return t.store.Sessions.UpdateTimesTx(ctx, t.tx, id, startsAt, endsAt)
}

func (t *Tx) DeleteSessionCascade(ctx context.Context, id uint64) error {
	return t.store.Sessions.DeleteCascadeTx(ctx, t.tx, id)
}

func (t *Tx) HasOverlap(ctx context.Context, labID uint64, startsAt, endsAt time.Time, excludeID uint64) (bool, error) {
	return t.store.Sessions.HasOverlapTx(ctx, t.tx, labID, startsAt, endsAt, excludeID)
}

func (t *Tx) FutureSessions(ctx context.Context, labID uint64, after time.Time) ([]*model.Session, error) {
	return t.store.Sessions.ListFutureByLabTx(ctx, t.tx, labID, after)
}

func (t *Tx) SetSessionCapacity(ctx context.Context, id uint64, capacity int) error {
	return t.store.Sessions.SetCapacityTx(ctx, t.tx, id, capacity)
}

func (t *Tx) DecrementCapacity(ctx context.Context, id uint64) error {
	return t.store.Sessions.DecrementCapacityTx(ctx, t.tx, id)
}

func (t *Tx) IncrementCapacity(ctx context.Context, id uint64, by int) error {
	return t.store.Sessions.IncrementCapacityTx(ctx, t.tx, id, by)
}

func (t *Tx) InsertBooking(ctx context.Context, b *model.SeatBooking) error {
	return t.store.Bookings.InsertTx(ctx, t.tx, b)
}

func (t *Tx) BookingBySessionAndUser(ctx context.Context, sessionID, userID uint64) (*model.SeatBooking, error) {
	return t.store.Bookings.GetBySessionAndUserTx(ctx, t.tx, sessionID, userID)
}

func (t *Tx) BookingBySessionAndSeat(ctx context.Context, sessionID, seatID uint64) (*model.SeatBooking, error) {
	return t.store.Bookings.GetBySessionAndSeatTx(ctx, t.tx, sessionID, seatID)
}

func (t *Tx) BookingByID(ctx context.Context, id uint64) (*model.SeatBooking, error) {
	return t.store.Bookings.GetByIDTx(ctx, t.tx, id)
}

func (t *Tx) BookingsForUnbook(ctx context.Context, sessionID, seatID, userID uint64, anyUser bool) ([]model.SeatBooking, error) {
	return t.store.Bookings.FindForUnbookTx(ctx, t.tx, sessionID, seatID, userID, anyUser)
}

func (t *Tx) DeleteBooking(ctx context.Context, id uint64) error {
	return t.store.Bookings.DeleteTx(ctx, t.tx, id)
}

func (t *Tx) UpdateBookingSeat(ctx context.Context, id, seatID uint64, name string) error {
	return t.store.Bookings.UpdateSeatTx(ctx, t.tx, id, seatID, name)
}

func (t *Tx) UpdateBookingStatus(ctx context.Context, id uint64, status string) error {
	return t.store.Bookings.UpdateStatusTx(ctx, t.tx, id, status)
}

func (t *Tx) FutureBookedSeats(ctx context.Context, labID uint64) ([]model.SeatBooking, error) {
	return t.store.Bookings.FutureBookedSeatsTx(ctx, t.tx, labID)
}

func (t *Tx) Equipment(ctx context.Context, id uint64) (*model.Equipment, error) {
	return t.store.Equipment.GetByIDTx(ctx, t.tx, id)
}

func (t *Tx) EquipmentOffer(ctx context.Context, sessionID, equipmentID uint64) (*model.SessionEquipment, error) {
	return t.store.Equipment.GetOfferTx(ctx, t.tx, sessionID, equipmentID)
}

func (t *Tx) EquipmentOffers(ctx context.Context, sessionID uint64) ([]model.SessionEquipment, error) {
	return t.store.Equipment.ListOffersBySessionTx(ctx, t.tx, sessionID)
}

func (t *Tx) ReserveEquipment(ctx context.Context, sessionID, equipmentID uint64, amount int) error {
	return t.store.Equipment.ReserveTx(ctx, t.tx, sessionID, equipmentID, amount)
}

func (t *Tx) ReleaseEquipment(ctx context.Context, sessionID, equipmentID uint64, amount int) error {
	return t.store.Equipment.ReleaseTx(ctx, t.tx, sessionID, equipmentID, amount)
}

func (t *Tx) UpsertEquipmentOffer(ctx context.Context, sessionID, equipmentID uint64, available int) error {
	return t.store.Equipment.UpsertOfferTx(ctx, t.tx, sessionID, equipmentID, available)
}

func (t *Tx) DeleteEquipmentOffer(ctx context.Context, sessionID, equipmentID uint64) error {
	return t.store.Equipment.DeleteOfferTx(ctx, t.tx, sessionID, equipmentID)
}

func (t *Tx) InsertEquipmentBooking(ctx context.Context, eb *model.EquipmentBooking) error {
	return t.store.Equipment.InsertBookingTx(ctx, t.tx, eb)
}

func (t *Tx) EquipmentBookingsForSeatBooking(ctx context.Context, seatBookingID uint64) ([]model.EquipmentBooking, error) {
	return t.store.Equipment.BookingsForSeatBookingTx(ctx, t.tx, seatBookingID)
}

func (t *Tx) DeleteEquipmentBookingsForSeatBooking(ctx context.Context, seatBookingID uint64) error {
	return t.store.Equipment.DeleteBookingsForSeatBookingTx(ctx, t.tx, seatBookingID)
}
