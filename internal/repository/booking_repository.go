package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// BookingRepo provides persistence for seat bookings.  The table carries
// unique keys on (session_id, seat_id) and (session_id, user_id); InsertTx
// remaps violations of those keys to ErrSeatTaken and ErrAlreadyBooked so
// the storage backstop surfaces as the same domain error as the
// in-transaction existence checks.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// InsertTx creates a seat booking within the caller's transaction and
// populates the generated ID and creation time.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, b *model.SeatBooking) error {
	const q = `INSERT INTO seat_bookings (session_id, seat_id, user_id, name, status, notes) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.SessionID, b.SeatID, b.UserID, b.Name, b.Status, b.Notes)
	if err != nil {
		switch {
		case isDuplicateKey(err, uqBookingSeat):
			return ErrSeatTaken
		case isDuplicateKey(err, uqBookingUser):
			return ErrAlreadyBooked
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT created_at FROM seat_bookings WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt)
}

// GetBySessionAndUserTx returns the booking a user holds in a session, or
// ErrBookingNotFound.
func (r *BookingRepo) GetBySessionAndUserTx(ctx context.Context, tx *sql.Tx, sessionID, userID uint64) (*model.SeatBooking, error) {
	const q = `SELECT id, session_id, seat_id, user_id, name, status, notes, created_at
	           FROM seat_bookings WHERE session_id = ? AND user_id = ?`
	return scanBooking(tx.QueryRowContext(ctx, q, sessionID, userID))
}

// GetBySessionAndSeatTx returns the booking occupying a seat in a session,
// or ErrBookingNotFound.
func (r *BookingRepo) GetBySessionAndSeatTx(ctx context.Context, tx *sql.Tx, sessionID, seatID uint64) (*model.SeatBooking, error) {
	const q = `SELECT id, session_id, seat_id, user_id, name, status, notes, created_at
	           FROM seat_bookings WHERE session_id = ? AND seat_id = ?`
	return scanBooking(tx.QueryRowContext(ctx, q, sessionID, seatID))
}

// GetByIDTx fetches a booking by primary key inside a transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.SeatBooking, error) {
	const q = `SELECT id, session_id, seat_id, user_id, name, status, notes, created_at
	           FROM seat_bookings WHERE id = ?`
	return scanBooking(tx.QueryRowContext(ctx, q, id))
}

// FindForUnbookTx selects the bookings matched by an unbook request:
// scoped to the session and seat, and further to the requesting user unless
// a staff member is acting on someone else's booking.
func (r *BookingRepo) FindForUnbookTx(ctx context.Context, tx *sql.Tx, sessionID, seatID uint64, userID uint64, anyUser bool) ([]model.SeatBooking, error) {
	q := `SELECT id, session_id, seat_id, user_id, name, status, notes, created_at
	      FROM seat_bookings WHERE session_id = ? AND seat_id = ?`
	args := []any{sessionID, seatID}
	if !anyUser {
		q += ` AND user_id = ?`
		args = append(args, userID)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatBooking
	for rows.Next() {
		var b model.SeatBooking
		var notes sql.NullString
		if err := rows.Scan(&b.ID, &b.SessionID, &b.SeatID, &b.UserID, &b.Name, &b.Status, &notes, &b.CreatedAt); err != nil {
			return nil, err
		}
		if notes.Valid {
			n := notes.String
			b.Notes = &n
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTx removes a booking row.  The caller adjusts session capacity and
// the equipment ledger in the same transaction.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM seat_bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdateSeatTx moves a booking to another seat in place.  The unique key on
// (session_id, seat_id) backstops a race with a concurrent booking of the
// target seat; a violation is remapped to ErrSeatTaken.
func (r *BookingRepo) UpdateSeatTx(ctx context.Context, tx *sql.Tx, id, seatID uint64, name string) error {
	const q = `UPDATE seat_bookings SET seat_id = ?, name = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, seatID, name, id)
	if err != nil {
		if isDuplicateKey(err, uqBookingSeat) {
			return ErrSeatTaken
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdateStatusTx changes a booking's status (approve / reject flows).
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE seat_bookings SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListBySession returns all bookings in a session ordered by seat name.
func (r *BookingRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.SeatBooking, error) {
	const q = `SELECT id, session_id, seat_id, user_id, name, status, notes, created_at
	           FROM seat_bookings WHERE session_id = ? ORDER BY name`
	return r.listQuery(ctx, q, sessionID)
}

// ListByUser returns all bookings a user holds across sessions, newest
// session first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.SeatBooking, error) {
	const q = `SELECT b.id, b.session_id, b.seat_id, b.user_id, b.name, b.status, b.notes, b.created_at
	           FROM seat_bookings b
	           JOIN sessions s ON s.id = b.session_id
	           WHERE b.user_id = ?
	           ORDER BY s.starts_at DESC`
	return r.listQuery(ctx, q, userID)
}

// FutureBookedSeatsTx returns the bookings of all future sessions on a lab,
// within the caller's transaction.  Layout changes use this to detect seats
// that would be stranded by a shrink.
func (r *BookingRepo) FutureBookedSeatsTx(ctx context.Context, tx *sql.Tx, labID uint64) ([]model.SeatBooking, error) {
	const q = `SELECT b.id, b.session_id, b.seat_id, b.user_id, b.name, b.status, b.notes, b.created_at
	           FROM seat_bookings b
	           JOIN sessions s ON s.id = b.session_id
	           WHERE s.lab_id = ? AND s.starts_at > UTC_TIMESTAMP()`
	rows, err := tx.QueryContext(ctx, q, labID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepo) listQuery(ctx context.Context, q string, args ...any) ([]model.SeatBooking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]model.SeatBooking, error) {
	defer rows.Close()
	var out []model.SeatBooking
	for rows.Next() {
		var b model.SeatBooking
		var notes sql.NullString
		if err := rows.Scan(&b.ID, &b.SessionID, &b.SeatID, &b.UserID, &b.Name, &b.Status, &notes, &b.CreatedAt); err != nil {
			return nil, err
		}
		if notes.Valid {
			n := notes.String
			b.Notes = &n
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanBooking(row *sql.Row) (*model.SeatBooking, error) {
	var b model.SeatBooking
	var notes sql.NullString
	err := row.Scan(&b.ID, &b.SessionID, &b.SeatID, &b.UserID, &b.Name, &b.Status, &notes, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if notes.Valid {
		n := notes.String
		b.Notes = &n
	}
	return &b, nil
}
