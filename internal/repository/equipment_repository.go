package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// EquipmentRepo provides persistence for the equipment inventory and the
// per-session reservation ledger.  The reserve operation mirrors the
// capacity counter technique: a conditional UPDATE whose affected-row count
// decides success, so two concurrent reservations can never oversell an
// offer.
type EquipmentRepo struct {
	db *sql.DB
}

// NewEquipmentRepo constructs an EquipmentRepo with the given DB handle.
func NewEquipmentRepo(db *sql.DB) *EquipmentRepo {
	return &EquipmentRepo{db: db}
}

// Create inserts a lab-wide equipment item.
func (r *EquipmentRepo) Create(ctx context.Context, e *model.Equipment) error {
	const q = `INSERT INTO equipment (lab_id, name, total, unit_type, expiration_date, created_by) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.LabID, e.Name, e.Total, e.UnitType, e.ExpirationDate, e.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT created_at FROM equipment WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, e.ID).Scan(&e.CreatedAt)
}

// GetByIDTx loads an equipment item inside a transaction.  Returns
// ErrEquipmentNotFound when absent.
func (r *EquipmentRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Equipment, error) {
	const q = `SELECT id, lab_id, name, total, unit_type, expiration_date, created_by, created_at FROM equipment WHERE id = ?`
	var e model.Equipment
	var exp sql.NullTime
	err := tx.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.LabID, &e.Name, &e.Total, &e.UnitType, &exp, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEquipmentNotFound
		}
		return nil, err
	}
	if exp.Valid {
		t := exp.Time
		e.ExpirationDate = &t
	}
	return &e, nil
}

// ListByLab returns the lab's equipment inventory ordered by name.
func (r *EquipmentRepo) ListByLab(ctx context.Context, labID uint64) ([]model.Equipment, error) {
	const q = `SELECT id, lab_id, name, total, unit_type, expiration_date, created_by, created_at
	           FROM equipment WHERE lab_id = ? ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Equipment
	for rows.Next() {
		var e model.Equipment
		var exp sql.NullTime
		if err := rows.Scan(&e.ID, &e.LabID, &e.Name, &e.Total, &e.UnitType, &exp, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		if exp.Valid {
			t := exp.Time
			e.ExpirationDate = &t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOfferTx loads a session equipment offer inside a transaction.
func (r *EquipmentRepo) GetOfferTx(ctx context.Context, tx *sql.Tx, sessionID, equipmentID uint64) (*model.SessionEquipment, error) {
	const q = `SELECT session_id, equipment_id, available, reserved FROM session_equipment
	           WHERE session_id = ? AND equipment_id = ?`
	var se model.SessionEquipment
	err := tx.QueryRowContext(ctx, q, sessionID, equipmentID).Scan(&se.SessionID, &se.EquipmentID, &se.Available, &se.Reserved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionEquipmentNotFound
		}
		return nil, err
	}
	return &se, nil
}

// ListOffersBySession returns the equipment offered for a session.
func (r *EquipmentRepo) ListOffersBySession(ctx context.Context, sessionID uint64) ([]model.SessionEquipment, error) {
	const q = `SELECT session_id, equipment_id, available, reserved FROM session_equipment
	           WHERE session_id = ? ORDER BY equipment_id`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	return collectOffers(rows)
}

// ListOffersBySessionTx is ListOffersBySession within the caller's
// transaction.  Offer replacement reads the current set under the session
// row lock to decide which offers to delete.
func (r *EquipmentRepo) ListOffersBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) ([]model.SessionEquipment, error) {
	const q = `SELECT session_id, equipment_id, available, reserved FROM session_equipment
	           WHERE session_id = ? ORDER BY equipment_id`
	rows, err := tx.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	return collectOffers(rows)
}

func collectOffers(rows *sql.Rows) ([]model.SessionEquipment, error) {
	defer rows.Close()
	var out []model.SessionEquipment
	for rows.Next() {
		var se model.SessionEquipment
		if err := rows.Scan(&se.SessionID, &se.EquipmentID, &se.Available, &se.Reserved); err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReserveTx increments the reserved amount of an offer, but only when the
// unreserved remainder covers the requested amount.  An unaffected row
// means the offer is missing or oversubscribed; the caller distinguishes
// the two by re-reading the offer.
func (r *EquipmentRepo) ReserveTx(ctx context.Context, tx *sql.Tx, sessionID, equipmentID uint64, amount int) error {
	const q = `UPDATE session_equipment SET reserved = reserved + ?
	           WHERE session_id = ? AND equipment_id = ? AND available - reserved >= ?`
	res, err := tx.ExecContext(ctx, q, amount, sessionID, equipmentID, amount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		if _, err := r.GetOfferTx(ctx, tx, sessionID, equipmentID); err != nil {
			return err
		}
		return ErrInsufficientEquipment
	}
	return nil
}

// ReleaseTx decrements the reserved amount of an offer, clamped at zero.
func (r *EquipmentRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, sessionID, equipmentID uint64, amount int) error {
	const q = `UPDATE session_equipment SET reserved = GREATEST(reserved - ?, 0)
	           WHERE session_id = ? AND equipment_id = ?`
	_, err := tx.ExecContext(ctx, q, amount, sessionID, equipmentID)
	return err
}

// UpsertOfferTx creates or replaces the available amount of an offer,
// preserving its reserved count.
func (r *EquipmentRepo) UpsertOfferTx(ctx context.Context, tx *sql.Tx, sessionID, equipmentID uint64, available int) error {
	const q = `INSERT INTO session_equipment (session_id, equipment_id, available, reserved) VALUES (?, ?, ?, 0)
	           ON DUPLICATE KEY UPDATE available = VALUES(available)`
	_, err := tx.ExecContext(ctx, q, sessionID, equipmentID, available)
	return err
}

// DeleteOfferTx removes an offer row.  Callers must have verified that no
// reservations are outstanding.
func (r *EquipmentRepo) DeleteOfferTx(ctx context.Context, tx *sql.Tx, sessionID, equipmentID uint64) error {
	const q = `DELETE FROM session_equipment WHERE session_id = ? AND equipment_id = ?`
	_, err := tx.ExecContext(ctx, q, sessionID, equipmentID)
	return err
}

// InsertBookingTx records an equipment reservation tied to a seat booking.
func (r *EquipmentRepo) InsertBookingTx(ctx context.Context, tx *sql.Tx, eb *model.EquipmentBooking) error {
	const q = `INSERT INTO equipment_bookings (user_id, session_id, equipment_id, seat_booking_id, amount) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, eb.UserID, eb.SessionID, eb.EquipmentID, eb.SeatBookingID, eb.Amount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	eb.ID = uint64(id)
	return nil
}

// BookingsForSeatBookingTx returns the equipment lines attached to one seat
// booking, inside a transaction.
func (r *EquipmentRepo) BookingsForSeatBookingTx(ctx context.Context, tx *sql.Tx, seatBookingID uint64) ([]model.EquipmentBooking, error) {
	const q = `SELECT id, user_id, session_id, equipment_id, seat_booking_id, amount, actual_used
	           FROM equipment_bookings WHERE seat_booking_id = ?`
	rows, err := tx.QueryContext(ctx, q, seatBookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EquipmentBooking
	for rows.Next() {
		var eb model.EquipmentBooking
		var used sql.NullInt32
		if err := rows.Scan(&eb.ID, &eb.UserID, &eb.SessionID, &eb.EquipmentID, &eb.SeatBookingID, &eb.Amount, &used); err != nil {
			return nil, err
		}
		if used.Valid {
			v := int(used.Int32)
			eb.ActualUsed = &v
		}
		out = append(out, eb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBookingsForSeatBookingTx removes all equipment lines of a seat
// booking.  The caller releases the reserved amounts first.
func (r *EquipmentRepo) DeleteBookingsForSeatBookingTx(ctx context.Context, tx *sql.Tx, seatBookingID uint64) error {
	const q = `DELETE FROM equipment_bookings WHERE seat_booking_id = ?`
	_, err := tx.ExecContext(ctx, q, seatBookingID)
	return err
}

// GetBooking loads one equipment booking line by ID.  Returns
// ErrBookingNotFound when absent.
func (r *EquipmentRepo) GetBooking(ctx context.Context, id uint64) (*model.EquipmentBooking, error) {
	const q = `SELECT id, user_id, session_id, equipment_id, seat_booking_id, amount, actual_used
	           FROM equipment_bookings WHERE id = ?`
	var eb model.EquipmentBooking
	var used sql.NullInt32
	err := r.db.QueryRowContext(ctx, q, id).Scan(&eb.ID, &eb.UserID, &eb.SessionID, &eb.EquipmentID, &eb.SeatBookingID, &eb.Amount, &used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if used.Valid {
		v := int(used.Int32)
		eb.ActualUsed = &v
	}
	return &eb, nil
}

// SetActualUsed records the post-session usage report for one equipment
// booking.  Returns ErrBookingNotFound when the line does not exist.
func (r *EquipmentRepo) SetActualUsed(ctx context.Context, id uint64, amount int) error {
	const q = `UPDATE equipment_bookings SET actual_used = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, amount, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}
