package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// SeatRepo provides methods to work with seats in the database.  Seats are
// identified by (lab_id, name), enforced by a unique key; concurrent
// creators of the same seat race on that key and the loser simply re-reads
// the winner's row.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// GetByLabAndNameTx fetches a seat by its lab and canonical name.  Returns
// ErrSeatNotFound when absent.
func (r *SeatRepo) GetByLabAndNameTx(ctx context.Context, tx *sql.Tx, labID uint64, name string) (*model.Seat, error) {
	const q = `SELECT id, lab_id, name, row_idx, col_num, is_active, created_at FROM seats WHERE lab_id = ? AND name = ?`
	var s model.Seat
	var rowIdx, colNum sql.NullInt32
	err := tx.QueryRowContext(ctx, q, labID, name).Scan(&s.ID, &s.LabID, &s.Name, &rowIdx, &colNum, &s.IsActive, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	if rowIdx.Valid {
		v := int(rowIdx.Int32)
		s.Row = &v
	}
	if colNum.Valid {
		v := int(colNum.Int32)
		s.Col = &v
	}
	return &s, nil
}

// GetOrCreateTx resolves a seat record for a validated seat reference,
// creating it on first use.  A duplicate-key error on insert means a
// concurrent transaction created the seat first; it is treated as
// "already exists, re-fetch".
func (r *SeatRepo) GetOrCreateTx(ctx context.Context, tx *sql.Tx, labID uint64, ref layout.SeatRef) (*model.Seat, error) {
	seat, err := r.GetByLabAndNameTx(ctx, tx, labID, ref.Name)
	if err == nil {
		return seat, nil
	}
	if !errors.Is(err, ErrSeatNotFound) {
		return nil, err
	}
	var rowIdx, colNum any
	if !ref.Edge {
		rowIdx, colNum = ref.Row, ref.Col
	}
	const ins = `INSERT INTO seats (lab_id, name, row_idx, col_num) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins, labID, ref.Name, rowIdx, colNum); err != nil {
		if !isDuplicateKey(err, "") {
			return nil, err
		}
	}
	return r.GetByLabAndNameTx(ctx, tx, labID, ref.Name)
}

// CreateMissingTx materializes seat records for every name the layout
// defines that does not yet exist.  Used when a layout is saved so that
// newly valid seats are bookable immediately.
func (r *SeatRepo) CreateMissingTx(ctx context.Context, tx *sql.Tx, labID uint64, l layout.Layout) error {
	for _, name := range l.SeatNames() {
		ref, err := l.Resolve(name)
		if err != nil {
			return err
		}
		if _, err := r.GetOrCreateTx(ctx, tx, labID, ref); err != nil {
			return err
		}
	}
	return nil
}

// ListByLab retrieves all seats of a lab ordered by row then column, with
// the edge seat last.
func (r *SeatRepo) ListByLab(ctx context.Context, labID uint64) ([]model.Seat, error) {
	const q = `SELECT id, lab_id, name, row_idx, col_num, is_active, created_at
	           FROM seats
	           WHERE lab_id = ?
	           ORDER BY row_idx IS NULL, row_idx, col_num`
	rows, err := r.db.QueryContext(ctx, q, labID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Seat
	for rows.Next() {
		var s model.Seat
		var rowIdx, colNum sql.NullInt32
		if err := rows.Scan(&s.ID, &s.LabID, &s.Name, &rowIdx, &colNum, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		if rowIdx.Valid {
			v := int(rowIdx.Int32)
			s.Row = &v
		}
		if colNum.Valid {
			v := int(colNum.Int32)
			s.Col = &v
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
