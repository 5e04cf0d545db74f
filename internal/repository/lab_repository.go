package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/lab-seat-reservation/internal/layout"
	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// LabRepo provides persistence for labs.  The seating layout is stored as a
// JSON blob in the row_config column and decoded on every read; a row whose
// blob fails to parse surfaces layout.ErrInvalidConfig to the caller rather
// than a half-populated lab.
type LabRepo struct {
	db *sql.DB
}

// NewLabRepo constructs a LabRepo with the given DB handle.
func NewLabRepo(db *sql.DB) *LabRepo {
	return &LabRepo{db: db}
}

// Create inserts a new lab with its layout and populates the generated ID
// and timestamps on the given model.
func (r *LabRepo) Create(ctx context.Context, lab *model.Lab) error {
	blob, err := lab.Layout.Encode()
	if err != nil {
		return err
	}
	const q = `INSERT INTO labs (name, row_config, created_by) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, lab.Name, blob, lab.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	lab.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM labs WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, lab.ID).Scan(&lab.CreatedAt, &lab.UpdatedAt)
}

// GetByID retrieves a lab and its parsed layout.  Returns ErrLabNotFound
// when no row exists.
func (r *LabRepo) GetByID(ctx context.Context, id uint64) (*model.Lab, error) {
	const q = `SELECT id, name, row_config, created_by, created_at, updated_at FROM labs WHERE id = ?`
	return scanLab(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDTx is GetByID within the scope of an existing transaction.
func (r *LabRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Lab, error) {
	const q = `SELECT id, name, row_config, created_by, created_at, updated_at FROM labs WHERE id = ?`
	return scanLab(tx.QueryRowContext(ctx, q, id))
}

// GetByIDForUpdateTx loads a lab with a row lock (SELECT ... FOR UPDATE).
// Session create/update and layout changes take this lock so that two
// transactions racing on the same lab serialize their check-then-act
// overlap and shrink validations.
func (r *LabRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Lab, error) {
	const q = `SELECT id, name, row_config, created_by, created_at, updated_at FROM labs WHERE id = ? FOR UPDATE`
	return scanLab(tx.QueryRowContext(ctx, q, id))
}

// List returns all labs ordered by id.
func (r *LabRepo) List(ctx context.Context) ([]*model.Lab, error) {
	const q = `SELECT id, name, row_config, created_by, created_at, updated_at FROM labs ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Lab
	for rows.Next() {
		lab, err := scanLabRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lab)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateLayoutTx persists a new layout blob for the lab within the caller's
// transaction.  Returns ErrLabNotFound when the lab does not exist.
func (r *LabRepo) UpdateLayoutTx(ctx context.Context, tx *sql.Tx, labID uint64, l layout.Layout) error {
	blob, err := l.Encode()
	if err != nil {
		return err
	}
	const q = `UPDATE labs SET row_config = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, blob, labID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLabNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLab(row rowScanner) (*model.Lab, error) {
	lab, err := scanLabRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLabNotFound
		}
		return nil, err
	}
	return lab, nil
}

func scanLabRow(row rowScanner) (*model.Lab, error) {
	var lab model.Lab
	var blob []byte
	if err := row.Scan(&lab.ID, &lab.Name, &blob, &lab.CreatedBy, &lab.CreatedAt, &lab.UpdatedAt); err != nil {
		return nil, err
	}
	l, err := layout.Parse(blob)
	if err != nil {
		return nil, err
	}
	lab.Layout = l
	return &lab, nil
}
