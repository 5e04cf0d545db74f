package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/lab-seat-reservation/internal/model"
)

// SessionRepo manages persistence for lab sessions.  The capacity column is
// the denormalized "seats remaining" counter; the conditional decrement in
// DecrementCapacityTx is the single correctness-critical concurrency
// primitive of the booking engine.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// CreateTx inserts a new session within the caller's transaction and
// populates the generated ID and timestamps.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	const q = `INSERT INTO sessions (lab_id, starts_at, ends_at, capacity, created_by) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.LabID, s.StartsAt.UTC(), s.EndsAt.UTC(), s.Capacity, s.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM sessions WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a session by its ID.  Returns ErrSessionNotFound when
// there is no matching row.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	return r.get(ctx, r.db.QueryRowContext, id, false)
}

// GetByIDTx is GetByID within an existing transaction.
func (r *SessionRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	return r.get(ctx, tx.QueryRowContext, id, false)
}

// GetByIDForUpdateTx loads the session with a row lock so booking mutations
// on the same session serialize.
func (r *SessionRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	return r.get(ctx, tx.QueryRowContext, id, true)
}

type queryRowFunc func(ctx context.Context, query string, args ...any) *sql.Row

func (r *SessionRepo) get(ctx context.Context, queryRow queryRowFunc, id uint64, forUpdate bool) (*model.Session, error) {
	q := `SELECT id, lab_id, starts_at, ends_at, capacity, created_by,
	             student_reminder_sent_at, teacher_reminder_sent_at, created_at, updated_at
	      FROM sessions WHERE id = ?`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var s model.Session
	var studentAt, teacherAt sql.NullTime
	err := queryRow(ctx, q, id).Scan(
		&s.ID, &s.LabID, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.CreatedBy,
		&studentAt, &teacherAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if studentAt.Valid {
		t := studentAt.Time
		s.StudentReminderSentAt = &t
	}
	if teacherAt.Valid {
		t := teacherAt.Time
		s.TeacherReminderSentAt = &t
	}
	return &s, nil
}

// HasOverlapTx reports whether any session on the lab overlaps the given
// window.  The boundary check is inclusive on both ends: a session touching
// the window at a single instant counts as a conflict.  excludeID skips the
// session being updated; pass 0 on create.
func (r *SessionRepo) HasOverlapTx(ctx context.Context, tx *sql.Tx, labID uint64, startsAt, endsAt time.Time, excludeID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM sessions
	           WHERE lab_id = ? AND id <> ? AND starts_at <= ? AND ends_at >= ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, labID, excludeID, endsAt.UTC(), startsAt.UTC()).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateTimesTx changes the session's time window.  Capacity is untouched;
// the window carries its bookings with it.
func (r *SessionRepo) UpdateTimesTx(ctx context.Context, tx *sql.Tx, id uint64, startsAt, endsAt time.Time) error {
	const q = `UPDATE sessions SET starts_at = ?, ends_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, startsAt.UTC(), endsAt.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DecrementCapacityTx atomically takes one seat from the session's
// remaining capacity.  The decrement is expressed as a compare-and-set:
// it only applies while capacity is positive, and the caller must treat an
// unaffected row as ErrSessionFull.  Without this guard two simultaneous
// bookings could both observe capacity=1 and drive the counter negative.
func (r *SessionRepo) DecrementCapacityTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE sessions SET capacity = capacity - 1 WHERE id = ? AND capacity > 0`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrSessionFull
	}
	return nil
}

// IncrementCapacityTx returns seats to the session's remaining capacity
// after bookings are removed.
func (r *SessionRepo) IncrementCapacityTx(ctx context.Context, tx *sql.Tx, id uint64, by int) error {
	if by <= 0 {
		return nil
	}
	const q = `UPDATE sessions SET capacity = capacity + ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, by, id)
	return err
}

// SetCapacityTx overwrites the capacity counter.  Used only by layout
// changes, which recompute capacity for every future session.
func (r *SessionRepo) SetCapacityTx(ctx context.Context, tx *sql.Tx, id uint64, capacity int) error {
	const q = `UPDATE sessions SET capacity = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, capacity, id)
	return err
}

// DeleteCascadeTx removes a session and every child row scoped to it, in
// dependency order (attendance, equipment bookings, equipment offers, seat
// bookings, then the session).  No reservation rollback is needed since the
// whole ledger is discarded with the session.
func (r *SessionRepo) DeleteCascadeTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	stmts := []string{
		`DELETE FROM attendance WHERE session_id = ?`,
		`DELETE FROM equipment_bookings WHERE session_id = ?`,
		`DELETE FROM session_equipment WHERE session_id = ?`,
		`DELETE FROM seat_bookings WHERE session_id = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListByLab returns all sessions on a lab ordered by start time.
func (r *SessionRepo) ListByLab(ctx context.Context, labID uint64) ([]*model.Session, error) {
	const q = `SELECT id, lab_id, starts_at, ends_at, capacity, created_by,
	                  student_reminder_sent_at, teacher_reminder_sent_at, created_at, updated_at
	           FROM sessions WHERE lab_id = ? ORDER BY starts_at`
	return r.list(ctx, q, labID)
}

// ListFutureByLabTx returns sessions on the lab starting after the given
// instant, within the caller's transaction.  Used by layout changes to
// validate and re-capacity future sessions.
func (r *SessionRepo) ListFutureByLabTx(ctx context.Context, tx *sql.Tx, labID uint64, after time.Time) ([]*model.Session, error) {
	const q = `SELECT id, lab_id, starts_at, ends_at, capacity, created_by,
	                  student_reminder_sent_at, teacher_reminder_sent_at, created_at, updated_at
	           FROM sessions WHERE lab_id = ? AND starts_at > ? ORDER BY starts_at`
	rows, err := tx.QueryContext(ctx, q, labID, after.UTC())
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListStartingBetween returns sessions whose start time falls inside the
// half-open window [from, to) and whose reminder of the given kind has not
// been sent yet.  kind must be "student" or "teacher".
func (r *SessionRepo) ListStartingBetween(ctx context.Context, from, to time.Time, kind string) ([]*model.Session, error) {
	col := "student_reminder_sent_at"
	if kind == "teacher" {
		col = "teacher_reminder_sent_at"
	}
	q := `SELECT id, lab_id, starts_at, ends_at, capacity, created_by,
	             student_reminder_sent_at, teacher_reminder_sent_at, created_at, updated_at
	      FROM sessions WHERE starts_at >= ? AND starts_at < ? AND ` + col + ` IS NULL ORDER BY starts_at`
	return r.list(ctx, q, from.UTC(), to.UTC())
}

// MarkReminderSent stamps the reminder column of the given kind, but only
// when it is still unset.  The conditional update makes the periodic scan
// idempotent: at most one reminder per session per kind, even if two scan
// instances race.  Returns false when another instance already marked it.
func (r *SessionRepo) MarkReminderSent(ctx context.Context, id uint64, kind string, at time.Time) (bool, error) {
	col := "student_reminder_sent_at"
	if kind == "teacher" {
		col = "teacher_reminder_sent_at"
	}
	q := `UPDATE sessions SET ` + col + ` = ? WHERE id = ? AND ` + col + ` IS NULL`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *SessionRepo) list(ctx context.Context, q string, args ...any) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func collectSessions(rows *sql.Rows) ([]*model.Session, error) {
	defer rows.Close()
	var out []*model.Session
	for rows.Next() {
		var s model.Session
		var studentAt, teacherAt sql.NullTime
		if err := rows.Scan(
			&s.ID, &s.LabID, &s.StartsAt, &s.EndsAt, &s.Capacity, &s.CreatedBy,
			&studentAt, &teacherAt, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if studentAt.Valid {
			t := studentAt.Time
			s.StudentReminderSentAt = &t
		}
		if teacherAt.Valid {
			t := teacherAt.Time
			s.TeacherReminderSentAt = &t
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
