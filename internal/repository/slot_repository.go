package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// SlotRepo reads and writes the slots table.  Capacity changes go through
// ReserveTx and ReleaseTx only.
type SlotRepo struct {
	db *sql.DB
}

func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, item_id, slot_date, start_time, end_time, max_bookings, current_bookings, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(rs rowScanner) (model.Slot, error) {
	var (
		s    model.Slot
		date time.Time
	)
	if err := rs.Scan(&s.ID, &s.ItemID, &date, &s.StartTime, &s.EndTime,
		&s.MaxBookings, &s.CurrentBookings, &s.CreatedAt); err != nil {
		return model.Slot{}, err
	}
	s.Date = date.Format(model.DateLayout)
	return s, nil
}

// Create inserts a slot and fills its generated id.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	const q = `INSERT INTO slots (item_id, slot_date, start_time, end_time, max_bookings) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.ItemID, s.Date, s.StartTime, s.EndTime, s.MaxBookings)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CurrentBookings = 0
	return nil
}

// GetByID returns one slot or ErrNotFound.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (model.Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, ErrNotFound
	}
	return s, err
}

// ListByItemDate returns an item's slots for one day ordered by start time.
func (r *SlotRepo) ListByItemDate(ctx context.Context, itemID uint64, date string) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE item_id = ? AND slot_date = ? ORDER BY start_time, id`
	return r.list(ctx, q, itemID, date)
}

// ListByDate returns the slots of every item for one day.
func (r *SlotRepo) ListByDate(ctx context.Context, date string) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE slot_date = ? ORDER BY start_time, item_id, id`
	return r.list(ctx, q, date)
}

func (r *SlotRepo) list(ctx context.Context, q string, args ...any) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a slot that no live booking references.  The slot row is
// locked first, so a concurrent ReserveTx waits and then finds it gone.
// Live bookings yield a *SlotInUseError.  Only cancelled bookings may be
// left behind; the foreign key nulls their slot_id.
func (r *SlotRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM slots WHERE id = ? FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	const live = `SELECT COUNT(*) FROM bookings WHERE slot_id = ? AND status IN ('pending','awaiting_approval','confirmed')`
	var n int
	if err := tx.QueryRowContext(ctx, live, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return &SlotInUseError{Bookings: n}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ReserveTx takes one place in the slot and returns the updated row.  The
// increment only applies while current_bookings < max_bookings; when it
// affects nothing the slot is either missing (ErrNotFound) or full
// (ErrSlotFull).
func (r *SlotRepo) ReserveTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Slot, error) {
	const upd = `UPDATE slots SET current_bookings = current_bookings + 1 WHERE id = ? AND current_bookings < max_bookings`
	res, err := tx.ExecContext(ctx, upd, id)
	if err != nil {
		return model.Slot{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Slot{}, err
	}
	s, err := scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, ErrNotFound
	}
	if err != nil {
		return model.Slot{}, err
	}
	if n == 0 {
		return s, ErrSlotFull
	}
	return s, nil
}

// ReleaseTx gives one place back.  Releasing an empty or deleted slot is a
// no-op.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE slots SET current_bookings = current_bookings - 1 WHERE id = ? AND current_bookings > 0`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}
