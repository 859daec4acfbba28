package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// BookingRepo reads and writes the bookings table.  Writes that must agree
// with slot capacity take the caller's transaction.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, item_id, slot_id, user_id, booking_date, booking_time, mobile, notes,
	reference_images, payment_method, final_price_cents, status, payment_order_id, payment_ref,
	created_at, updated_at`

func scanBooking(rs rowScanner) (model.Booking, error) {
	var (
		b       model.Booking
		slotID  sql.NullInt64
		date    time.Time
		notes   sql.NullString
		images  []byte
		orderID sql.NullString
		payRef  sql.NullString
		method  string
		status  string
	)
	err := rs.Scan(&b.ID, &b.ItemID, &slotID, &b.UserID, &date, &b.BookingTime, &b.Mobile, &notes,
		&images, &method, &b.FinalPriceCents, &status, &orderID, &payRef, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if slotID.Valid {
		id := uint64(slotID.Int64)
		b.SlotID = &id
	}
	b.BookingDate = date.Format(model.DateLayout)
	b.Notes = notes.String
	if len(images) > 0 {
		if err := json.Unmarshal(images, &b.ReferenceImages); err != nil {
			return model.Booking{}, fmt.Errorf("decode reference_images: %w", err)
		}
	}
	b.PaymentMethod = model.PaymentMethod(method)
	b.Status = model.BookingStatus(status)
	if orderID.Valid {
		v := orderID.String
		b.PaymentOrderID = &v
	}
	if payRef.Valid {
		v := payRef.String
		b.PaymentRef = &v
	}
	return b, nil
}

// CreateTx inserts b as pending inside tx and fills its id and status.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	var images any
	if len(b.ReferenceImages) > 0 {
		raw, err := json.Marshal(b.ReferenceImages)
		if err != nil {
			return err
		}
		images = raw
	}
	var notes any
	if b.Notes != "" {
		notes = b.Notes
	}
	const q = `INSERT INTO bookings (item_id, slot_id, user_id, booking_date, booking_time, mobile, notes,
		reference_images, payment_method, final_price_cents, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.ItemID, b.SlotID, b.UserID, b.BookingDate, b.BookingTime,
		b.Mobile, notes, images, string(b.PaymentMethod), b.FinalPriceCents, string(model.BookingPending))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingPending
	return nil
}

// GetByID returns one booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return r.getOne(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
}

// GetByOrderID looks a booking up by any gateway order ever opened for it.
func (r *BookingRepo) GetByOrderID(ctx context.Context, orderID string) (model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
		WHERE id = (SELECT booking_id FROM booking_orders WHERE order_id = ?)`
	return r.getOne(ctx, r.db, q, orderID)
}

// GetForUpdateTx locks the booking row for the rest of tx.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	return r.getOne(ctx, tx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *BookingRepo) getOne(ctx context.Context, q queryRower, query string, args ...any) (model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// ListBySlot returns the bookings attached to a slot, oldest first.
func (r *BookingRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE slot_id = ? ORDER BY created_at, id`, slotID)
}

// ListByUser returns a customer's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

// ListByStatus returns up to limit bookings in status, oldest first.  An
// empty status lists everything.
func (r *BookingRepo) ListByStatus(ctx context.Context, status model.BookingStatus, limit int) ([]model.Booking, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if status == "" {
		return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at, id LIMIT ?`, limit)
	}
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = ? ORDER BY created_at, id LIMIT ?`, string(status), limit)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// AttachOrder records a new gateway order and makes it the booking's
// current one.  The booking must still be pending.
func (r *BookingRepo) AttachOrder(ctx context.Context, o model.BookingOrder) error {
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

	const ins = `INSERT INTO booking_orders (order_id, booking_id, token, redirect_url, amount_cents, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins, o.OrderID, o.BookingID, o.Token, o.RedirectURL,
		o.AmountCents, o.Currency, o.CreatedAt); err != nil {
		return err
	}
	const upd = `UPDATE bookings SET payment_order_id = ? WHERE id = ? AND status = 'pending'`
	res, err := tx.ExecContext(ctx, upd, o.OrderID, o.BookingID)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetOrder returns one booking order or ErrNotFound.
func (r *BookingRepo) GetOrder(ctx context.Context, orderID string) (model.BookingOrder, error) {
	const q = `SELECT order_id, booking_id, token, redirect_url, amount_cents, currency, created_at
		FROM booking_orders WHERE order_id = ?`
	var o model.BookingOrder
	err := r.db.QueryRowContext(ctx, q, orderID).Scan(&o.OrderID, &o.BookingID, &o.Token, &o.RedirectURL,
		&o.AmountCents, &o.Currency, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingOrder{}, ErrNotFound
	}
	return o, err
}

// TransitionTx moves a booking to `to` when its current status is one of
// `from`.  A booking in any other state yields ErrConflict.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, from []model.BookingStatus, to model.BookingStatus, paymentRef *string) error {
	if len(from) == 0 {
		return fmt.Errorf("transition: no source status")
	}
	args := []any{string(to), paymentRef, id}
	ph := make([]string, len(from))
	for i, s := range from {
		ph[i] = "?"
		args = append(args, string(s))
	}
	q := `UPDATE bookings SET status = ?, payment_ref = COALESCE(?, payment_ref) WHERE id = ? AND status IN (` +
		strings.Join(ph, ",") + `)`
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// expectOne turns a zero-row update into ErrConflict.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
