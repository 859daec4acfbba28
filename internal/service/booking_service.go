package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
	"github.com/iliyamo/studio-booking/internal/storage"
)

// BookingOrderPrefix tags gateway order ids that pay for a booking.
const BookingOrderPrefix = "BK"

// BookingEvents receives domain events after their transaction commits.
type BookingEvents interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// BookingService owns the booking lifecycle: submission against slot
// capacity, online checkout and verification, admin approval and
// cancellation.
type BookingService struct {
	db       *sql.DB
	slots    *repository.SlotRepo
	bookings *repository.BookingRepo
	catalog  *repository.CatalogRepo
	gateway  payment.Gateway
	store    storage.Store
	events   BookingEvents
	currency string
	loc      *time.Location
	log      *zap.Logger
	now      func() time.Time
}

// BookingDeps groups the collaborators of BookingService.  Gateway, Store
// and Events may be nil; the features that need them are then refused.
type BookingDeps struct {
	DB       *sql.DB
	Slots    *repository.SlotRepo
	Bookings *repository.BookingRepo
	Catalog  *repository.CatalogRepo
	Gateway  payment.Gateway
	Store    storage.Store
	Events   BookingEvents
	Currency string
	Location *time.Location
	Logger   *zap.Logger
}

func NewBookingService(d BookingDeps) *BookingService {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		db: d.DB, slots: d.Slots, bookings: d.Bookings, catalog: d.Catalog,
		gateway: d.Gateway, store: d.Store, events: d.Events, currency: d.Currency,
		loc: loc, log: d.Logger.Named("bookings"), now: time.Now,
	}
}

// SubmitResult tells the client where the wizard goes next: "checkout"
// for online payment, "confirmation" for payment at the counter.
type SubmitResult struct {
	Booking model.Booking `json:"booking"`
	Next    string        `json:"next"`
}

// Submit validates a complete draft with the wizard's step validators and
// creates the booking.  Slot capacity is taken in the same transaction,
// so a full slot yields repository.ErrSlotFull even when the slot looked
// free during validation.
func (s *BookingService) Submit(ctx context.Context, sess session.Session, d booking.Draft) (SubmitResult, error) {
	if sess.Guest() {
		return SubmitResult{}, repository.ErrForbidden
	}
	item, err := s.catalog.GetByID(ctx, d.ItemID)
	if err != nil {
		return SubmitResult{}, err
	}
	if !item.IsActive || !item.Kind.Bookable() {
		return SubmitResult{}, ErrNotBookable
	}

	var (
		picked    model.Slot
		lookupErr error
	)
	lookup := func(id uint64) (model.Slot, bool) {
		sl, err := s.slots.GetByID(ctx, id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				lookupErr = err
			}
			return model.Slot{}, false
		}
		picked = sl
		return sl, true
	}
	verr := booking.ValidateDraft(d, lookup)
	if lookupErr != nil {
		return SubmitResult{}, lookupErr
	}
	if verr != nil {
		return SubmitResult{}, verr
	}

	now := s.now().In(s.loc)
	b := model.Booking{
		ItemID:          item.ID,
		UserID:          sess.UserID,
		Mobile:          d.Mobile,
		Notes:           d.Notes,
		PaymentMethod:   d.PaymentMethod,
		FinalPriceCents: item.PriceCents,
	}
	if d.Flexible {
		if err := s.checkFlexible(ctx, item.ID, d, now); err != nil {
			return SubmitResult{}, err
		}
		b.BookingDate, b.BookingTime = d.CustomDate, d.CustomTime
	} else {
		if started(picked, now) {
			return SubmitResult{}, &booking.StepError{Step: booking.StepDateTime, Field: "slot_id", Message: "slot has already started"}
		}
		id := picked.ID
		b.SlotID = &id
	}

	if len(d.ReferenceImages) > 0 {
		if s.store == nil {
			return SubmitResult{}, ErrStorageDisabled
		}
		urls, err := storage.UploadDataURIs(ctx, s.store, "bookings", d.ReferenceImages, now)
		if errors.Is(err, storage.ErrBadDataURI) || errors.Is(err, storage.ErrTooLarge) {
			return SubmitResult{}, &booking.StepError{Step: booking.StepCustomization, Field: "reference_images", Message: err.Error()}
		}
		if err != nil {
			return SubmitResult{}, fmt.Errorf("upload reference images: %w", err)
		}
		b.ReferenceImages = urls
	}

	if err := s.create(ctx, &b); err != nil {
		return SubmitResult{}, err
	}
	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID), zap.Uint64("user_id", b.UserID),
		zap.String("status", string(b.Status)), zap.String("payment_method", string(b.PaymentMethod)))

	next := "checkout"
	if b.PaymentMethod == model.PayCounter {
		next = "confirmation"
	}
	return SubmitResult{Booking: b, Next: next}, nil
}

// checkFlexible accepts a custom date and time only when it is not in the
// past and the slot listing for that day would offer nothing to pick:
// started slots are dropped before counting the open ones.
func (s *BookingService) checkFlexible(ctx context.Context, itemID uint64, d booking.Draft, now time.Time) error {
	day, err := time.ParseInLocation(model.DateLayout, d.CustomDate, s.loc)
	if err != nil {
		return &booking.StepError{Step: booking.StepDateTime, Field: "custom_date", Message: "expected YYYY-MM-DD"}
	}
	mins, err := model.ClockMinutes(d.CustomTime)
	if err != nil {
		return &booking.StepError{Step: booking.StepDateTime, Field: "custom_time", Message: "expected HH:MM"}
	}
	if day.Add(time.Duration(mins) * time.Minute).Before(now) {
		return ErrPastDate
	}
	slots, err := s.slots.ListByItemDate(ctx, itemID, d.CustomDate)
	if err != nil {
		return err
	}
	for _, sl := range DropStarted(slots, d.CustomDate, now) {
		if sl.IsAvailable() {
			return ErrFlexibleNotAllowed
		}
	}
	return nil
}

// create reserves capacity and inserts the booking in one transaction.
// Counter bookings skip payment and wait for approval right away.
func (s *BookingService) create(ctx context.Context, b *model.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if b.SlotID != nil {
		sl, err := s.slots.ReserveTx(ctx, tx, *b.SlotID)
		if err != nil {
			return err
		}
		b.BookingDate, b.BookingTime = sl.Date, sl.StartTime
	}
	if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
		return err
	}
	if b.PaymentMethod == model.PayCounter {
		if err := s.bookings.TransitionTx(ctx, tx, b.ID, []model.BookingStatus{model.BookingPending}, model.BookingAwaitingApproval, nil); err != nil {
			return err
		}
		b.Status = model.BookingAwaitingApproval
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get returns a booking visible to the caller.
func (s *BookingService) Get(ctx context.Context, sess session.Session, id uint64) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !sess.CanAccess(b.UserID) {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

// ListMine returns the caller's bookings.
func (s *BookingService) ListMine(ctx context.Context, sess session.Session) ([]model.Booking, error) {
	if sess.Guest() {
		return nil, repository.ErrForbidden
	}
	return s.bookings.ListByUser(ctx, sess.UserID)
}

// orderReuseWindow bounds how long an open order is handed out again.
// Snap transactions expire after 24 hours unless configured otherwise.
const orderReuseWindow = 23 * time.Hour

// Checkout opens a gateway order for a pending online booking.  While the
// current order is still payable it is returned again, so the customer
// never holds two live orders for one booking.  An older order is
// replaced but stays resolvable for Verify.
func (s *BookingService) Checkout(ctx context.Context, sess session.Session, bookingID uint64) (payment.Order, error) {
	if s.gateway == nil {
		return payment.Order{}, ErrPaymentsDisabled
	}
	b, err := s.Get(ctx, sess, bookingID)
	if err != nil {
		return payment.Order{}, err
	}
	if b.PaymentMethod != model.PayOnline {
		return payment.Order{}, ErrNotOnline
	}
	if b.Status != model.BookingPending {
		return payment.Order{}, repository.ErrConflict
	}
	if !payment.WholeUnits(b.FinalPriceCents) {
		return payment.Order{}, payment.ErrFractionalAmount
	}
	now := s.now()
	if b.PaymentOrderID != nil {
		prev, err := s.bookings.GetOrder(ctx, *b.PaymentOrderID)
		switch {
		case err == nil && now.Sub(prev.CreatedAt) < orderReuseWindow && prev.AmountCents == b.FinalPriceCents:
			return payment.Order{
				OrderID: prev.OrderID, Token: prev.Token, RedirectURL: prev.RedirectURL,
				AmountCents: prev.AmountCents, Currency: prev.Currency,
			}, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return payment.Order{}, err
		}
	}
	item, err := s.catalog.GetByID(ctx, b.ItemID)
	if err != nil {
		return payment.Order{}, err
	}

	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		OrderID:     payment.NewOrderID(BookingOrderPrefix),
		AmountCents: b.FinalPriceCents,
		Currency:    s.currency,
		ItemID:      strconv.FormatUint(item.ID, 10),
		ItemName:    item.Name,
		Customer:    payment.Customer{Phone: b.Mobile},
	})
	if err != nil {
		s.log.Error("create order failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
		return payment.Order{}, err
	}
	err = s.bookings.AttachOrder(ctx, model.BookingOrder{
		OrderID: order.OrderID, BookingID: b.ID, Token: order.Token, RedirectURL: order.RedirectURL,
		AmountCents: order.AmountCents, Currency: order.Currency, CreatedAt: now.UTC(),
	})
	if err != nil {
		return payment.Order{}, err
	}
	s.log.Info("order opened", zap.Uint64("booking_id", b.ID), zap.String("order_id", order.OrderID))
	return order, nil
}

// Verify applies a signed payment result.  An invalid signature, a
// failed payment or a wrong amount leaves the booking pending.  A pending
// gateway status returns the booking unchanged.  Settling twice is a
// no-op.  bookingID, when non-zero, must match the order's booking.
func (s *BookingService) Verify(ctx context.Context, bookingID uint64, n payment.Notification) (model.Booking, error) {
	if s.gateway == nil {
		return model.Booking{}, ErrPaymentsDisabled
	}
	res, err := s.gateway.Verify(n)
	if err != nil {
		s.log.Warn("payment verification failed", zap.String("order_id", n.OrderID), zap.Error(err))
		return model.Booking{}, err
	}
	b, err := s.bookings.GetByOrderID(ctx, res.OrderID)
	if err != nil {
		return model.Booking{}, err
	}
	if bookingID != 0 && b.ID != bookingID {
		return model.Booking{}, repository.ErrConflict
	}

	switch res.Status {
	case payment.StatusPending:
		return b, nil
	case payment.StatusFailed:
		s.log.Info("payment not settled", zap.Uint64("booking_id", b.ID), zap.String("order_id", res.OrderID))
		return b, ErrPaymentFailed
	}
	if res.AmountCents != b.FinalPriceCents {
		s.log.Warn("paid amount mismatch", zap.Uint64("booking_id", b.ID),
			zap.Uint64("paid", res.AmountCents), zap.Uint64("expected", b.FinalPriceCents))
		return b, ErrAmountMismatch
	}

	target := b.SettledStatus()
	if b.Status == target {
		return b, nil
	}
	ref := res.Reference
	if err := s.transition(ctx, b.ID, []model.BookingStatus{model.BookingPending}, target, &ref); err != nil {
		return model.Booking{}, err
	}
	b.Status = target
	b.PaymentRef = &ref
	s.log.Info("payment verified", zap.Uint64("booking_id", b.ID), zap.String("status", string(target)))
	if target == model.BookingConfirmed {
		s.publishConfirmed(ctx, b)
	}
	return b, nil
}

// Approve confirms a booking waiting for an admin.
func (s *BookingService) Approve(ctx context.Context, id uint64) (model.Booking, error) {
	if err := s.transition(ctx, id, []model.BookingStatus{model.BookingAwaitingApproval}, model.BookingConfirmed, nil); err != nil {
		return model.Booking{}, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	s.log.Info("booking approved", zap.Uint64("booking_id", id))
	s.publishConfirmed(ctx, b)
	return b, nil
}

// Cancel cancels a pending or awaiting booking and gives its slot place
// back.
func (s *BookingService) Cancel(ctx context.Context, id uint64) (model.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := s.bookings.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !b.Status.CanTransition(model.BookingCancelled) {
		return model.Booking{}, repository.ErrConflict
	}
	if b.SlotID != nil {
		if err := s.slots.ReleaseTx(ctx, tx, *b.SlotID); err != nil {
			return model.Booking{}, err
		}
	}
	if err := s.bookings.TransitionTx(ctx, tx, id, []model.BookingStatus{b.Status}, model.BookingCancelled, nil); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, err
	}
	committed = true
	b.Status = model.BookingCancelled
	s.log.Info("booking cancelled", zap.Uint64("booking_id", id))
	return b, nil
}

func (s *BookingService) transition(ctx context.Context, id uint64, from []model.BookingStatus, to model.BookingStatus, ref *string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := s.bookings.TransitionTx(ctx, tx, id, from, to, ref); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// publishConfirmed is best effort; the booking is already committed.
func (s *BookingService) publishConfirmed(ctx context.Context, b model.Booking) {
	if s.events == nil {
		return
	}
	name := ""
	if item, err := s.catalog.GetByID(ctx, b.ItemID); err == nil {
		name = item.Name
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:       b.ID,
		UserID:          b.UserID,
		ItemID:          b.ItemID,
		ItemName:        name,
		SlotID:          b.SlotID,
		BookingDate:     b.BookingDate,
		BookingTime:     b.BookingTime,
		PaymentMethod:   string(b.PaymentMethod),
		FinalPriceCents: b.FinalPriceCents,
		ConfirmedAt:     s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.PublishBookingConfirmed(ctx, ev); err != nil {
		s.log.Warn("publish booking.confirmed failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}
