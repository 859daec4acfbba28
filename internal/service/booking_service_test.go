package service

import (
	"context"
	"encoding/base64"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
	"github.com/iliyamo/studio-booking/internal/storage"
)

const testServerKey = "SB-Mid-server-test"

var (
	itemCols = []string{"id", "kind", "category_id", "name", "description", "price_cents", "duration_min",
		"image_url", "metadata", "is_active", "created_at", "updated_at"}
	slotCols    = []string{"id", "item_id", "slot_date", "start_time", "end_time", "max_bookings", "current_bookings", "created_at"}
	bookingCols = []string{"id", "item_id", "slot_id", "user_id", "booking_date", "booking_time", "mobile", "notes",
		"reference_images", "payment_method", "final_price_cents", "status", "payment_order_id", "payment_ref",
		"created_at", "updated_at"}
)

type fakeGateway struct{ orders []payment.OrderRequest }

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.Order, error) {
	g.orders = append(g.orders, req)
	return payment.Order{OrderID: req.OrderID, Token: "snap-token", AmountCents: req.AmountCents, Currency: req.Currency}, nil
}

func (g *fakeGateway) Verify(n payment.Notification) (payment.Result, error) {
	return payment.VerifyNotification(testServerKey, n)
}

type recordedEvents struct{ confirmed []queue.BookingConfirmedEvent }

func (r *recordedEvents) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	r.confirmed = append(r.confirmed, ev)
	return nil
}

func day(s string) time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return t
}

func newBookingService(t *testing.T) (*BookingService, sqlmock.Sqlmock, *fakeGateway, *recordedEvents) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gw := &fakeGateway{}
	ev := &recordedEvents{}
	svc := NewBookingService(BookingDeps{
		DB:       db,
		Slots:    repository.NewSlotRepo(db),
		Bookings: repository.NewBookingRepo(db),
		Catalog:  repository.NewCatalogRepo(db),
		Gateway:  gw,
		Events:   ev,
		Currency: "IDR",
		Location: time.UTC,
		Logger:   zap.NewNop(),
	})
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return svc, mock, gw, ev
}

func expectItem(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM catalog_items WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(3, "tattoo", nil, "Fine line rose", nil, 150000, 120, nil, nil, true, time.Now(), time.Now()))
}

func expectSlotRead(mock sqlmock.Sqlmock, current int) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE id = ?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(slotCols).AddRow(9, 3, day("2026-11-02"), "10:00", "12:00", 1, current, time.Now()))
}

func slotDraft(method model.PaymentMethod) booking.Draft {
	slot := uint64(9)
	return booking.Draft{ItemID: 3, SlotID: &slot, Mobile: "0812345678", PaymentMethod: method}
}

var customer = session.Session{UserID: 7, Role: model.RoleCustomer}

func TestSubmitCounterBookingTakesCapacity(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)

	expectItem(mock)
	expectSlotRead(mock, 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET current_bookings = current_bookings + 1")).
		WithArgs(uint64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	expectSlotRead(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("awaiting_approval", nil, uint64(21), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Submit(context.Background(), customer, slotDraft(model.PayCounter))
	require.NoError(t, err)
	assert.Equal(t, "confirmation", res.Next)
	assert.EqualValues(t, 21, res.Booking.ID)
	assert.Equal(t, model.BookingAwaitingApproval, res.Booking.Status)
	assert.Equal(t, "2026-11-02", res.Booking.BookingDate)
	assert.Equal(t, "10:00", res.Booking.BookingTime)
	assert.EqualValues(t, 150000, res.Booking.FinalPriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A second booking of a one-place slot must fail even when it raced the
// first one past validation.
func TestSubmitSecondBookingOfSingleSlotIsRejected(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)

	expectItem(mock)
	expectSlotRead(mock, 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET current_bookings = current_bookings + 1")).
		WithArgs(uint64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	expectSlotRead(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	first, err := svc.Submit(context.Background(), customer, slotDraft(model.PayOnline))
	require.NoError(t, err)
	assert.Equal(t, "checkout", first.Next)
	assert.Equal(t, model.BookingPending, first.Booking.Status)

	// stale read: the slot still looks free, the conditional update finds it full
	expectItem(mock)
	expectSlotRead(mock, 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET current_bookings = current_bookings + 1")).
		WithArgs(uint64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	expectSlotRead(mock, 1)
	mock.ExpectRollback()

	other := session.Session{UserID: 8, Role: model.RoleCustomer}
	_, err = svc.Submit(context.Background(), other, slotDraft(model.PayOnline))
	assert.ErrorIs(t, err, repository.ErrSlotFull)

	// fresh read: the wizard validator already refuses the full slot
	expectItem(mock)
	expectSlotRead(mock, 1)
	_, err = svc.Submit(context.Background(), other, slotDraft(model.PayOnline))
	var serr *booking.StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, booking.StepDateTime, serr.Step)
	assert.Equal(t, "slot is full", serr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitEmptyMobileBlockedAtCustomization(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	expectItem(mock)
	expectSlotRead(mock, 0)

	d := slotDraft(model.PayCounter)
	d.Mobile = ""
	_, err := svc.Submit(context.Background(), customer, d)
	var serr *booking.StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, booking.StepCustomization, serr.Step)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitFlexibleRefusedWhileSlotsOpen(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	expectItem(mock)
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE item_id = ? AND slot_date = ?")).
		WithArgs(uint64(3), "2026-11-02").
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(9, 3, day("2026-11-02"), "10:00", "12:00", 1, 1, time.Now()).
			AddRow(10, 3, day("2026-11-02"), "14:00", "16:00", 2, 0, time.Now()))

	d := booking.Draft{ItemID: 3, Flexible: true, CustomDate: "2026-11-02", CustomTime: "15:00",
		Mobile: "0812345678", PaymentMethod: model.PayCounter}
	_, err := svc.Submit(context.Background(), customer, d)
	assert.ErrorIs(t, err, ErrFlexibleNotAllowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitGuestForbidden(t *testing.T) {
	svc, _, _, _ := newBookingService(t)
	_, err := svc.Submit(context.Background(), session.Session{}, slotDraft(model.PayCounter))
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func bookingRow(orderID, status string, priceCents uint64) *sqlmock.Rows {
	var order any
	if orderID != "" {
		order = orderID
	}
	return sqlmock.NewRows(bookingCols).AddRow(21, 3, 9, 7, day("2026-11-02"), "10:00", "0812345678", nil,
		nil, "online", priceCents, status, order, nil, time.Now(), time.Now())
}

func pendingBookingRow(orderID string) *sqlmock.Rows {
	return bookingRow(orderID, "pending", 150000)
}

func signed(orderID, status string, cents uint64) payment.Notification {
	gross := payment.FormatGrossAmount(cents)
	return payment.Notification{
		OrderID: orderID, StatusCode: "200", GrossAmount: gross,
		SignatureKey:      payment.Signature(testServerKey, orderID, "200", gross),
		TransactionStatus: status, TransactionID: "txn-1",
	}
}

func TestVerifyInvalidSignatureLeavesPending(t *testing.T) {
	svc, mock, _, ev := newBookingService(t)

	n := signed("BK-ABC", "settlement", 150000)
	n.SignatureKey = "deadbeef"
	_, err := svc.Verify(context.Background(), 21, n)
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
	assert.Empty(t, ev.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifySettledConfirmsAndPublishes(t *testing.T) {
	svc, mock, _, ev := newBookingService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_orders WHERE order_id = ?")).
		WithArgs("BK-ABC").WillReturnRows(pendingBookingRow("BK-ABC"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("confirmed", "txn-1", uint64(21), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectItem(mock)

	b, err := svc.Verify(context.Background(), 21, signed("BK-ABC", "settlement", 150000))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	require.Len(t, ev.confirmed, 1)
	assert.EqualValues(t, 21, ev.confirmed[0].BookingID)
	assert.Equal(t, "Fine line rose", ev.confirmed[0].ItemName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyAmountMismatch(t *testing.T) {
	svc, mock, _, ev := newBookingService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_orders WHERE order_id = ?")).
		WithArgs("BK-ABC").WillReturnRows(pendingBookingRow("BK-ABC"))

	b, err := svc.Verify(context.Background(), 0, signed("BK-ABC", "settlement", 100))
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Empty(t, ev.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutCreatesOrder(t *testing.T) {
	svc, mock, gw, _ := newBookingService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(21)).WillReturnRows(pendingBookingRow(""))
	expectItem(mock)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_orders")).
		WithArgs(sqlmock.AnyArg(), uint64(21), "snap-token", "", uint64(150000), "IDR", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_order_id = ?")).
		WithArgs(sqlmock.AnyArg(), uint64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), customer, 21)
	require.NoError(t, err)
	assert.Equal(t, BookingOrderPrefix, payment.OrderPrefix(order.OrderID))
	require.Len(t, gw.orders, 1)
	assert.EqualValues(t, 150000, gw.orders[0].AmountCents)
	assert.Equal(t, "IDR", gw.orders[0].Currency)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutOtherCustomerSeesNotFound(t *testing.T) {
	svc, mock, gw, _ := newBookingService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(21)).WillReturnRows(pendingBookingRow(""))

	_, err := svc.Checkout(context.Background(), session.Session{UserID: 99, Role: model.RoleCustomer}, 21)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, gw.orders)
}

func TestCancelReleasesSlot(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(21)).WillReturnRows(pendingBookingRow(""))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET current_bookings = current_bookings - 1")).
		WithArgs(uint64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("cancelled", nil, uint64(21), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := svc.Cancel(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveRequiresAwaiting(t *testing.T) {
	svc, mock, _, ev := newBookingService(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("confirmed", nil, uint64(21), "awaiting_approval").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Approve(context.Background(), 21)
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Empty(t, ev.confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The slot listing drops slots that already started today, so a flexible
// time must be accepted even though such a slot still has room.
func TestSubmitFlexibleTodayWithOnlyStartedSlots(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	expectItem(mock)
	mock.ExpectQuery(regexp.QuoteMeta("FROM slots WHERE item_id = ? AND slot_date = ?")).
		WithArgs(uint64(3), "2026-10-19").
		WillReturnRows(sqlmock.NewRows(slotCols).AddRow(9, 3, day("2026-10-19"), "08:00", "10:00", 2, 0, time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("awaiting_approval", nil, uint64(22), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d := booking.Draft{ItemID: 3, Flexible: true, CustomDate: "2026-10-19", CustomTime: "15:00",
		Mobile: "0812345678", PaymentMethod: model.PayCounter}
	res, err := svc.Submit(context.Background(), customer, d)
	require.NoError(t, err)
	assert.True(t, res.Booking.IsFlexible())
	assert.Equal(t, "15:00", res.Booking.BookingTime)
	assert.Equal(t, model.BookingAwaitingApproval, res.Booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitFlexibleInThePast(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	expectItem(mock)

	d := booking.Draft{ItemID: 3, Flexible: true, CustomDate: "2026-10-19", CustomTime: "08:30",
		Mobile: "0812345678", PaymentMethod: model.PayCounter}
	_, err := svc.Submit(context.Background(), customer, d)
	assert.ErrorIs(t, err, ErrPastDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type memStore struct {
	keys []string
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "https://cdn.studio.test/" + key, nil
}

func (m *memStore) Delete(context.Context, string) error { return nil }

var _ storage.Store = (*memStore)(nil)

func pngDataURI() string {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func TestSubmitUploadsReferenceImages(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	st := &memStore{}
	svc.store = st

	expectItem(mock)
	expectSlotRead(mock, 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET current_bookings = current_bookings + 1")).
		WithArgs(uint64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
	expectSlotRead(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectCommit()

	d := slotDraft(model.PayOnline)
	d.ReferenceImages = []string{pngDataURI(), pngDataURI()}
	res, err := svc.Submit(context.Background(), customer, d)
	require.NoError(t, err)

	require.Len(t, st.keys, 2)
	assert.NotEqual(t, st.keys[0], st.keys[1])
	for i, k := range st.keys {
		assert.True(t, strings.HasPrefix(k, "bookings/"), k)
		assert.True(t, strings.HasSuffix(k, ".png"), k)
		assert.Equal(t, "https://cdn.studio.test/"+k, res.Booking.ReferenceImages[i])
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBadReferenceImageIsCustomizationError(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	st := &memStore{}
	svc.store = st
	expectItem(mock)
	expectSlotRead(mock, 0)

	d := slotDraft(model.PayOnline)
	d.ReferenceImages = []string{"data:image/png;base64,not-base64!"}
	_, err := svc.Submit(context.Background(), customer, d)
	var serr *booking.StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, booking.StepCustomization, serr.Step)
	assert.Equal(t, "reference_images", serr.Field)
	assert.Empty(t, st.keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitReferenceImagesWithoutStorage(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	expectItem(mock)
	expectSlotRead(mock, 0)

	d := slotDraft(model.PayOnline)
	d.ReferenceImages = []string{pngDataURI()}
	_, err := svc.Submit(context.Background(), customer, d)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var orderCols = []string{"order_id", "booking_id", "token", "redirect_url", "amount_cents", "currency", "created_at"}

func TestCheckoutReusesOpenOrder(t *testing.T) {
	svc, mock, gw, _ := newBookingService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(21)).WillReturnRows(pendingBookingRow("BK-OPEN"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_orders WHERE order_id = ?")).
		WithArgs("BK-OPEN").
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow("BK-OPEN", 21, "snap-open", "https://pay/open", 150000, "IDR",
			time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)))

	order, err := svc.Checkout(context.Background(), customer, 21)
	require.NoError(t, err)
	assert.Equal(t, "BK-OPEN", order.OrderID)
	assert.Equal(t, "snap-open", order.Token)
	assert.Empty(t, gw.orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutReplacesExpiredOrder(t *testing.T) {
	svc, mock, gw, _ := newBookingService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(21)).WillReturnRows(pendingBookingRow("BK-OLD"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_orders WHERE order_id = ?")).
		WithArgs("BK-OLD").
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow("BK-OLD", 21, "snap-old", "https://pay/old", 150000, "IDR",
			time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)))
	expectItem(mock)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_orders")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_order_id = ?")).
		WithArgs(sqlmock.AnyArg(), uint64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := svc.Checkout(context.Background(), customer, 21)
	require.NoError(t, err)
	assert.NotEqual(t, "BK-OLD", order.OrderID)
	require.Len(t, gw.orders, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRefusesMinorUnits(t *testing.T) {
	svc, mock, gw, _ := newBookingService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(uint64(21)).WillReturnRows(bookingRow("", "pending", 150050))

	_, err := svc.Checkout(context.Background(), customer, 21)
	assert.ErrorIs(t, err, payment.ErrFractionalAmount)
	assert.Empty(t, gw.orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A payment of an order that was later replaced still settles the booking.
func TestVerifySupersededOrderSettles(t *testing.T) {
	svc, mock, _, _ := newBookingService(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_orders WHERE order_id = ?")).
		WithArgs("BK-OLD").WillReturnRows(pendingBookingRow("BK-NEW"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("confirmed", "txn-1", uint64(21), "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectItem(mock)

	b, err := svc.Verify(context.Background(), 0, signed("BK-OLD", "settlement", 150000))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
