package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/service"
)

// BookingHandler exposes the booking wizard's server side and the admin
// approval queue.
type BookingHandler struct {
	Bookings *service.BookingService
	Admin    *service.AdminSlotService
	Log      *zap.Logger
}

func NewBookingHandler(b *service.BookingService, admin *service.AdminSlotService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{Bookings: b, Admin: admin, Log: log}
}

type checkoutReq struct {
	BookingID uint64 `json:"booking_id" validate:"required"`
}

// verifyReq is the widget result posted back by the client.
type verifyReq struct {
	BookingID uint64 `json:"booking_id"`
	payment.Notification
}

// Submit accepts a completed wizard draft.  A failing step is reported as
// 422 with the step and field.
func (h *BookingHandler) Submit(c echo.Context) error {
	var d booking.Draft
	if err := c.Bind(&d); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Bookings.Submit(ctx, middleware.Session(c), d)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *BookingHandler) Mine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Bookings.ListMine(ctx, middleware.Session(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Get(ctx, middleware.Session(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Checkout opens a hosted payment order for an online booking.
func (h *BookingHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	order, err := h.Bookings.Checkout(ctx, middleware.Session(c), req.BookingID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, order)
}

// Verify applies the signed widget result.  Any signature, status or
// amount problem is 402 and the booking stays pending.
func (h *BookingHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Verify(ctx, req.BookingID, req.Notification)
	if err != nil {
		return verifyFailed(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// verifyFailed answers every payment rejection with the same body so the
// client cannot tell which check failed.
func verifyFailed(c echo.Context, log *zap.Logger, err error) error {
	for _, m := range statusOf {
		if m.status == http.StatusPaymentRequired && errors.Is(err, m.err) {
			return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "verification failed"})
		}
	}
	return fail(c, log, err)
}

// ----- admin -----

// ByStatus lists bookings in ?status= (all when empty), newest first.
func (h *BookingHandler) ByStatus(c echo.Context) error {
	limit, err := queryUint(c, "limit")
	if err != nil {
		return fail(c, h.Log, err)
	}
	if limit == 0 || limit > 500 {
		limit = 100
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Admin.BookingsByStatus(ctx, model.BookingStatus(c.QueryParam("status")), int(limit))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) Approve(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Approve(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel cancels a booking and gives its seat back to the slot.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Cancel(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}
