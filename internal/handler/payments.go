package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// PaymentHandler receives server-to-server gateway notifications.  The
// order id prefix tells which ledger the payment belongs to.
type PaymentHandler struct {
	Bookings *service.BookingService
	Tokens   *service.TokenSaleService
	Log      *zap.Logger
}

func NewPaymentHandler(b *service.BookingService, t *service.TokenSaleService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Bookings: b, Tokens: t, Log: log}
}

// Notify answers 200 once a correctly signed notification has been
// processed, so the gateway stops retrying.  Failed payments and orders
// that already left pending count as processed.  A bad signature or a wrong
// amount is still refused.
func (h *PaymentHandler) Notify(c echo.Context) error {
	var n payment.Notification
	if err := bind(c, &n); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var err error
	switch payment.OrderPrefix(n.OrderID) {
	case service.BookingOrderPrefix:
		_, err = h.Bookings.Verify(ctx, 0, n)
	case service.TokenOrderPrefix:
		_, err = h.Tokens.Verify(ctx, n)
	default:
		h.Log.Warn("notification for unknown order", zap.String("order_id", n.OrderID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown order"})
	}
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	case errors.Is(err, service.ErrPaymentFailed),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrSoldOut):
		h.Log.Info("notification processed without settling", zap.String("order_id", n.OrderID), zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{"status": "not_settled"})
	}
	h.Log.Warn("notification rejected", zap.String("order_id", n.OrderID), zap.Error(err))
	return verifyFailed(c, h.Log, err)
}
