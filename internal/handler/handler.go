// Package handler holds the Echo handlers.  Each handler bounds its store
// calls with a 5 second timeout and answers errors as {"error": "..."}.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/cart"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/storage"
)

const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: name, Message: "invalid id"}
	}
	return id, nil
}

// queryUint parses an optional numeric query parameter; missing is 0.
func queryUint(c echo.Context, name string) (uint64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, &service.ValidationError{Field: name, Message: "must be a number"}
	}
	return n, nil
}

// statusOf maps sentinel errors to HTTP statuses.  Unknown errors are 500.
var statusOf = []struct {
	err    error
	status int
}{
	{repository.ErrNotFound, http.StatusNotFound},
	{repository.ErrForbidden, http.StatusForbidden},
	{repository.ErrSlotFull, http.StatusConflict},
	{repository.ErrAlreadyVoted, http.StatusConflict},
	{repository.ErrEmailExists, http.StatusConflict},
	{repository.ErrConflict, http.StatusConflict},
	{repository.ErrSoldOut, http.StatusConflict},
	{service.ErrFlexibleNotAllowed, http.StatusConflict},
	{service.ErrNotOnline, http.StatusConflict},
	{service.ErrSaleClosed, http.StatusConflict},
	{service.ErrNotBookable, http.StatusUnprocessableEntity},
	{service.ErrPastDate, http.StatusUnprocessableEntity},
	{payment.ErrInvalidSignature, http.StatusPaymentRequired},
	{service.ErrAmountMismatch, http.StatusPaymentRequired},
	{service.ErrPaymentFailed, http.StatusPaymentRequired},
	{payment.ErrFractionalAmount, http.StatusUnprocessableEntity},
	{payment.ErrGateway, http.StatusBadGateway},
	{service.ErrPaymentsDisabled, http.StatusServiceUnavailable},
	{service.ErrStorageDisabled, http.StatusServiceUnavailable},
	{storage.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{storage.ErrBadDataURI, http.StatusBadRequest},
	{cart.ErrItemNotInCart, http.StatusNotFound},
	{cart.ErrQuantity, http.StatusBadRequest},
	{cart.ErrBusy, http.StatusConflict},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// fail writes err as a JSON error response.  Only unexpected errors are
// logged; their text never reaches the client.
func fail(c echo.Context, log *zap.Logger, err error) error {
	var stepErr *booking.StepError
	if errors.As(err, &stepErr) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": stepErr.Message, "step": stepErr.Step.String(), "field": stepErr.Field,
		})
	}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Message, "field": verr.Field})
	}
	var inUse *repository.SlotInUseError
	if errors.As(err, &inUse) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": inUse.Error(), "bookings": inUse.Bookings, "hint": "cancel them first",
		})
	}
	if errors.Is(err, service.ErrConfirmRequired) {
		return c.JSON(http.StatusPreconditionRequired, echo.Map{
			"error": "confirmation required", "confirm": "repeat the request with ?confirm=true",
		})
	}
	for _, m := range statusOf {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, echo.Map{"error": m.err.Error()})
		}
	}
	log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
