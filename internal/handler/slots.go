package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// SlotHandler serves slot availability to customers and slot management
// to admins.
type SlotHandler struct {
	Query *service.SlotQueryService
	Admin *service.AdminSlotService
	Items ItemFinder
	Loc   *time.Location
	Log   *zap.Logger
	Now   func() time.Time
}

func NewSlotHandler(q *service.SlotQueryService, admin *service.AdminSlotService, items ItemFinder, loc *time.Location, log *zap.Logger) *SlotHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotHandler{Query: q, Admin: admin, Items: items, Loc: loc, Log: log, Now: time.Now}
}

// dateParam reads ?date=, defaulting to today in the studio time zone.
func (h *SlotHandler) dateParam(c echo.Context) string {
	if d := c.QueryParam("date"); d != "" {
		return d
	}
	return h.Now().In(h.Loc).Format(model.DateLayout)
}

// ForItem lists the bookable slots of an active item of kind for ?date=.
// Any other item is 404.  When the store is unreachable it still answers
// 200 with an empty flexible listing and an error hint.
func (h *SlotHandler) ForItem(kind model.ItemKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return fail(c, h.Log, err)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()

		it, err := h.Items.GetByID(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fail(c, h.Log, err)
		case err != nil:
			// the slot query degrades on its own
			h.Log.Warn("item lookup failed", zap.Uint64("item_id", id), zap.Error(err))
		case !it.IsActive || it.Kind != kind:
			return fail(c, h.Log, repository.ErrNotFound)
		}

		listing, err := h.Query.ForDate(ctx, id, h.dateParam(c), h.Now())
		if err != nil {
			return fail(c, h.Log, err)
		}
		if listing.Degraded {
			return c.JSON(http.StatusOK, echo.Map{
				"item_id": listing.ItemID, "date": listing.Date, "slots": listing.Slots,
				"flexible": listing.Flexible, "error": "availability is temporarily unavailable",
			})
		}
		return c.JSON(http.StatusOK, listing)
	}
}

// ----- admin -----

func (h *SlotHandler) Create(c echo.Context) error {
	var in service.CreateSlotInput
	if err := bind(c, &in); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	sl, err := h.Admin.Create(ctx, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, sl.View())
}

// ListForDate answers GET /api/admin/slots?date=&item_id=.
func (h *SlotHandler) ListForDate(c echo.Context) error {
	itemID, err := queryUint(c, "item_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	day, err := h.Admin.ListForDate(ctx, h.dateParam(c), itemID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, day)
}

// Delete requires ?confirm=true; without it the client gets 428 and is
// expected to ask the operator first.
func (h *SlotHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	confirmed, _ := strconv.ParseBool(c.QueryParam("confirm"))

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Admin.Delete(ctx, id, confirmed); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Bookings lists the bookings attached to a slot.
func (h *SlotHandler) Bookings(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Admin.Bookings(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}
