package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/cart"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// ItemFinder resolves catalog items so cart prices come from the catalog,
// never from the client.
type ItemFinder interface {
	GetByID(ctx context.Context, id uint64) (model.CatalogItem, error)
}

// CartHandler serves the signed-in user's cart.  Carts live in Redis; when
// Redis is not configured every endpoint answers 503.
type CartHandler struct {
	Carts   *cart.Store
	Catalog ItemFinder
	Log     *zap.Logger
}

func NewCartHandler(carts *cart.Store, catalog ItemFinder, log *zap.Logger) *CartHandler {
	return &CartHandler{Carts: carts, Catalog: catalog, Log: log}
}

type addCartReq struct {
	ItemID   uint64 `json:"item_id" validate:"required"`
	Quantity uint32 `json:"quantity" validate:"omitempty,max=99"`
}

type qtyReq struct {
	Quantity uint32 `json:"quantity" validate:"required"`
}

type cartResp struct {
	Items      []model.CartItem `json:"items"`
	TotalCents uint64           `json:"total_cents"`
}

func (h *CartHandler) respond(c echo.Context, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}
	return c.JSON(http.StatusOK, cartResp{Items: items, TotalCents: model.CartTotal(items)})
}

func (h *CartHandler) unavailable(c echo.Context) bool {
	if h.Carts != nil {
		return false
	}
	_ = c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "cart is unavailable"})
	return true
}

func (h *CartHandler) Get(c echo.Context) error {
	if h.unavailable(c) {
		return nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Carts.Get(ctx, middleware.Session(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.respond(c, items)
}

// Add puts an active, purchasable catalog item in the cart.  Bookable
// kinds go through the booking wizard instead.
func (h *CartHandler) Add(c echo.Context) error {
	if h.unavailable(c) {
		return nil
	}
	var req addCartReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	it, err := h.Catalog.GetByID(ctx, req.ItemID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if !it.IsActive {
		return fail(c, h.Log, repository.ErrNotFound)
	}
	if it.Kind.Bookable() {
		return fail(c, h.Log, &service.ValidationError{Field: "item_id", Message: "book this item instead"})
	}
	items, err := h.Carts.Add(ctx, middleware.Session(c).UserID, model.CartItem{
		ItemID: it.ID, Kind: it.Kind, Name: it.Name, PriceCents: it.PriceCents,
		Quantity: req.Quantity, ImageURL: it.ImageURL,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.respond(c, items)
}

func (h *CartHandler) SetQuantity(c echo.Context) error {
	if h.unavailable(c) {
		return nil
	}
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req qtyReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Carts.SetQuantity(ctx, middleware.Session(c).UserID, itemID, req.Quantity)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.respond(c, items)
}

func (h *CartHandler) Remove(c echo.Context) error {
	if h.unavailable(c) {
		return nil
	}
	itemID, err := pathID(c, "item_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Carts.Remove(ctx, middleware.Session(c).UserID, itemID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.respond(c, items)
}

func (h *CartHandler) Clear(c echo.Context) error {
	if h.unavailable(c) {
		return nil
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Carts.Clear(ctx, middleware.Session(c).UserID); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
