package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/payment"
	"github.com/iliyamo/studio-booking/internal/service"
)

type TokenHandler struct {
	Sale *service.TokenSaleService
	Log  *zap.Logger
}

func NewTokenHandler(sale *service.TokenSaleService, log *zap.Logger) *TokenHandler {
	return &TokenHandler{Sale: sale, Log: log}
}

type tokenCheckoutReq struct {
	Tokens uint32 `json:"tokens" validate:"required"`
}

type tokenConfigReq struct {
	PricePerTokenCents uint64 `json:"price_per_token_cents" validate:"required"`
	Currency           string `json:"currency" validate:"required,len=3"`
	MinTokens          uint32 `json:"min_tokens" validate:"required"`
	MaxTokens          uint32 `json:"max_tokens" validate:"required"`
	TotalSupply        uint64 `json:"total_supply" validate:"required"`
	IsActive           bool   `json:"is_active"`
}

// Config returns the offering with the remaining supply.
func (h *TokenHandler) Config(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	cfg, err := h.Sale.Config(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"config": cfg, "remaining": cfg.Remaining()})
}

func (h *TokenHandler) Checkout(c echo.Context) error {
	var req tokenCheckoutReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Sale.Checkout(ctx, middleware.Session(c), req.Tokens)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// Verify applies the widget result of a token purchase.
func (h *TokenHandler) Verify(c echo.Context) error {
	var n payment.Notification
	if err := bind(c, &n); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Sale.Verify(ctx, n)
	if err != nil {
		return verifyFailed(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// SaveConfig replaces the offering.  The sold counter is kept.
func (h *TokenHandler) SaveConfig(c echo.Context) error {
	var req tokenConfigReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cfg, err := h.Sale.SaveConfig(ctx, model.TokenSaleConfig{
		PricePerTokenCents: req.PricePerTokenCents, Currency: req.Currency,
		MinTokens: req.MinTokens, MaxTokens: req.MaxTokens,
		TotalSupply: req.TotalSupply, IsActive: req.IsActive,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cfg)
}
