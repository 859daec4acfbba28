package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

// RegisterCustomer registers endpoints for signed-in users under /api.
// Admins may use them too.  Writes are rate limited per user and route.
func RegisterCustomer(e *echo.Echo, h Handlers, m Middlewares) {
	g := e.Group(
		"/api",
		middleware.JWTAuth(m.JWTSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	rl := m.rateLimit()

	g.POST("/bookings", h.Bookings.Submit, rl)
	g.GET("/bookings/mine", h.Bookings.Mine)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.POST("/checkout", h.Bookings.Checkout, rl)
	g.POST("/verify", h.Bookings.Verify, rl)

	g.POST("/tokens/checkout", h.Tokens.Checkout, rl)
	g.POST("/tokens/verify", h.Tokens.Verify, rl)

	g.GET("/cart", h.Cart.Get)
	g.POST("/cart/items", h.Cart.Add, rl)
	g.PATCH("/cart/items/:item_id", h.Cart.SetQuantity, rl)
	g.DELETE("/cart/items/:item_id", h.Cart.Remove, rl)
	g.DELETE("/cart", h.Cart.Clear, rl)

	g.POST("/feed", h.Feed.Create, rl)
	g.POST("/feed/:id/react", h.Feed.React, rl)
	g.POST("/feed/:id/vote", h.Feed.Vote, rl)
	g.POST("/feed/:id/comments", h.Feed.Comment, rl)
}
