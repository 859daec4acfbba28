package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

// RegisterAdmin registers studio management endpoints under /api/admin.
// All of them require the ADMIN role.
func RegisterAdmin(e *echo.Echo, h Handlers, m Middlewares) {
	g := e.Group(
		"/api/admin",
		middleware.JWTAuth(m.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.GET("/catalog/:kind", h.Catalog.AdminList)
	g.POST("/catalog/:kind", h.Catalog.Create)
	g.PUT("/catalog/:kind/:id", h.Catalog.Update)
	g.DELETE("/catalog/:kind/:id", h.Catalog.Delete)
	g.POST("/categories", h.Catalog.CreateCategory)
	g.DELETE("/categories/:id", h.Catalog.DeleteCategory)

	g.GET("/slots", h.Slots.ListForDate)
	g.POST("/slots", h.Slots.Create)
	g.DELETE("/slots/:id", h.Slots.Delete)
	g.GET("/slots/:id/bookings", h.Slots.Bookings)

	g.GET("/bookings", h.Bookings.ByStatus)
	g.POST("/bookings/:id/approve", h.Bookings.Approve)
	g.POST("/bookings/:id/cancel", h.Bookings.Cancel)

	g.PUT("/tokens/config", h.Tokens.SaveConfig)
	g.POST("/uploads", h.Uploads.Upload)
}
