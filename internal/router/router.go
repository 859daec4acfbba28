// Package router registers the HTTP routes.  Public and auth routes live
// here; customer and admin routes have their own files.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Catalog  *handler.CatalogHandler
	Slots    *handler.SlotHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
	Feed     *handler.FeedHandler
	Tokens   *handler.TokenHandler
	Cart     *handler.CartHandler
	Uploads  *handler.UploadHandler
}

// Middlewares are built once in main from config and shared by groups.
type Middlewares struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc // applied to write endpoints
	Cache     echo.MiddlewareFunc // applied to public catalog reads
}

func (m Middlewares) rateLimit() echo.MiddlewareFunc {
	if m.RateLimit == nil {
		return passThrough
	}
	return m.RateLimit
}

func (m Middlewares) cache() echo.MiddlewareFunc {
	if m.Cache == nil {
		return passThrough
	}
	return m.Cache
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// Register wires every route on e.
func Register(e *echo.Echo, h Handlers, m Middlewares) {
	RegisterRoutes(e, h.Health)
	RegisterAuth(e, h.Auth, m)
	RegisterPublic(e, h, m)
	RegisterCustomer(e, h, m)
	RegisterAdmin(e, h, m)
}

// RegisterRoutes exposes the health checks used by load balancers.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler) {
	e.GET("/healthz", health.Live)
	e.GET("/readyz", health.Ready)
}

// RegisterAuth registers token issuing under /api/auth and the protected
// /api/me.  Logout works with either a bearer token or a refresh token, so
// it sits outside the JWT group.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, m Middlewares) {
	g := e.Group("/api/auth", m.rateLimit())
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/api/me", a.Me,
		middleware.JWTAuth(m.JWTSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
}

// RegisterPublic registers guest-readable endpoints.  Catalog reads go
// through the response cache; the feed reads the caller's reactions when a
// token is present.
func RegisterPublic(e *echo.Echo, h Handlers, m Middlewares) {
	cached := e.Group("/api", m.cache())
	cached.GET("/catalog/:kind", h.Catalog.List)
	cached.GET("/categories", h.Catalog.Categories)
	cached.GET("/tattoos/:id", h.Catalog.Get(model.KindTattoo))
	cached.GET("/classes/:id", h.Catalog.Get(model.KindClass))

	api := e.Group("/api")
	api.GET("/tattoos/:id/slots", h.Slots.ForItem(model.KindTattoo))
	api.GET("/classes/:id/sessions", h.Slots.ForItem(model.KindClass))
	api.GET("/tokens/config", h.Tokens.Config)

	// The gateway calls this server to server; the signature is the
	// authentication.
	api.POST("/payments/notify", h.Payments.Notify)

	feed := e.Group("/api/feed", middleware.OptionalAuth(m.JWTSecret))
	feed.GET("", h.Feed.List)
	feed.GET("/:id", h.Feed.Get)
	feed.GET("/:id/comments", h.Feed.Comments)
}
