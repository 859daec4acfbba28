package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/session"
)

const sessionKey = "session"

// Session returns the caller stored by JWTAuth or OptionalAuth, or a guest
// session when the request is anonymous.
func Session(c echo.Context) session.Session {
	if s, ok := c.Get(sessionKey).(session.Session); ok {
		return s
	}
	return session.Session{}
}

// userKey identifies the caller in rate limit keys.
func userKey(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
