package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by the middleware in this package.
const (
	KeyUserID    = "user_id"
	KeyRole      = "role"
	KeyRequestID = "request_id"
)

// UserID returns the authenticated caller set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(KeyUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated caller's role, or "".
func Role(c echo.Context) string {
	r, _ := c.Get(KeyRole).(string)
	return r
}

// RequestIDOf returns the id assigned by the RequestID middleware, or "".
func RequestIDOf(c echo.Context) string {
	id, _ := c.Get(KeyRequestID).(string)
	return id
}

// currentUserID is the user component of rate-limit keys and log lines.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// deny writes the same error envelope the handlers use.
func deny(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, echo.Map{"error": echo.Map{"kind": kind, "message": msg}})
}
