package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller's id
// (uint64) and role in the context under KeyUserID and KeyRole.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Expect: Authorization: Bearer <token>
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return deny(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			}
			id, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return deny(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			}
			// Expose identity to handlers
			c.Set(KeyUserID, id.UserID)
			c.Set(KeyRole, id.Role)
			return next(c)
		}
	}
}
