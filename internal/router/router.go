// Package router registers the HTTP routes of the marketplace API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/ticket-marketplace/internal/handler"
	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// Guards are the optional per-route middlewares.  A nil field is skipped.
type Guards struct {
	Limit echo.MiddlewareFunc // mutating routes
	Cache echo.MiddlewareFunc // public GETs
}

func (g Guards) limit() []echo.MiddlewareFunc { return optional(g.Limit) }
func (g Guards) cache() []echo.MiddlewareFunc { return optional(g.Cache) }

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}

// RegisterRoutes registers the operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the account endpoints.  Logout does not require a
// JWT: a refresh token in the body is enough.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, guards Guards) {
	g := e.Group("/v1/auth", guards.limit()...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
	g.POST("/otp/send", a.SendOTP)
	g.POST("/otp/verify", a.VerifyOTP)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleOrganizer),
	)
}

// RegisterPublic registers the anonymous catalog.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, guards Guards) {
	g := e.Group("/v1/events", guards.cache()...)
	g.GET("", p.ListEvents)
	g.GET("/:id", p.GetEvent)
	g.GET("/:id/ticket-classes", p.ListTicketClasses)
}
