package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/handler"
	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// RegisterCustomer registers buyer endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, guards Guards) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer),
	)
	limit := guards.limit()

	g.POST("/orders", h.CreateOrder, limit...)
	g.POST("/payments/capture", h.CapturePayment, limit...)
	g.POST("/refunds/request", h.RequestRefund, limit...)
	g.GET("/my-orders", h.ListMyOrders)
	g.GET("/my-tickets", h.ListMyTickets)
}
