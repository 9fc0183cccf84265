package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-marketplace/internal/handler"
	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// RegisterOrganizer registers ORGANIZER-scoped endpoints.  Refund review
// and scanning keep their short paths; everything else lives under
// /v1/organizer.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string, guards Guards) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer),
	}
	limit := guards.limit()

	v1 := e.Group("/v1", auth...)
	v1.POST("/refunds/approve", o.ApproveRefund, limit...)
	v1.POST("/refunds/reject", o.RejectRefund, limit...)
	v1.POST("/tickets/scan", o.Scan, limit...)

	g := e.Group("/v1/organizer", auth...)

	// ---- Catalog ----
	g.POST("/events", o.CreateEvent, limit...)
	g.POST("/events/:id/ticket-classes", o.CreateTicketClass, limit...)
	g.PATCH("/ticket-classes/:id", o.UpdateTicketClass, limit...)

	// ---- Refunds ----
	g.GET("/refund-requests", o.ListRefundRequests)

	// ---- Money ----
	g.GET("/wallet", o.Wallet)
	g.GET("/payouts", o.Payouts)
	g.POST("/payouts", o.RequestPayout, limit...)
	g.GET("/dashboard", o.Dashboard)
}
