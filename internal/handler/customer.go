package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/service"
)

// CustomerHandler serves the buyer routes.  JWTAuth and RequireRole run
// before every method.
type CustomerHandler struct {
	Svc *service.Services
	Log *zap.Logger
}

func NewCustomerHandler(svc *service.Services, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{Svc: svc, Log: log}
}

type createOrderReq struct {
	TicketClassID uint64 `json:"ticket_class_id"`
	Quantity      int    `json:"quantity"`
}

type captureReq struct {
	OrderID  uint64 `json:"order_id"`
	Provider string `json:"provider"`
	Phone    string `json:"phone"`
}

type refundReq struct {
	OrderID uint64 `json:"order_id"`
	Reason  string `json:"reason"`
}

// CreateOrder: POST /v1/orders
func (h *CustomerHandler) CreateOrder(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.TicketClassID == 0 {
		return badRequest(c, "ticket_class_id is required")
	}
	o, err := h.Svc.Settlement.CreateOrder(c.Request().Context(), uid, req.TicketClassID, req.Quantity)
	if err != nil {
		return fail(c, h.Log, err)
	}
	v := toOrderView(o)
	return c.JSON(http.StatusCreated, echo.Map{
		"id":               v.ID,
		"total":            v.Total,
		"commission":       v.Commission,
		"organizer_amount": v.OrganizerAmount,
		"status":           v.Status,
	})
}

// CapturePayment: POST /v1/payments/capture
func (h *CustomerHandler) CapturePayment(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req captureReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.OrderID == 0 {
		return badRequest(c, "order_id is required")
	}
	res, err := h.Svc.Settlement.CapturePayment(c.Request().Context(), uid, req.OrderID,
		strings.ToLower(strings.TrimSpace(req.Provider)), strings.TrimSpace(req.Phone))
	if err != nil {
		return fail(c, h.Log, err)
	}
	tickets := make([]echo.Map, 0, len(res.Tickets))
	for _, t := range res.Tickets {
		tickets = append(tickets, echo.Map{"code": t.Code, "asset_ref": t.AssetRef})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"order_id":     res.Order.ID,
		"status":       string(res.Order.Status),
		"already_paid": res.AlreadyPaid,
		"tickets":      tickets,
	})
}

// RequestRefund: POST /v1/refunds/request
func (h *CustomerHandler) RequestRefund(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req refundReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.OrderID == 0 {
		return badRequest(c, "order_id is required")
	}
	o, err := h.Svc.Refunds.RequestRefund(c.Request().Context(), uid, req.OrderID, req.Reason)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(o.Status)})
}

// ListMyOrders: GET /v1/my-orders
func (h *CustomerHandler) ListMyOrders(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	orders, err := h.Svc.Views.ListMyOrders(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": mapSlice(orders, toOrderView)})
}

// ListMyTickets: GET /v1/my-tickets
func (h *CustomerHandler) ListMyTickets(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	tickets, err := h.Svc.Views.ListMyTickets(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": mapSlice(tickets, toTicketView)})
}
