package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/money"
	"github.com/iliyamo/ticket-marketplace/internal/service"
)

// OrganizerHandler serves event management, refund review, door scanning
// and the organizer's money views.
type OrganizerHandler struct {
	Svc *service.Services
	Log *zap.Logger
}

func NewOrganizerHandler(svc *service.Services, log *zap.Logger) *OrganizerHandler {
	return &OrganizerHandler{Svc: svc, Log: log}
}

type createEventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

type createTicketClassReq struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	QuantityTotal int             `json:"quantity_total"`
}

type updateTicketClassReq struct {
	QuantityTotal *int `json:"quantity_total"`
}

type orderRef struct {
	OrderID uint64 `json:"order_id"`
}

type scanReq struct {
	Code    string `json:"code"`
	EventID uint64 `json:"event_id"`
}

type payoutReq struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateEvent: POST /v1/organizer/events
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ev, err := h.Svc.Catalog.CreateEvent(c.Request().Context(), uid, service.EventInput{
		Title: req.Title, Description: req.Description, Location: req.Location,
		Category: req.Category, StartsAt: req.StartsAt, EndsAt: req.EndsAt,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toEventView(ev))
}

// CreateTicketClass: POST /v1/organizer/events/:id/ticket-classes
func (h *OrganizerHandler) CreateTicketClass(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req createTicketClassReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	tc, err := h.Svc.Catalog.CreateTicketClass(c.Request().Context(), uid, eventID, service.TicketClassInput{
		Name: req.Name, Price: req.Price, QuantityTotal: req.QuantityTotal,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toTicketClassView(tc))
}

// UpdateTicketClass: PATCH /v1/organizer/ticket-classes/:id
func (h *OrganizerHandler) UpdateTicketClass(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	classID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket class id")
	}
	var req updateTicketClassReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.QuantityTotal == nil {
		return badRequest(c, "quantity_total is required")
	}
	tc, err := h.Svc.Catalog.UpdateCapacity(c.Request().Context(), uid, classID, *req.QuantityTotal)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toTicketClassView(tc))
}

func bindOrderRef(c echo.Context) (uint64, bool) {
	var req orderRef
	if err := c.Bind(&req); err != nil || req.OrderID == 0 {
		return 0, false
	}
	return req.OrderID, true
}

// ApproveRefund: POST /v1/refunds/approve
func (h *OrganizerHandler) ApproveRefund(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	orderID, ok := bindOrderRef(c)
	if !ok {
		return badRequest(c, "order_id is required")
	}
	o, err := h.Svc.Refunds.ApproveRefund(c.Request().Context(), uid, orderID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(o.Status)})
}

// RejectRefund: POST /v1/refunds/reject
func (h *OrganizerHandler) RejectRefund(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	orderID, ok := bindOrderRef(c)
	if !ok {
		return badRequest(c, "order_id is required")
	}
	o, err := h.Svc.Refunds.RejectRefund(c.Request().Context(), uid, orderID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(o.Status)})
}

// ListRefundRequests: GET /v1/organizer/refund-requests
func (h *OrganizerHandler) ListRefundRequests(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	orders, err := h.Svc.Refunds.ListRefundRequests(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": mapSlice(orders, toOrderView)})
}

// Scan: POST /v1/tickets/scan.  Rejections of a valid code are reported
// in the result field with status 200.
func (h *OrganizerHandler) Scan(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req scanReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" || req.EventID == 0 {
		return badRequest(c, "code and event_id are required")
	}
	res, err := h.Svc.Scanner.Scan(c.Request().Context(), uid, code, req.EventID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"result": string(res)})
}

// Wallet: GET /v1/organizer/wallet
func (h *OrganizerHandler) Wallet(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	w, err := h.Svc.Views.OrganizerWallet(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"organizer_id": uid,
		"balance":      w.Balance.StringFixed(money.Places),
	})
}

// Payouts: GET /v1/organizer/payouts
func (h *OrganizerHandler) Payouts(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	ps, err := h.Svc.Payouts.ListPayouts(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payouts": mapSlice(ps, toPayoutView)})
}

// RequestPayout: POST /v1/organizer/payouts
func (h *OrganizerHandler) RequestPayout(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req payoutReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Svc.Payouts.RequestPayout(c.Request().Context(), uid, req.Amount)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toPayoutView(p))
}

// Dashboard: GET /v1/organizer/dashboard
func (h *OrganizerHandler) Dashboard(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	d, err := h.Svc.Views.OrganizerDashboard(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toDashboardView(d))
}
