package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/service"
)

// PublicHandler serves the anonymous catalog.
type PublicHandler struct {
	Catalog *service.Catalog
	Log     *zap.Logger
}

func NewPublicHandler(c *service.Catalog, log *zap.Logger) *PublicHandler {
	return &PublicHandler{Catalog: c, Log: log}
}

// ListEvents: GET /v1/events
func (h *PublicHandler) ListEvents(c echo.Context) error {
	events, err := h.Catalog.ListEvents(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": mapSlice(events, toEventView)})
}

// GetEvent: GET /v1/events/:id
func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ev, err := h.Catalog.GetEvent(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toEventView(ev))
}

// ListTicketClasses: GET /v1/events/:id/ticket-classes
func (h *PublicHandler) ListTicketClasses(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	classes, err := h.Catalog.ListTicketClasses(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket_classes": mapSlice(classes, toTicketClassView)})
}
