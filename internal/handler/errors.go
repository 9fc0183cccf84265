package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/service"
)

// errorBody is the envelope of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatusOf maps a service error kind to its HTTP status.
func StatusOf(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindInvalidState, service.KindNotPaid, service.KindEventStarted,
		service.KindTicketAlreadyUsed, service.KindOutOfStock:
		return http.StatusConflict
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUpstreamFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func jsonError(c echo.Context, status int, kind, msg string) error {
	return c.JSON(status, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

func badRequest(c echo.Context, msg string) error {
	return jsonError(c, http.StatusBadRequest, string(service.KindValidation), msg)
}

// fail writes err as a JSON error.  Internal errors are logged and their
// detail is not exposed.
func fail(c echo.Context, log *zap.Logger, err error) error {
	kind := service.KindOf(err)
	status := StatusOf(kind)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return jsonError(c, status, string(service.KindInternal), "internal error")
	}
	msg := err.Error()
	var se *service.Error
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	return jsonError(c, status, string(kind), msg)
}

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
