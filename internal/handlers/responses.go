package handlers

import (
	"log/slog"
	"net/http"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/errors"

	"github.com/labstack/echo/v4"
)

// Handlers never return raw errors for expected failures. SendError covers the
// catalogued 4xx/5xx codes; anything unexpected goes through SendSystemError so
// the client only ever sees SYSTEM_001.

// SuccessResponse is the envelope for every 2xx body
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func traceID(c echo.Context) string {
	id, _ := c.Get(TraceIDContextKey).(string)
	return id
}

// SendError writes the catalogued response for code and remembers the code for the metrics middleware
func SendError(c echo.Context, code errors.ErrorCode, opts ...errors.ErrorOption) error {
	body := errors.NewErrorResponse(code, traceID(c), opts...)
	c.Set(ErrorCodeContextKey, code)
	return c.JSON(body.Status(), body)
}

// SendSystemError logs err and answers with the generic internal error
func SendSystemError(c echo.Context, err error) error {
	id := traceID(c)
	slog.Error("request failed",
		"trace_id", id,
		"method", c.Request().Method,
		"route", c.Path(),
		"error", err,
	)

	c.Set(ErrorCodeContextKey, errors.SystemInternalError)
	return c.JSON(http.StatusInternalServerError, errors.NewSystemError(id))
}

// SendList writes one page of results with its pagination meta
func SendList(c echo.Context, data interface{}, page dto.PageQuery, total int64) error {
	return c.JSON(http.StatusOK, SuccessResponse{Data: data, Meta: dto.NewPaginationMeta(page, total)})
}
