package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"expense-tracker/internal/errors"
	"expense-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// PanicRecovery turns a handler panic into a logged, counted SYSTEM_001 response
func PanicRecovery(metrics services.MetricsRecorderInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				err = nil

				traceID := responseTraceID(c)
				slog.ErrorContext(c.Request().Context(), "panic recovered",
					"trace_id", traceID,
					"panic", recovered,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"stack", string(debug.Stack()),
				)
				recordAPIError(metrics, string(errors.SystemInternalError), http.StatusInternalServerError)

				// Headers already went out; the client sees a truncated body.
				if c.Response().Committed {
					return
				}

				if sendErr := c.JSON(http.StatusInternalServerError, errors.NewSystemError(traceID)); sendErr != nil {
					slog.Error("failed to write panic response", "trace_id", traceID, "error", sendErr)
				}
			}()

			return next(c)
		}
	}
}
