package middleware

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"expense-tracker/internal/errors"
	"expense-tracker/internal/handlers"
	"expense-tracker/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// NewHTTPErrorHandler returns an Echo error handler that formats errors as
// standardized error responses, logs them and counts them by code
func NewHTTPErrorHandler(metrics services.MetricsRecorderInterface) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		traceID := responseTraceID(c)

		errorResponse, httpStatus := buildErrorResponse(err, traceID)

		logLevel := slog.LevelWarn
		if httpStatus >= 500 {
			logLevel = slog.LevelError
		}

		slog.Log(c.Request().Context(), logLevel, "HTTP error occurred",
			"trace_id", traceID,
			"error_code", errorResponse.Error.Code,
			"status", httpStatus,
			"message", errorResponse.Error.Message,
			"path", c.Request().URL.Path,
			"method", c.Request().Method,
			"error", err.Error(),
		)

		recordAPIError(metrics, errorResponse.Error.Code, httpStatus)

		if sendErr := c.JSON(httpStatus, errorResponse); sendErr != nil {
			slog.Error("Failed to send error response",
				"trace_id", traceID,
				"error", sendErr.Error(),
			)
		}
	}
}

func buildErrorResponse(err error, traceID string) (*errors.ErrorResponse, int) {
	var echoErr *echo.HTTPError
	var validationErrs validator.ValidationErrors

	switch {
	case stderrors.As(err, &echoErr):
		code := mapHTTPStatusToErrorCode(echoErr.Code)
		return errors.NewErrorResponse(code, traceID, errors.WithMessage(fmt.Sprintf("%v", echoErr.Message))), echoErr.Code
	case stderrors.As(err, &validationErrs):
		fieldErrors := make(map[string]string, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fieldErrors[fieldErr.Field()] = formatValidationError(fieldErr)
		}
		return errors.NewValidationError(fieldErrors, traceID), http.StatusBadRequest
	default:
		return errors.NewSystemError(traceID), http.StatusInternalServerError
	}
}

// ErrorMetrics counts the error responses that handlers write themselves.
// Errors returned to Echo are counted by the HTTP error handler instead.
func ErrorMetrics(metrics services.MetricsRecorderInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				return err
			}

			if code, ok := c.Get(handlers.ErrorCodeContextKey).(errors.ErrorCode); ok {
				recordAPIError(metrics, string(code), c.Response().Status)
			}
			return nil
		}
	}
}

func recordAPIError(metrics services.MetricsRecorderInterface, code string, status int) {
	if metrics == nil {
		return
	}
	metrics.IncrementCounter(services.MetricAPIError, map[string]string{
		"code":   code,
		"status": strconv.Itoa(status),
	})
}

// statusErrorCodes maps the statuses Echo raises itself (routing, binding, body limits) to API codes.
// Routing 404s use the generic page-not-found code.
var statusErrorCodes = map[int]errors.ErrorCode{
	http.StatusBadRequest:            errors.ValidationGeneral,
	http.StatusUnauthorized:          errors.AuthMissingToken,
	http.StatusForbidden:             errors.AuthInsufficientPermission,
	http.StatusNotFound:              errors.UserPageNotFound,
	http.StatusMethodNotAllowed:      errors.ValidationGeneral,
	http.StatusRequestEntityTooLarge: errors.ValidationGeneral,
	http.StatusUnprocessableEntity:   errors.ValidationGeneral,
	http.StatusTooManyRequests:       errors.SystemRateLimitExceeded,
	http.StatusInternalServerError:   errors.SystemInternalError,
	http.StatusServiceUnavailable:    errors.SystemServiceUnavailable,
}

func mapHTTPStatusToErrorCode(status int) errors.ErrorCode {
	if code, ok := statusErrorCodes[status]; ok {
		return code
	}
	return errors.SystemUnexpectedError
}

// formatValidationError converts a validator.FieldError to a human-readable message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		default:
			return fmt.Sprintf("must be at least %s", fe.Param())
		}
	case "max":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		default:
			return fmt.Sprintf("must be at most %s", fe.Param())
		}
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "money":
		return "must be a positive amount with at most 2 decimal places"
	case "month_year":
		return "must be M-YYYY with a month between 1 and 12 and a year between 2000 and 2100"
	case "username":
		return "must be 3-50 characters of letters, digits and underscores"
	case "category_type":
		return "must be credit or debit"
	default:
		return fmt.Sprintf("failed validation for '%s'", fe.Tag())
	}
}
