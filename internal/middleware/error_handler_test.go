package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "expense-tracker/internal/errors"
	"expense-tracker/internal/handlers"
	"expense-tracker/internal/services"
	"expense-tracker/internal/services/service_mocks"

	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// ErrorHandlerTestSuite defines the test suite for error handler middleware
type ErrorHandlerTestSuite struct {
	suite.Suite
	echo    *echo.Echo
	ctrl    *gomock.Controller
	metrics *service_mocks.MockMetricsRecorderInterface
	handler echo.HTTPErrorHandler
}

// SetupTest runs before each test
func (s *ErrorHandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.metrics = service_mocks.NewMockMetricsRecorderInterface(s.ctrl)
	s.handler = NewHTTPErrorHandler(s.metrics)
	s.echo = echo.New()
	s.echo.HTTPErrorHandler = s.handler
}

func (s *ErrorHandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

// TestErrorHandlerTestSuite runs the test suite
func TestErrorHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorHandlerTestSuite))
}

func (s *ErrorHandlerTestSuite) expectAPIError(code, status string) *gomock.Call {
	return s.metrics.EXPECT().IncrementCounter(services.MetricAPIError, map[string]string{"code": code, "status": status})
}

func (s *ErrorHandlerTestSuite) newContext() (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(TraceIDContextKey, "test-trace-id")
	return c, rec
}

func (s *ErrorHandlerTestSuite) TestEchoHTTPError() {
	s.expectAPIError("USER_005", "404")
	c, rec := s.newContext()

	s.handler(echo.NewHTTPError(http.StatusNotFound, "Resource not found"), c)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "test-trace-id")
	s.Contains(rec.Body.String(), "Resource not found")
}

func (s *ErrorHandlerTestSuite) TestGenericErrorIsHidden() {
	s.expectAPIError("SYSTEM_001", "500")
	c, rec := s.newContext()

	s.handler(errors.New("pq: connection refused"), c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "SYSTEM_001")
	s.NotContains(rec.Body.String(), "connection refused")
	s.Contains(rec.Header().Get("Content-Type"), "application/json")
}

func (s *ErrorHandlerTestSuite) TestNoTraceID() {
	s.expectAPIError("SYSTEM_001", "500")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	s.handler(errors.New("test error"), c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "unknown")
}

func (s *ErrorHandlerTestSuite) TestCommittedResponse() {
	c, rec := s.newContext()
	_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})

	s.handler(errors.New("test error"), c)

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ok")
}

func (s *ErrorHandlerTestSuite) TestValidationErrors() {
	type request struct {
		Amount    decimal.Decimal `json:"amount" validate:"money"`
		MonthYear string          `json:"month_year" validate:"required,month_year"`
	}

	validate := handlers.NewValidator()
	err := validate.Validate(request{Amount: decimal.RequireFromString("-1"), MonthYear: "13-2026"})
	s.Require().Error(err)
	s.Require().IsType(validator.ValidationErrors{}, err)

	s.expectAPIError("VALIDATION_001", "400")
	c, rec := s.newContext()

	s.handler(err, c)

	s.Equal(http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	s.Contains(body, "amount: must be a positive amount with at most 2 decimal places")
	s.Contains(body, "month_year: must be M-YYYY")
}

func (s *ErrorHandlerTestSuite) TestMapHTTPStatusToErrorCode_AllStatuses() {
	testCases := []struct {
		status       int
		expectedCode apperrors.ErrorCode
	}{
		{http.StatusBadRequest, apperrors.ValidationGeneral},
		{http.StatusUnauthorized, apperrors.AuthMissingToken},
		{http.StatusForbidden, apperrors.AuthInsufficientPermission},
		{http.StatusNotFound, apperrors.UserPageNotFound},
		{http.StatusMethodNotAllowed, apperrors.ValidationGeneral},
		{http.StatusTooManyRequests, apperrors.SystemRateLimitExceeded},
		{http.StatusInternalServerError, apperrors.SystemInternalError},
		{http.StatusServiceUnavailable, apperrors.SystemServiceUnavailable},
		{999, apperrors.SystemUnexpectedError},
	}

	for _, tc := range testCases {
		s.Equal(tc.expectedCode, mapHTTPStatusToErrorCode(tc.status), "status %d", tc.status)
	}
}

func (s *ErrorHandlerTestSuite) TestErrorMetrics_CountsHandlerWrittenErrors() {
	s.expectAPIError("BUDGET_002", "409")

	e := echo.New()
	e.HTTPErrorHandler = s.handler
	e.Use(ErrorMetrics(s.metrics))
	e.GET("/conflict", func(c echo.Context) error {
		return handlers.SendError(c, apperrors.BudgetAlreadyExists)
	})
	e.GET("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	s.Equal(http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *ErrorHandlerTestSuite) TestErrorMetrics_ReturnedErrorsCountedOnce() {
	s.expectAPIError("USER_005", "404").Times(1)

	e := echo.New()
	e.HTTPErrorHandler = s.handler
	e.Use(ErrorMetrics(s.metrics))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	s.Equal(http.StatusNotFound, rec.Code)
}
