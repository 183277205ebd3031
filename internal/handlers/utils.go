package handlers

import (
	"fmt"
	"time"

	"expense-tracker/internal/errors"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Echo context keys shared with the middleware package
const (
	TraceIDContextKey   = "trace_id"
	ErrorCodeContextKey = "error_code"
	UserIDContextKey    = "user_id"
	UserEmailContextKey = "user_email"
	UserRoleContextKey  = "user_role"
	TokenJTIContextKey  = "token_jti"
	IsStaffContextKey   = "is_staff"
)

// ErrUnauthorized means the request reached a handler without an authenticated user
var ErrUnauthorized = fmt.Errorf("unauthorized")

// SetPrincipal stores the verified token identity on the request context
func SetPrincipal(c echo.Context, userID uuid.UUID, claims *models.CustomClaims) {
	c.Set(UserIDContextKey, userID)
	c.Set(UserEmailContextKey, claims.Email)
	c.Set(UserRoleContextKey, claims.Role)
	c.Set(TokenJTIContextKey, claims.ID)
	c.Set(IsStaffContextKey, claims.IsStaff())
}

// actorFromContext builds the service actor for the authenticated caller
func actorFromContext(c echo.Context) (models.Actor, error) {
	userID, ok := c.Get(UserIDContextKey).(uuid.UUID)
	if !ok {
		return models.Actor{}, ErrUnauthorized
	}

	isStaff, _ := c.Get(IsStaffContextKey).(bool)
	return models.Actor{
		UserID:    userID,
		IsStaff:   isStaff,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}, nil
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// parseOptionalUUID returns nil for an empty query value
func parseOptionalUUID(value string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDateParam accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
// A plain end date covers the whole day.
func parseDateParam(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// bindBody decodes the request into req and, when validate is set, runs the
// struct tags. ok is false when a response has already been produced; the
// caller returns err as is.
func bindBody(c echo.Context, req interface{}, validate bool) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}
	if validate {
		if err := c.Validate(req); err != nil {
			return false, err
		}
	}
	return true, nil
}
