package middleware

import (
	stderrors "errors"
	"slices"

	"expense-tracker/internal/errors"
	"expense-tracker/internal/handlers"
	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"
	"expense-tracker/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequireAuth accepts a bearer access token only while its jti is registered as
// active, so logout and password changes cut off tokens that still verify.
func RequireAuth(tokenService services.TokenServiceInterface, activeTokenRepo repositories.ActiveTokenRepositoryInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return handlers.SendError(c, errors.AuthMissingToken)
			}

			claims, code := verifyBearer(tokenService, header)
			if code != "" {
				return handlers.SendError(c, code)
			}

			active, err := activeTokenRepo.Exists(claims.ID)
			if err != nil {
				return handlers.SendSystemError(c, err)
			}
			if !active {
				return handlers.SendError(c, errors.AuthInvalidTokenFormat, errors.WithDetails("Token has been revoked"))
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				return handlers.SendError(c, errors.AuthInvalidTokenFormat, errors.WithDetails("Invalid user ID in token"))
			}

			handlers.SetPrincipal(c, userID, claims)
			return next(c)
		}
	}
}

func verifyBearer(tokenService services.TokenServiceInterface, header string) (*models.CustomClaims, errors.ErrorCode) {
	token, err := tokenService.ExtractTokenFromHeader(header)
	if err != nil {
		return nil, errors.AuthInvalidTokenFormat
	}

	claims, err := tokenService.ValidateAccessToken(token)
	switch {
	case err == nil:
		return claims, ""
	case stderrors.Is(err, services.ErrExpiredToken):
		return nil, errors.AuthExpiredToken
	default:
		return nil, errors.AuthInvalidTokenFormat
	}
}

// RequireRole lets the request through when the token role is one of allowed
func RequireRole(allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(handlers.UserRoleContextKey).(string)
			if !ok {
				return handlers.SendError(c, errors.AuthInvalidTokenFormat, errors.WithDetails("User role not found in token"))
			}
			if !slices.Contains(allowed, role) {
				return handlers.SendError(c, errors.AuthInsufficientPermission)
			}
			return next(c)
		}
	}
}

func RequireStaff() echo.MiddlewareFunc {
	return RequireRole(models.RoleStaff)
}
