package handlers

import (
	stderrors "errors"
	"net/http"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/errors"
	"expense-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	authService services.AuthServiceInterface
}

func NewAuthHandler(authService services.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// authFailures maps auth service errors onto response codes. Entries with
// withDetail echo the service message, which never contains secrets.
var authFailures = []struct {
	target     error
	code       errors.ErrorCode
	withDetail bool
}{
	{services.ErrUserAlreadyExists, errors.UserAlreadyExists, true},
	{services.ErrAccountLocked, errors.AuthAccountLocked, false},
	{services.ErrInvalidCredentials, errors.AuthInvalidCredentials, false},
	{services.ErrInvalidRefreshToken, errors.AuthInvalidRefreshToken, false},
	{services.ErrEmailNotFound, errors.UserEmailNotFound, false},
	{services.ErrPasswordRequired, errors.UserPasswordRequired, false},
	{services.ErrInvalidResetToken, errors.AuthInvalidResetToken, false},
}

func sendAuthFailure(c echo.Context, err error) error {
	for _, f := range authFailures {
		if !stderrors.Is(err, f.target) {
			continue
		}
		if f.withDetail {
			return SendError(c, f.code, errors.WithDetails(err.Error()))
		}
		return SendError(c, f.code)
	}

	if services.IsPolicyViolation(err) {
		return SendError(c, errors.ValidationWeakPassword, errors.WithDetails(err.Error()))
	}
	return SendSystemError(c, err)
}

// Register handles user registration
// @Summary Register a new user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration details"
// @Success 201 {object} SuccessResponse{data=dto.AuthResponse} "User created and signed in"
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 or VALIDATION_008"
// @Failure 409 {object} errors.ErrorResponse "USER_002"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest

	if ok, err := bindBody(c, &req, true); !ok {
		return err
	}

	result, err := h.authService.Register(&req, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return sendAuthFailure(c, err)
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:    result,
		Message: "User registered successfully",
	})
}

// Login handles user authentication
// @Summary Login user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} SuccessResponse{data=dto.AuthResponse}
// @Failure 401 {object} errors.ErrorResponse "AUTH_001"
// @Failure 423 {object} errors.ErrorResponse "AUTH_006"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest

	if ok, err := bindBody(c, &req, true); !ok {
		return err
	}

	result, err := h.authService.Login(&req, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return sendAuthFailure(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Data: result})
}

// RefreshToken rotates a refresh token
// @Summary Refresh access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} SuccessResponse{data=dto.TokenResponse}
// @Failure 401 {object} errors.ErrorResponse "AUTH_007"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req dto.RefreshTokenRequest

	if ok, err := bindBody(c, &req, true); !ok {
		return err
	}

	tokens, err := h.authService.RefreshTokens(req.RefreshToken, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return sendAuthFailure(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Data: tokens})
}

// Logout invalidates every session of the authenticated user
// @Summary Logout user
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SuccessResponse{message=string}
// @Failure 401 {object} errors.ErrorResponse "AUTH_002 or AUTH_004"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	if err := h.authService.Logout(actor.UserID, actor.IPAddress, actor.UserAgent); err != nil {
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Message: "Logout successful",
	})
}

// RequestPasswordReset emails a reset link to an active user
// @Summary Request a password reset link
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.PasswordResetRequest true "Account email"
// @Success 200 {object} SuccessResponse{message=string}
// @Failure 404 {object} errors.ErrorResponse "USER_008"
// @Router /api/v1/auth/password-reset [post]
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest

	if ok, err := bindBody(c, &req, true); !ok {
		return err
	}

	err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return sendAuthFailure(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Message: "Password reset link sent",
	})
}

// ConfirmPasswordReset sets a new password from a reset link
// @Summary Confirm a password reset
// @Tags Authentication
// @Accept json
// @Produce json
// @Param uid path string true "Encoded user id"
// @Param token path string true "Reset token"
// @Param request body dto.PasswordResetConfirmRequest true "New password"
// @Success 200 {object} SuccessResponse{message=string}
// @Failure 400 {object} errors.ErrorResponse "USER_009, AUTH_008 or VALIDATION_008"
// @Router /api/v1/auth/password-reset/confirm/{uid}/{token} [post]
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req dto.PasswordResetConfirmRequest

	// The password rules live in the service so the message names the failed rule.
	if ok, err := bindBody(c, &req, false); !ok {
		return err
	}

	err := h.authService.ConfirmPasswordReset(c.Request().Context(), c.Param("uid"), c.Param("token"),
		req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return sendAuthFailure(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Message: "Password has been reset",
	})
}
