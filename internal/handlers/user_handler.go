package handlers

import (
	stderrors "errors"
	"net/http"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/errors"
	"expense-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// UserHandler serves the user profile endpoints
type UserHandler struct {
	userService services.UserServiceInterface
}

func NewUserHandler(userService services.UserServiceInterface) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers returns active users to staff. Everyone else gets 404.
// @Summary List users
// @Tags Users
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} SuccessResponse{data=[]dto.UserResponse,meta=dto.PaginationMeta}
// @Failure 404 {object} errors.ErrorResponse "USER_005"
// @Router /api/v1/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var query dto.PageQuery
	if err := c.Bind(&query); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid query parameters"))
	}
	query = query.Normalize()

	users, total, err := h.userService.ListUsers(actor, query)
	if err != nil {
		return h.handleError(c, err)
	}

	return SendList(c, dto.ToUserResponses(users), query, total)
}

// @Summary Get a user
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} SuccessResponse{data=dto.UserResponse}
// @Failure 403 {object} errors.ErrorResponse "USER_003"
// @Failure 404 {object} errors.ErrorResponse "USER_001"
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.UserInvalidID)
	}

	user, err := h.userService.GetUser(actor, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Data: dto.ToUserResponse(user)})
}

// @Summary Update a user profile
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body dto.UpdateUserRequest true "Profile fields"
// @Success 200 {object} SuccessResponse{data=dto.UserResponse}
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 or VALIDATION_007"
// @Failure 409 {object} errors.ErrorResponse "USER_002"
// @Router /api/v1/users/{id} [patch]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.UserInvalidID)
	}

	var req dto.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	user, err := h.userService.UpdateUser(actor, userID, &req)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Data:    dto.ToUserResponse(user),
		Message: "User updated successfully",
	})
}

// DeleteUser deactivates a user after the caller confirms with their password
// @Summary Delete a user
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body dto.DeleteUserRequest true "Caller password and refresh token"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse "USER_006 or USER_009"
// @Router /api/v1/users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.UserInvalidID)
	}

	var req dto.DeleteUserRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := h.userService.DeleteUser(actor, userID, &req); err != nil {
		return h.handleError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// @Summary Change the caller's password
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body dto.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} SuccessResponse{message=string}
// @Failure 400 {object} errors.ErrorResponse "USER_006, USER_007 or VALIDATION_008"
// @Router /api/v1/users/{id}/password [patch]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.UserInvalidID)
	}

	var req dto.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.userService.ChangePassword(actor, userID, &req); err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Message: "Password changed successfully",
	})
}

func (h *UserHandler) handleError(c echo.Context, err error) error {
	switch {
	case stderrors.Is(err, services.ErrPageNotFound):
		return SendError(c, errors.UserPageNotFound)
	case stderrors.Is(err, services.ErrUserNotFound):
		return SendError(c, errors.UserNotFound)
	case stderrors.Is(err, services.ErrUserInactive):
		return SendError(c, errors.UserInactive)
	case stderrors.Is(err, services.ErrForbidden):
		return SendError(c, errors.AuthInsufficientPermission)
	case stderrors.Is(err, services.ErrUserAlreadyExists):
		return SendError(c, errors.UserAlreadyExists, errors.WithDetails(err.Error()))
	case stderrors.Is(err, services.ErrPasswordNotUpdatable):
		return SendError(c, errors.ValidationReadOnlyField, errors.WithDetails(err.Error()))
	case stderrors.Is(err, services.ErrPasswordRequired):
		return SendError(c, errors.UserPasswordRequired)
	case stderrors.Is(err, services.ErrIncorrectPassword), stderrors.Is(err, services.ErrCurrentPasswordWrong):
		return SendError(c, errors.UserIncorrectPass)
	case stderrors.Is(err, services.ErrSamePassword):
		return SendError(c, errors.UserSamePassword)
	case stderrors.Is(err, services.ErrInvalidRefreshToken):
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("refresh_token: invalid or expired"))
	case services.IsPolicyViolation(err):
		return SendError(c, errors.ValidationWeakPassword, errors.WithDetails(err.Error()))
	}
	return SendSystemError(c, err)
}
