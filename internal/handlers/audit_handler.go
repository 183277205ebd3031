package handlers

import (
	stderrors "errors"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/errors"
	"expense-tracker/internal/models"
	"expense-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditHandler exposes the audit trail to staff
type AuditHandler struct {
	auditService services.AuditServiceInterface
}

func NewAuditHandler(auditService services.AuditServiceInterface) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// @Summary List a user's audit events
// @Tags Users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param action query string false "Only events with this action"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} SuccessResponse{data=[]models.AuditLog,meta=dto.PaginationMeta}
// @Failure 400 {object} errors.ErrorResponse "USER_004"
// @Failure 403 {object} errors.ErrorResponse "AUTH_005"
// @Router /api/v1/users/{id}/activity [get]
func (h *AuditHandler) GetUserActivity(c echo.Context) error {
	userID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.UserInvalidID)
	}

	var query dto.PageQuery
	if err := c.Bind(&query); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid query parameters"))
	}
	query = query.Normalize()

	page := models.Page{Number: query.Page, Size: query.PageSize}
	logs, total, err := h.auditService.GetUserActivity(userID, c.QueryParam("action"), page)
	if err != nil {
		if stderrors.Is(err, services.ErrInvalidAuditLog) {
			return SendError(c, errors.ValidationGeneral, errors.WithDetails("Unknown action filter"))
		}
		return SendSystemError(c, err)
	}

	return SendList(c, logs, query, total)
}
