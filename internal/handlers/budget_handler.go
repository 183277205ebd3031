package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/errors"
	"expense-tracker/internal/models"
	"expense-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// BudgetHandler serves the budget endpoints
type BudgetHandler struct {
	budgetService services.BudgetServiceInterface
}

func NewBudgetHandler(budgetService services.BudgetServiceInterface) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// ListBudgets returns budgets newest period first, each with its spent amount
// @Summary List budgets
// @Tags Budgets
// @Security BearerAuth
// @Param category_id query string false "Category ID"
// @Param month_year query string false "M-YYYY"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} SuccessResponse{data=[]dto.BudgetResponse,meta=dto.PaginationMeta}
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) ListBudgets(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var query dto.BudgetListQuery
	if err := c.Bind(&query); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid query parameters"))
	}

	if err := c.Validate(query); err != nil {
		return err
	}
	query.PageQuery = query.Normalize()

	filters := models.BudgetFilters{
		Page: models.Page{Number: query.Page, Size: query.PageSize},
	}
	filters.CategoryID, _ = parseOptionalUUID(query.CategoryID)
	if query.MonthYear != "" {
		filters.Month, filters.Year, _ = models.ParseMonthYear(query.MonthYear)
	}

	items, total, err := h.budgetService.ListBudgets(actor, filters)
	if err != nil {
		return h.handleError(c, err)
	}

	return SendList(c, dto.ToBudgetResponses(items), query.PageQuery, total)
}

// @Summary Create a monthly budget
// @Tags Budgets
// @Security BearerAuth
// @Param request body dto.CreateBudgetRequest true "Budget"
// @Success 201 {object} SuccessResponse{data=dto.BudgetResponse}
// @Failure 400 {object} errors.ErrorResponse "BUDGET_003, BUDGET_004, BUDGET_005 or BUDGET_006"
// @Failure 409 {object} errors.ErrorResponse "BUDGET_002"
// @Router /api/v1/budgets [post]
func (h *BudgetHandler) CreateBudget(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.CreateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	item, err := h.budgetService.CreateBudget(c.Request().Context(), actor, &req)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:    dto.ToBudgetResponse(item),
		Message: "Budget created successfully",
	})
}

// @Summary Get a budget
// @Tags Budgets
// @Security BearerAuth
// @Param id path string true "Budget ID"
// @Success 200 {object} SuccessResponse{data=dto.BudgetResponse}
// @Failure 404 {object} errors.ErrorResponse "BUDGET_001"
// @Router /api/v1/budgets/{id} [get]
func (h *BudgetHandler) GetBudget(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	budgetID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.BudgetNotFound)
	}

	item, err := h.budgetService.GetBudget(actor, budgetID)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Data: dto.ToBudgetResponse(item)})
}

// UpdateBudget changes the amount of a budget. The period fields are read-only.
// @Summary Update a budget amount
// @Tags Budgets
// @Security BearerAuth
// @Param id path string true "Budget ID"
// @Param request body dto.UpdateBudgetRequest true "New amount"
// @Success 200 {object} SuccessResponse{data=dto.BudgetResponse}
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_007 or BUDGET_006"
// @Router /api/v1/budgets/{id} [patch]
func (h *BudgetHandler) UpdateBudget(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	budgetID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.BudgetNotFound)
	}

	var req dto.UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if fields := req.ReadOnlyFields(); len(fields) > 0 {
		return SendError(c, errors.ValidationReadOnlyField,
			errors.WithDetails(strings.Join(fields, ", ")+" cannot be changed"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	item, err := h.budgetService.UpdateBudget(c.Request().Context(), actor, budgetID, *req.Amount)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Data:    dto.ToBudgetResponse(item),
		Message: "Budget updated successfully",
	})
}

// @Summary Delete a budget
// @Tags Budgets
// @Security BearerAuth
// @Param id path string true "Budget ID"
// @Success 204
// @Router /api/v1/budgets/{id} [delete]
func (h *BudgetHandler) DeleteBudget(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	budgetID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.BudgetNotFound)
	}

	if err := h.budgetService.DeleteBudget(actor, budgetID); err != nil {
		return h.handleError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *BudgetHandler) handleError(c echo.Context, err error) error {
	switch {
	case stderrors.Is(err, services.ErrBudgetNotFound):
		return SendError(c, errors.BudgetNotFound)
	case stderrors.Is(err, services.ErrBudgetExists):
		return SendError(c, errors.BudgetAlreadyExists)
	case stderrors.Is(err, services.ErrBudgetPastMonth):
		return SendError(c, errors.BudgetPastMonth)
	case stderrors.Is(err, services.ErrBudgetCategoryInvalid):
		return SendError(c, errors.BudgetInvalidCategory)
	case stderrors.Is(err, services.ErrForbidden):
		return SendError(c, errors.BudgetForbidden)
	case stderrors.Is(err, services.ErrTargetUserRequired):
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("user_id: "+err.Error()))
	case stderrors.Is(err, models.ErrInvalidMonthYear), stderrors.Is(err, models.ErrMonthOutOfRange),
		stderrors.Is(err, models.ErrYearOutOfRange):
		return SendError(c, errors.BudgetInvalidMonth, errors.WithDetails(err.Error()))
	case stderrors.Is(err, models.ErrInvalidBudgetValue), stderrors.Is(err, models.ErrTooManyDecimals):
		return SendError(c, errors.BudgetInvalidAmount, errors.WithDetails(err.Error()))
	}
	return SendSystemError(c, err)
}
