package handlers

import (
	stderrors "errors"
	"net/http"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/errors"
	"expense-tracker/internal/models"
	"expense-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// CategoryHandler serves the category endpoints
type CategoryHandler struct {
	categoryService services.CategoryServiceInterface
}

func NewCategoryHandler(categoryService services.CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ListCategories returns the caller's categories and the predefined ones. Staff see every category.
// @Summary List categories
// @Tags Categories
// @Security BearerAuth
// @Param type query string false "credit or debit"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} SuccessResponse{data=[]dto.CategoryResponse,meta=dto.PaginationMeta}
// @Router /api/v1/categories [get]
func (h *CategoryHandler) ListCategories(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var query dto.CategoryListQuery
	if err := c.Bind(&query); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid query parameters"))
	}

	if err := c.Validate(query); err != nil {
		return err
	}
	query.PageQuery = query.Normalize()

	categories, total, err := h.categoryService.ListCategories(actor, query)
	if err != nil {
		return h.handleError(c, err)
	}

	return SendList(c, dto.ToCategoryResponses(categories), query.PageQuery, total)
}

// @Summary Create a category
// @Tags Categories
// @Security BearerAuth
// @Param request body dto.CreateCategoryRequest true "Category"
// @Success 201 {object} SuccessResponse{data=dto.CategoryResponse}
// @Failure 400 {object} errors.ErrorResponse "CATEGORY_003 or CATEGORY_004"
// @Failure 403 {object} errors.ErrorResponse "CATEGORY_005"
// @Failure 409 {object} errors.ErrorResponse "CATEGORY_002"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	category, err := h.categoryService.CreateCategory(actor, &req)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:    dto.ToCategoryResponse(category),
		Message: "Category created successfully",
	})
}

// @Summary Get a category
// @Tags Categories
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} SuccessResponse{data=dto.CategoryResponse}
// @Failure 403 {object} errors.ErrorResponse "CATEGORY_005"
// @Failure 404 {object} errors.ErrorResponse "CATEGORY_001"
// @Router /api/v1/categories/{id} [get]
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	categoryID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.CategoryNotFound)
	}

	category, err := h.categoryService.GetCategory(actor, categoryID)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Data: dto.ToCategoryResponse(category)})
}

// @Summary Rename a category
// @Tags Categories
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param request body dto.UpdateCategoryRequest true "New name"
// @Success 200 {object} SuccessResponse{data=dto.CategoryResponse}
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_007"
// @Failure 403 {object} errors.ErrorResponse "CATEGORY_005"
// @Router /api/v1/categories/{id} [patch]
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	categoryID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.CategoryNotFound)
	}

	var req dto.UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	category, err := h.categoryService.UpdateCategory(actor, categoryID, &req)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Data:    dto.ToCategoryResponse(category),
		Message: "Category updated successfully",
	})
}

// @Summary Delete a category
// @Tags Categories
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse "CATEGORY_005"
// @Failure 404 {object} errors.ErrorResponse "CATEGORY_001"
// @Router /api/v1/categories/{id} [delete]
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	categoryID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.CategoryNotFound)
	}

	if err := h.categoryService.DeleteCategory(actor, categoryID); err != nil {
		return h.handleError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CategoryHandler) handleError(c echo.Context, err error) error {
	switch {
	case stderrors.Is(err, services.ErrCategoryNotFound):
		return SendError(c, errors.CategoryNotFound)
	case stderrors.Is(err, services.ErrCategoryExists):
		return SendError(c, errors.CategoryAlreadyExists)
	case stderrors.Is(err, services.ErrCategoryReadOnly):
		return SendError(c, errors.ValidationReadOnlyField, errors.WithDetails(err.Error()))
	case stderrors.Is(err, services.ErrForbidden):
		return SendError(c, errors.CategoryForbidden)
	case stderrors.Is(err, services.ErrUserNotFound):
		return SendError(c, errors.UserNotFound, errors.WithDetails("user_id must reference an active user"))
	case stderrors.Is(err, models.ErrEmptyCategoryName), stderrors.Is(err, models.ErrCategoryNameTooLong):
		return SendError(c, errors.CategoryInvalidName, errors.WithDetails(err.Error()))
	case stderrors.Is(err, models.ErrInvalidType):
		return SendError(c, errors.CategoryInvalidType)
	}
	return SendSystemError(c, err)
}
