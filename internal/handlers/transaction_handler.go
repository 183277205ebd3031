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

// TransactionHandler serves the transaction endpoints
type TransactionHandler struct {
	transactionService services.TransactionServiceInterface
}

func NewTransactionHandler(transactionService services.TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// ListTransactions returns transactions newest first
// @Summary List transactions
// @Tags Transactions
// @Security BearerAuth
// @Param type query string false "credit or debit"
// @Param category_id query string false "Category ID"
// @Param user_id query string false "User ID (staff only)"
// @Param start_date query string false "RFC 3339 or YYYY-MM-DD"
// @Param end_date query string false "RFC 3339 or YYYY-MM-DD"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} SuccessResponse{data=[]dto.TransactionResponse,meta=dto.PaginationMeta}
// @Failure 400 {object} errors.ErrorResponse "VALIDATION_001 or VALIDATION_006"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var query dto.TransactionListQuery
	if err := c.Bind(&query); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid query parameters"))
	}

	if err := c.Validate(query); err != nil {
		return err
	}
	query.PageQuery = query.Normalize()

	filters := models.TransactionFilters{
		Type: query.Type,
		Page: models.Page{Number: query.Page, Size: query.PageSize},
	}

	// Validated as UUIDs above
	filters.CategoryID, _ = parseOptionalUUID(query.CategoryID)
	filters.UserID, _ = parseOptionalUUID(query.UserID)

	if filters.StartDate, err = parseDateParam(query.StartDate, false); err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails("start_date: use RFC 3339 or YYYY-MM-DD"))
	}
	if filters.EndDate, err = parseDateParam(query.EndDate, true); err != nil {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails("end_date: use RFC 3339 or YYYY-MM-DD"))
	}
	if filters.StartDate != nil && filters.EndDate != nil && filters.EndDate.Before(*filters.StartDate) {
		return SendError(c, errors.ValidationInvalidDate, errors.WithDetails("end_date must not be before start_date"))
	}

	transactions, total, err := h.transactionService.ListTransactions(actor, filters)
	if err != nil {
		return h.handleError(c, err)
	}

	return SendList(c, dto.ToTransactionResponses(transactions), query.PageQuery, total)
}

// @Summary Record a transaction
// @Tags Transactions
// @Security BearerAuth
// @Param request body dto.CreateTransactionRequest true "Transaction"
// @Success 201 {object} SuccessResponse{data=dto.TransactionResponse}
// @Failure 400 {object} errors.ErrorResponse "TRANSACTION_002, TRANSACTION_003 or TRANSACTION_004"
// @Failure 403 {object} errors.ErrorResponse "TRANSACTION_005"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	var req dto.CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request().Context(), actor, &req)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Data:    dto.ToTransactionResponse(transaction),
		Message: "Transaction created successfully",
	})
}

// @Summary Get a transaction
// @Tags Transactions
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} SuccessResponse{data=dto.TransactionResponse}
// @Failure 403 {object} errors.ErrorResponse "TRANSACTION_005"
// @Failure 404 {object} errors.ErrorResponse "TRANSACTION_001"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.TransactionNotFound)
	}

	transaction, err := h.transactionService.GetTransaction(actor, transactionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Data: dto.ToTransactionResponse(transaction)})
}

// @Summary Update a transaction
// @Tags Transactions
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param request body dto.UpdateTransactionRequest true "Changed fields"
// @Success 200 {object} SuccessResponse{data=dto.TransactionResponse}
// @Router /api/v1/transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.TransactionNotFound)
	}

	var req dto.UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if err := c.Validate(req); err != nil {
		return err
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request().Context(), actor, transactionID, &req)
	if err != nil {
		return h.handleError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Data:    dto.ToTransactionResponse(transaction),
		Message: "Transaction updated successfully",
	})
}

// @Summary Delete a transaction
// @Tags Transactions
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 204
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	transactionID, err := parseUUIDParam(c, "id")
	if err != nil {
		return SendError(c, errors.TransactionNotFound)
	}

	if err := h.transactionService.DeleteTransaction(c.Request().Context(), actor, transactionID); err != nil {
		return h.handleError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *TransactionHandler) handleError(c echo.Context, err error) error {
	switch {
	case stderrors.Is(err, services.ErrTransactionNotFound):
		return SendError(c, errors.TransactionNotFound)
	case stderrors.Is(err, services.ErrForbidden):
		return SendError(c, errors.TransactionForbidden)
	case stderrors.Is(err, services.ErrCategoryTypeMismatch):
		return SendError(c, errors.TransactionCategoryMismatch)
	case stderrors.Is(err, services.ErrCategoryNotAvailable):
		return SendError(c, errors.TransactionInvalidCategory)
	case stderrors.Is(err, services.ErrTargetUserRequired):
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("user_id: "+err.Error()))
	case stderrors.Is(err, models.ErrInvalidAmount), stderrors.Is(err, models.ErrTooManyDecimals):
		return SendError(c, errors.TransactionInvalidAmount, errors.WithDetails(err.Error()))
	case stderrors.Is(err, models.ErrInvalidType):
		return SendError(c, errors.TransactionInvalidType)
	case stderrors.Is(err, models.ErrDescriptionTooLong):
		return SendError(c, errors.ValidationOutOfRange, errors.WithDetails(err.Error()))
	}
	return SendSystemError(c, err)
}
