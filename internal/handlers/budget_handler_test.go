package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"
	"expense-tracker/internal/services"
	"expense-tracker/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BudgetHandlerTestSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	budgetService *service_mocks.MockBudgetServiceInterface
	handler       *BudgetHandler
	e             *echo.Echo
	userID        uuid.UUID
}

func TestBudgetHandlerSuite(t *testing.T) {
	suite.Run(t, new(BudgetHandlerTestSuite))
}

func (s *BudgetHandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.budgetService = service_mocks.NewMockBudgetServiceInterface(s.ctrl)
	s.handler = NewBudgetHandler(s.budgetService)
	s.e = newTestEcho()
	s.userID = uuid.New()
}

func (s *BudgetHandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *BudgetHandlerTestSuite) budget(amount, spent string) *dto.BudgetWithSpent {
	return &dto.BudgetWithSpent{
		Budget: models.Budget{
			ID:              uuid.New(),
			UserID:          s.userID,
			CategoryID:      uuid.New(),
			Year:            2026,
			Month:           5,
			Amount:          decimal.RequireFromString(amount),
			WasBelowWarning: true,
			LastAlertLevel:  models.AlertLevelNone,
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		},
		Spent: decimal.RequireFromString(spent),
	}
}

func (s *BudgetHandlerTestSuite) TestListBudgets_MonthFilter() {
	item := s.budget("200.00", "150.00")

	s.budgetService.EXPECT().
		ListBudgets(gomock.Any(), gomock.Any()).
		DoAndReturn(func(actor models.Actor, filters models.BudgetFilters) ([]dto.BudgetWithSpent, int64, error) {
			s.Equal(2026, filters.Year)
			s.Equal(5, filters.Month)
			return []dto.BudgetWithSpent{*item}, 1, nil
		})

	c, rec := newJSONContext(s.e, http.MethodGet, "/api/v1/budgets?month_year=5-2026", nil)
	authenticate(c, s.userID, false)

	s.Require().NoError(s.handler.ListBudgets(c))
	s.Equal(http.StatusOK, rec.Code)

	var items []dto.BudgetResponse
	s.Require().NoError(json.Unmarshal(decodeEnvelope(rec).Data, &items))
	s.Require().Len(items, 1)
	s.Equal("05-2026", items[0].MonthYear)
	s.True(items[0].SpentAmount.Equal(decimal.NewFromInt(150)))
	s.True(items[0].PercentageUsed.Equal(decimal.NewFromInt(75)))
}

func (s *BudgetHandlerTestSuite) TestListBudgets_InvalidMonthYear() {
	c, _ := newJSONContext(s.e, http.MethodGet, "/api/v1/budgets?month_year=13-2026", nil)
	authenticate(c, s.userID, false)

	s.Error(s.handler.ListBudgets(c))
}

func (s *BudgetHandlerTestSuite) TestCreateBudget() {
	categoryID := uuid.New()

	s.Run("created", func() {
		s.budgetService.EXPECT().
			CreateBudget(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, actor models.Actor, req *dto.CreateBudgetRequest) (*dto.BudgetWithSpent, error) {
				s.Equal("6-2026", req.MonthYear)
				s.Equal(categoryID, req.CategoryID)
				return s.budget("300.00", "0"), nil
			})

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/budgets", map[string]interface{}{
			"category_id": categoryID,
			"amount":      "300.00",
			"month_year":  "6-2026",
		})
		authenticate(c, s.userID, false)

		s.Require().NoError(s.handler.CreateBudget(c))
		s.Equal(http.StatusCreated, rec.Code)
	})

	errorCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate", services.ErrBudgetExists, http.StatusConflict, "BUDGET_002"},
		{"past month", services.ErrBudgetPastMonth, http.StatusBadRequest, "BUDGET_004"},
		{"credit category", services.ErrBudgetCategoryInvalid, http.StatusBadRequest, "BUDGET_005"},
		{"amount over maximum", models.ErrInvalidBudgetValue, http.StatusBadRequest, "BUDGET_006"},
		{"foreign user", services.ErrForbidden, http.StatusForbidden, "BUDGET_007"},
	}

	for _, tt := range errorCases {
		s.Run(tt.name, func() {
			s.budgetService.EXPECT().CreateBudget(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tt.err)

			c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/budgets", map[string]interface{}{
				"category_id": categoryID,
				"amount":      "300.00",
				"month_year":  "06-2026",
			})
			authenticate(c, s.userID, false)

			s.Require().NoError(s.handler.CreateBudget(c))
			s.Equal(tt.wantStatus, rec.Code)
			s.Equal(tt.wantCode, decodeError(rec).Error.Code)
		})
	}
}

func (s *BudgetHandlerTestSuite) TestGetBudget_NotFound() {
	budgetID := uuid.New()
	s.budgetService.EXPECT().GetBudget(gomock.Any(), budgetID).Return(nil, services.ErrBudgetNotFound)

	c, rec := newJSONContext(s.e, http.MethodGet, "/api/v1/budgets/"+budgetID.String(), nil)
	authenticate(c, s.userID, false)
	withParams(c, "id", budgetID.String())

	s.Require().NoError(s.handler.GetBudget(c))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("BUDGET_001", decodeError(rec).Error.Code)
}

func (s *BudgetHandlerTestSuite) TestUpdateBudget_Amount() {
	item := s.budget("250.00", "100.00")

	s.budgetService.EXPECT().
		UpdateBudget(gomock.Any(), gomock.Any(), item.Budget.ID, decimal.RequireFromString("250.00")).
		Return(item, nil)

	c, rec := newJSONContext(s.e, http.MethodPatch, "/api/v1/budgets/"+item.Budget.ID.String(),
		map[string]string{"amount": "250.00"})
	authenticate(c, s.userID, false)
	withParams(c, "id", item.Budget.ID.String())

	s.Require().NoError(s.handler.UpdateBudget(c))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *BudgetHandlerTestSuite) TestUpdateBudget_ReadOnlyFields() {
	budgetID := uuid.New()

	c, rec := newJSONContext(s.e, http.MethodPatch, "/api/v1/budgets/"+budgetID.String(),
		map[string]string{"amount": "250.00", "month_year": "7-2026"})
	authenticate(c, s.userID, false)
	withParams(c, "id", budgetID.String())

	s.Require().NoError(s.handler.UpdateBudget(c))
	s.Equal(http.StatusBadRequest, rec.Code)

	resp := decodeError(rec)
	s.Equal("VALIDATION_007", resp.Error.Code)
	s.Equal([]string{"month_year cannot be changed"}, resp.Error.Details)
}

func (s *BudgetHandlerTestSuite) TestUpdateBudget_MissingAmount() {
	budgetID := uuid.New()

	c, _ := newJSONContext(s.e, http.MethodPatch, "/api/v1/budgets/"+budgetID.String(), map[string]string{})
	authenticate(c, s.userID, false)
	withParams(c, "id", budgetID.String())

	s.Error(s.handler.UpdateBudget(c))
}

func (s *BudgetHandlerTestSuite) TestDeleteBudget() {
	budgetID := uuid.New()
	s.budgetService.EXPECT().DeleteBudget(gomock.Any(), budgetID).Return(nil)

	c, rec := newJSONContext(s.e, http.MethodDelete, "/api/v1/budgets/"+budgetID.String(), nil)
	authenticate(c, s.userID, false)
	withParams(c, "id", budgetID.String())

	s.Require().NoError(s.handler.DeleteBudget(c))
	s.Equal(http.StatusNoContent, rec.Code)
}
