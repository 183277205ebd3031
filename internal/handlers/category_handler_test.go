package handlers

import (
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
	"github.com/stretchr/testify/suite"
)

type CategoryHandlerTestSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	categoryService *service_mocks.MockCategoryServiceInterface
	handler         *CategoryHandler
	e               *echo.Echo
	userID          uuid.UUID
}

func TestCategoryHandlerSuite(t *testing.T) {
	suite.Run(t, new(CategoryHandlerTestSuite))
}

func (s *CategoryHandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.categoryService = service_mocks.NewMockCategoryServiceInterface(s.ctrl)
	s.handler = NewCategoryHandler(s.categoryService)
	s.e = newTestEcho()
	s.userID = uuid.New()
}

func (s *CategoryHandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CategoryHandlerTestSuite) category(name, categoryType string) models.Category {
	return models.Category{
		ID:        uuid.New(),
		Name:      name,
		Type:      categoryType,
		UserID:    &s.userID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (s *CategoryHandlerTestSuite) TestListCategories_TypeFilter() {
	s.categoryService.EXPECT().
		ListCategories(gomock.Any(), gomock.Any()).
		DoAndReturn(func(actor models.Actor, query dto.CategoryListQuery) ([]models.Category, int64, error) {
			s.Equal(models.TypeDebit, query.Type)
			s.Equal(dto.DefaultPageSize, query.PageSize)
			return []models.Category{s.category("groceries", models.TypeDebit)}, 1, nil
		})

	c, rec := newJSONContext(s.e, http.MethodGet, "/api/v1/categories?type=debit", nil)
	authenticate(c, s.userID, false)

	s.Require().NoError(s.handler.ListCategories(c))
	s.Equal(http.StatusOK, rec.Code)

	var items []dto.CategoryResponse
	s.Require().NoError(json.Unmarshal(decodeEnvelope(rec).Data, &items))
	s.Len(items, 1)
	s.Equal("groceries", items[0].Name)
}

func (s *CategoryHandlerTestSuite) TestListCategories_InvalidType() {
	c, _ := newJSONContext(s.e, http.MethodGet, "/api/v1/categories?type=transfer", nil)
	authenticate(c, s.userID, false)

	s.Error(s.handler.ListCategories(c))
}

func (s *CategoryHandlerTestSuite) TestCreateCategory() {
	s.Run("created", func() {
		created := s.category("eating out", models.TypeDebit)
		s.categoryService.EXPECT().
			CreateCategory(gomock.Any(), &dto.CreateCategoryRequest{Name: "Eating  Out!", Type: models.TypeDebit}).
			Return(&created, nil)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/categories",
			map[string]string{"name": "Eating  Out!", "type": "debit"})
		authenticate(c, s.userID, false)

		s.Require().NoError(s.handler.CreateCategory(c))
		s.Equal(http.StatusCreated, rec.Code)
		s.Contains(rec.Body.String(), "eating out")
	})

	s.Run("duplicate name", func() {
		s.categoryService.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).Return(nil, services.ErrCategoryExists)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/categories",
			map[string]string{"name": "rent", "type": "debit"})
		authenticate(c, s.userID, false)

		s.Require().NoError(s.handler.CreateCategory(c))
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal("CATEGORY_002", decodeError(rec).Error.Code)
	})

	s.Run("empty after normalization", func() {
		s.categoryService.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).Return(nil, models.ErrEmptyCategoryName)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/categories",
			map[string]string{"name": "!!!", "type": "debit"})
		authenticate(c, s.userID, false)

		s.Require().NoError(s.handler.CreateCategory(c))
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("CATEGORY_003", decodeError(rec).Error.Code)
	})

	s.Run("user_id from non-staff", func() {
		s.categoryService.EXPECT().CreateCategory(gomock.Any(), gomock.Any()).Return(nil, services.ErrForbidden)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/categories",
			map[string]string{"name": "rent", "type": "debit", "user_id": uuid.NewString()})
		authenticate(c, s.userID, false)

		s.Require().NoError(s.handler.CreateCategory(c))
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal("CATEGORY_005", decodeError(rec).Error.Code)
	})
}

func (s *CategoryHandlerTestSuite) TestGetCategory_NotFound() {
	categoryID := uuid.New()
	s.categoryService.EXPECT().GetCategory(gomock.Any(), categoryID).Return(nil, services.ErrCategoryNotFound)

	c, rec := newJSONContext(s.e, http.MethodGet, "/api/v1/categories/"+categoryID.String(), nil)
	authenticate(c, s.userID, false)
	withParams(c, "id", categoryID.String())

	s.Require().NoError(s.handler.GetCategory(c))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *CategoryHandlerTestSuite) TestUpdateCategory_ReadOnlyField() {
	categoryID := uuid.New()
	s.categoryService.EXPECT().
		UpdateCategory(gomock.Any(), categoryID, gomock.Any()).
		DoAndReturn(func(actor models.Actor, id uuid.UUID, req *dto.UpdateCategoryRequest) (*models.Category, error) {
			s.Require().NotNil(req.Type)
			return nil, services.ErrCategoryReadOnly
		})

	c, rec := newJSONContext(s.e, http.MethodPatch, "/api/v1/categories/"+categoryID.String(),
		map[string]string{"name": "rent", "type": "credit"})
	authenticate(c, s.userID, false)
	withParams(c, "id", categoryID.String())

	s.Require().NoError(s.handler.UpdateCategory(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_007", decodeError(rec).Error.Code)
}

func (s *CategoryHandlerTestSuite) TestDeleteCategory() {
	s.Run("deleted", func() {
		categoryID := uuid.New()
		s.categoryService.EXPECT().DeleteCategory(gomock.Any(), categoryID).Return(nil)

		c, rec := newJSONContext(s.e, http.MethodDelete, "/api/v1/categories/"+categoryID.String(), nil)
		authenticate(c, s.userID, false)
		withParams(c, "id", categoryID.String())

		s.Require().NoError(s.handler.DeleteCategory(c))
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("predefined is forbidden", func() {
		categoryID := uuid.New()
		s.categoryService.EXPECT().DeleteCategory(gomock.Any(), categoryID).Return(services.ErrForbidden)

		c, rec := newJSONContext(s.e, http.MethodDelete, "/api/v1/categories/"+categoryID.String(), nil)
		authenticate(c, s.userID, false)
		withParams(c, "id", categoryID.String())

		s.Require().NoError(s.handler.DeleteCategory(c))
		s.Equal(http.StatusForbidden, rec.Code)
	})
}
