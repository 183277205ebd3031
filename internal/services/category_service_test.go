package services

import (
	"log/slog"
	"testing"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"
	"expense-tracker/internal/repositories/repository_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type CategoryServiceTestSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	categoryRepo    *repository_mocks.MockCategoryRepositoryInterface
	userRepo        *repository_mocks.MockUserRepositoryInterface
	categoryService CategoryServiceInterface

	userID  uuid.UUID
	staffID uuid.UUID
}

func (s *CategoryServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.categoryRepo = repository_mocks.NewMockCategoryRepositoryInterface(s.ctrl)
	s.userRepo = repository_mocks.NewMockUserRepositoryInterface(s.ctrl)
	s.categoryService = NewCategoryService(s.categoryRepo, s.userRepo, slog.Default())
	s.userID = uuid.New()
	s.staffID = uuid.New()
}

func (s *CategoryServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestCategoryServiceSuite(t *testing.T) {
	suite.Run(t, new(CategoryServiceTestSuite))
}

func (s *CategoryServiceTestSuite) user() models.Actor  { return models.Actor{UserID: s.userID} }
func (s *CategoryServiceTestSuite) staff() models.Actor { return models.Actor{UserID: s.staffID, IsStaff: true} }

func (s *CategoryServiceTestSuite) ownCategory() *models.Category {
	owner := s.userID
	return &models.Category{ID: uuid.New(), Name: "groceries", Type: models.TypeDebit, UserID: &owner}
}

func (s *CategoryServiceTestSuite) predefinedCategory() *models.Category {
	owner := s.staffID
	return &models.Category{ID: uuid.New(), Name: "salary", Type: models.TypeCredit, UserID: &owner, IsPredefined: true}
}

func (s *CategoryServiceTestSuite) TestListCategories_UsesActorScope() {
	s.categoryRepo.EXPECT().List(models.CategoryFilters{
		Scope: models.OwnerScope(s.userID),
		Type:  models.TypeDebit,
		Page:  models.Page{Number: 1, Size: dto.DefaultPageSize},
	}).Return([]models.Category{*s.ownCategory()}, int64(1), nil)

	categories, total, err := s.categoryService.ListCategories(s.user(), dto.CategoryListQuery{Type: models.TypeDebit})

	s.NoError(err)
	s.Len(categories, 1)
	s.Equal(int64(1), total)
}

func (s *CategoryServiceTestSuite) TestCreateCategory_NormalizesName() {
	s.categoryRepo.EXPECT().ExistsForOwner(s.userID, models.TypeDebit, "eating out", nil).Return(false, nil)
	s.categoryRepo.EXPECT().ExistsPredefined(models.TypeDebit, "eating out", nil).Return(false, nil)
	s.categoryRepo.EXPECT().Create(gomock.Any()).Return(nil)

	category, err := s.categoryService.CreateCategory(s.user(), &dto.CreateCategoryRequest{Name: "  Eating   OUT! ", Type: models.TypeDebit})

	s.Require().NoError(err)
	s.Equal("eating out", category.Name)
	s.False(category.IsPredefined)
	s.True(category.IsOwnedBy(s.userID))
}

func (s *CategoryServiceTestSuite) TestCreateCategory_StaffCreatesPredefined() {
	s.categoryRepo.EXPECT().ExistsForOwner(s.staffID, models.TypeCredit, "salary", nil).Return(false, nil)
	s.categoryRepo.EXPECT().ExistsPredefined(models.TypeCredit, "salary", nil).Return(false, nil)
	s.categoryRepo.EXPECT().Create(gomock.Any()).Return(nil)

	category, err := s.categoryService.CreateCategory(s.staff(), &dto.CreateCategoryRequest{Name: "Salary", Type: models.TypeCredit})

	s.Require().NoError(err)
	s.True(category.IsPredefined)
}

func (s *CategoryServiceTestSuite) TestCreateCategory_StaffForRegularUser() {
	owner := models.NewUser("u@example.com", "regular", "Regular", "hash")
	owner.ID = s.userID

	s.userRepo.EXPECT().GetByIDActive(s.userID).Return(owner, nil)
	s.categoryRepo.EXPECT().ExistsForOwner(s.userID, models.TypeDebit, "rent", nil).Return(false, nil)
	s.categoryRepo.EXPECT().ExistsPredefined(models.TypeDebit, "rent", nil).Return(false, nil)
	s.categoryRepo.EXPECT().Create(gomock.Any()).Return(nil)

	category, err := s.categoryService.CreateCategory(s.staff(), &dto.CreateCategoryRequest{Name: "Rent", Type: models.TypeDebit, UserID: &s.userID})

	s.Require().NoError(err)
	s.False(category.IsPredefined)
	s.True(category.IsOwnedBy(s.userID))
}

func (s *CategoryServiceTestSuite) TestCreateCategory_Rejections() {
	_, err := s.categoryService.CreateCategory(s.user(), &dto.CreateCategoryRequest{Name: "!!!", Type: models.TypeDebit})
	s.ErrorIs(err, models.ErrEmptyCategoryName)

	_, err = s.categoryService.CreateCategory(s.user(), &dto.CreateCategoryRequest{Name: "rent", Type: "other"})
	s.ErrorIs(err, models.ErrInvalidType)

	other := uuid.New()
	_, err = s.categoryService.CreateCategory(s.user(), &dto.CreateCategoryRequest{Name: "rent", Type: models.TypeDebit, UserID: &other})
	s.ErrorIs(err, ErrForbidden)

	s.userRepo.EXPECT().GetByIDActive(other).Return(nil, repositories.ErrUserNotFound)
	_, err = s.categoryService.CreateCategory(s.staff(), &dto.CreateCategoryRequest{Name: "rent", Type: models.TypeDebit, UserID: &other})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *CategoryServiceTestSuite) TestCreateCategory_ClashesWithPredefined() {
	s.categoryRepo.EXPECT().ExistsForOwner(s.userID, models.TypeCredit, "salary", nil).Return(false, nil)
	s.categoryRepo.EXPECT().ExistsPredefined(models.TypeCredit, "salary", nil).Return(true, nil)

	_, err := s.categoryService.CreateCategory(s.user(), &dto.CreateCategoryRequest{Name: "Salary", Type: models.TypeCredit})

	s.ErrorIs(err, ErrCategoryExists)
}

func (s *CategoryServiceTestSuite) TestGetCategory_Visibility() {
	own := s.ownCategory()
	predefined := s.predefinedCategory()
	foreignOwner := uuid.New()
	foreign := &models.Category{ID: uuid.New(), Name: "x", Type: models.TypeDebit, UserID: &foreignOwner}

	s.categoryRepo.EXPECT().GetByID(own.ID).Return(own, nil)
	s.categoryRepo.EXPECT().GetByID(predefined.ID).Return(predefined, nil)
	s.categoryRepo.EXPECT().GetByID(foreign.ID).Return(foreign, nil).Times(2)

	_, err := s.categoryService.GetCategory(s.user(), own.ID)
	s.NoError(err)
	_, err = s.categoryService.GetCategory(s.user(), predefined.ID)
	s.NoError(err)
	_, err = s.categoryService.GetCategory(s.user(), foreign.ID)
	s.ErrorIs(err, ErrForbidden)
	_, err = s.categoryService.GetCategory(s.staff(), foreign.ID)
	s.NoError(err)
}

func (s *CategoryServiceTestSuite) TestGetCategory_NotFound() {
	id := uuid.New()
	s.categoryRepo.EXPECT().GetByID(id).Return(nil, repositories.ErrCategoryNotFound)

	_, err := s.categoryService.GetCategory(s.user(), id)

	s.ErrorIs(err, ErrCategoryNotFound)
}

func (s *CategoryServiceTestSuite) TestUpdateCategory_Rename() {
	own := s.ownCategory()
	renamed := *own
	renamed.Name = "food"

	s.categoryRepo.EXPECT().GetByID(own.ID).Return(own, nil)
	s.categoryRepo.EXPECT().ExistsForOwner(s.userID, models.TypeDebit, "food", &own.ID).Return(false, nil)
	s.categoryRepo.EXPECT().ExistsPredefined(models.TypeDebit, "food", &own.ID).Return(false, nil)
	s.categoryRepo.EXPECT().UpdateName(own.ID, "food").Return(nil)
	s.categoryRepo.EXPECT().GetByID(own.ID).Return(&renamed, nil)

	category, err := s.categoryService.UpdateCategory(s.user(), own.ID, &dto.UpdateCategoryRequest{Name: "Food"})

	s.Require().NoError(err)
	s.Equal("food", category.Name)
}

func (s *CategoryServiceTestSuite) TestUpdateCategory_SameNameIsNoop() {
	own := s.ownCategory()
	s.categoryRepo.EXPECT().GetByID(own.ID).Return(own, nil)

	category, err := s.categoryService.UpdateCategory(s.user(), own.ID, &dto.UpdateCategoryRequest{Name: "Groceries"})

	s.NoError(err)
	s.Equal(own, category)
}

func (s *CategoryServiceTestSuite) TestUpdateCategory_ReadOnlyFields() {
	debit := models.TypeDebit
	_, err := s.categoryService.UpdateCategory(s.user(), uuid.New(), &dto.UpdateCategoryRequest{Name: "x", Type: &debit})
	s.ErrorIs(err, ErrCategoryReadOnly)
}

func (s *CategoryServiceTestSuite) TestUpdateCategory_UserCannotTouchPredefined() {
	predefined := s.predefinedCategory()
	s.categoryRepo.EXPECT().GetByID(predefined.ID).Return(predefined, nil)

	_, err := s.categoryService.UpdateCategory(s.user(), predefined.ID, &dto.UpdateCategoryRequest{Name: "wages"})

	s.ErrorIs(err, ErrForbidden)
}

func (s *CategoryServiceTestSuite) TestDeleteCategory() {
	own := s.ownCategory()
	predefined := s.predefinedCategory()

	s.categoryRepo.EXPECT().GetByID(own.ID).Return(own, nil)
	s.categoryRepo.EXPECT().SoftDelete(own.ID).Return(nil)
	s.NoError(s.categoryService.DeleteCategory(s.user(), own.ID))

	s.categoryRepo.EXPECT().GetByID(predefined.ID).Return(predefined, nil).Times(2)
	s.ErrorIs(s.categoryService.DeleteCategory(s.user(), predefined.ID), ErrForbidden)

	s.categoryRepo.EXPECT().SoftDelete(predefined.ID).Return(nil)
	s.NoError(s.categoryService.DeleteCategory(s.staff(), predefined.ID))
}
