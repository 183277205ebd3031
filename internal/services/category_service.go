package services

import (
	"errors"
	"fmt"
	"log/slog"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("a category with this name and type already exists")
	ErrCategoryReadOnly = errors.New("user_id and type cannot be changed")
)

// CategoryService manages user and predefined categories
type CategoryService struct {
	categoryRepo repositories.CategoryRepositoryInterface
	userRepo     repositories.UserRepositoryInterface
	logger       *slog.Logger
}

func NewCategoryService(
	categoryRepo repositories.CategoryRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *slog.Logger,
) CategoryServiceInterface {
	return &CategoryService{
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
		logger:       logger,
	}
}

// ListCategories returns every live category to staff, and the caller's own
// plus the predefined ones to everyone else
func (s *CategoryService) ListCategories(actor models.Actor, query dto.CategoryListQuery) ([]models.Category, int64, error) {
	page := query.PageQuery.Normalize()

	categories, total, err := s.categoryRepo.List(models.CategoryFilters{
		Scope: actor.Scope(),
		Type:  query.Type,
		Page:  models.Page{Number: page.Page, Size: page.PageSize},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}

	return categories, total, nil
}

func (s *CategoryService) CreateCategory(actor models.Actor, req *dto.CreateCategoryRequest) (*models.Category, error) {
	name := models.NormalizeCategoryName(req.Name)
	if name == "" {
		return nil, models.ErrEmptyCategoryName
	}

	if !models.IsValidType(req.Type) {
		return nil, models.ErrInvalidType
	}

	ownerID := actor.UserID
	ownerIsStaff := actor.IsStaff

	if req.UserID != nil && *req.UserID != actor.UserID {
		if !actor.IsStaff {
			return nil, ErrForbidden
		}

		owner, err := s.userRepo.GetByIDActive(*req.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get category owner: %w", err)
		}
		ownerID = owner.ID
		ownerIsStaff = owner.IsStaff
	}

	if err := s.ensureUniqueName(&ownerID, req.Type, name, nil); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:         name,
		Type:         req.Type,
		UserID:       &ownerID,
		IsPredefined: ownerIsStaff,
	}

	if err := s.categoryRepo.Create(category); err != nil {
		if errors.Is(err, repositories.ErrCategoryAlreadyExists) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("category created",
		"category_id", category.ID,
		"user_id", ownerID,
		"type", category.Type,
		"is_predefined", category.IsPredefined)

	return category, nil
}

func (s *CategoryService) GetCategory(actor models.Actor, categoryID uuid.UUID) (*models.Category, error) {
	category, err := s.load(categoryID)
	if err != nil {
		return nil, err
	}

	if !actor.IsStaff && !category.IsAvailableTo(actor.UserID) {
		return nil, ErrForbidden
	}

	return category, nil
}

// UpdateCategory renames a category. Owner and type are immutable.
func (s *CategoryService) UpdateCategory(actor models.Actor, categoryID uuid.UUID, req *dto.UpdateCategoryRequest) (*models.Category, error) {
	if req.Type != nil || req.UserID != nil {
		return nil, ErrCategoryReadOnly
	}

	category, err := s.loadWritable(actor, categoryID)
	if err != nil {
		return nil, err
	}

	name := models.NormalizeCategoryName(req.Name)
	if name == "" {
		return nil, models.ErrEmptyCategoryName
	}

	if name == category.Name {
		return category, nil
	}

	if err := s.ensureUniqueName(category.UserID, category.Type, name, &category.ID); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.UpdateName(category.ID, name); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCategoryAlreadyExists):
			return nil, ErrCategoryExists
		case errors.Is(err, repositories.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return s.load(category.ID)
}

func (s *CategoryService) DeleteCategory(actor models.Actor, categoryID uuid.UUID) error {
	category, err := s.loadWritable(actor, categoryID)
	if err != nil {
		return err
	}

	if err := s.categoryRepo.SoftDelete(category.ID); err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	s.logger.Info("category deleted", "category_id", category.ID, "deleted_by", actor.UserID)

	return nil
}

func (s *CategoryService) load(categoryID uuid.UUID) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return category, nil
}

// loadWritable returns the category if the actor may change it. Non-staff may
// only change their own categories, never predefined ones.
func (s *CategoryService) loadWritable(actor models.Actor, categoryID uuid.UUID) (*models.Category, error) {
	category, err := s.load(categoryID)
	if err != nil {
		return nil, err
	}

	if !actor.IsStaff && (!category.IsOwnedBy(actor.UserID) || category.IsPredefined) {
		return nil, ErrForbidden
	}

	return category, nil
}

// ensureUniqueName rejects a name already used by the owner or by a predefined category of the same type
func (s *CategoryService) ensureUniqueName(ownerID *uuid.UUID, categoryType, name string, excludeID *uuid.UUID) error {
	if ownerID != nil {
		exists, err := s.categoryRepo.ExistsForOwner(*ownerID, categoryType, name, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check category name: %w", err)
		}
		if exists {
			return ErrCategoryExists
		}
	}

	exists, err := s.categoryRepo.ExistsPredefined(categoryType, name, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check predefined category name: %w", err)
	}
	if exists {
		return ErrCategoryExists
	}

	return nil
}
