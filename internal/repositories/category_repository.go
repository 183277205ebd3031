package repositories

import (
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category already exists")
)

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *gorm.DB) CategoryRepositoryInterface {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(category *models.Category) error {
	if category == nil {
		return errors.New("category cannot be nil")
	}

	if err := r.db.Create(category).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted category
func (r *categoryRepository) GetByID(id uuid.UUID) (*models.Category, error) {
	var category models.Category

	if err := r.db.Scopes(notDeleted("categories")).Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &category, nil
}

// List returns the categories visible to the scope. An owner sees their own
// categories plus every predefined one.
func (r *categoryRepository) List(filters models.CategoryFilters) ([]models.Category, int64, error) {
	var categories []models.Category
	var total int64

	query := r.db.Model(&models.Category{}).Scopes(notDeleted("categories"))

	if filters.OwnerID != nil {
		query = query.Where("(user_id = ? OR is_predefined = ?)", *filters.OwnerID, true)
	}

	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	if err := query.Order("type ASC, name ASC").Scopes(paginate(filters.Page)).Find(&categories).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}

	return categories, total, nil
}

// UpdateName renames a category. Owner and type cannot change after creation.
func (r *categoryRepository) UpdateName(id uuid.UUID, name string) error {
	result := r.db.Model(&models.Category{}).
		Scopes(notDeleted("categories")).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": time.Now()})

	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

func (r *categoryRepository) SoftDelete(id uuid.UUID) error {
	result := r.db.Model(&models.Category{}).
		Scopes(notDeleted("categories")).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})

	if result.Error != nil {
		return fmt.Errorf("failed to delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

// ExistsForOwner reports whether the owner already has a live category with this name and type
func (r *categoryRepository) ExistsForOwner(ownerID uuid.UUID, categoryType, name string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.Model(&models.Category{}).Where("user_id = ?", ownerID)
	return r.exists(query, categoryType, name, excludeID)
}

// ExistsPredefined reports whether a live predefined category has this name and type
func (r *categoryRepository) ExistsPredefined(categoryType, name string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.Model(&models.Category{}).Where("is_predefined = ?", true)
	return r.exists(query, categoryType, name, excludeID)
}

func (r *categoryRepository) exists(query *gorm.DB, categoryType, name string, excludeID *uuid.UUID) (bool, error) {
	var count int64

	query = query.Scopes(notDeleted("categories")).Where("type = ? AND name = ?", categoryType, name)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check category existence: %w", err)
	}

	return count > 0, nil
}

// OrphanByUser detaches every category from a user being deleted. Predefined
// categories stay predefined and visible to everyone.
func (r *categoryRepository) OrphanByUser(userID uuid.UUID) (int64, error) {
	result := r.db.Model(&models.Category{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"user_id": nil, "updated_at": time.Now()})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to orphan categories: %w", result.Error)
	}

	return result.RowsAffected, nil
}
