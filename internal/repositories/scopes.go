package repositories

import (
	"errors"
	"strings"

	"expense-tracker/internal/models"

	"gorm.io/gorm"
)

// notDeleted keeps rows whose soft-delete flag is clear
func notDeleted(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".is_deleted = ?", false)
	}
}

// paginate applies LIMIT/OFFSET when the page has a size
func paginate(page models.Page) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page.Size <= 0 {
			return db
		}
		return db.Offset(page.Offset()).Limit(page.Size)
	}
}

func activeUsers(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// isDuplicateKeyError matches unique violations from both postgres and sqlite
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{"duplicate key", "UNIQUE constraint", "23505"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
