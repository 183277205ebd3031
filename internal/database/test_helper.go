package database

import (
	"testing"

	"expense-tracker/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB returns a migrated and indexed in-memory SQLite database
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	testDB := &DB{DB: db}

	if err := testDB.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	if err := testDB.CreateIndexes(); err != nil {
		t.Fatalf("failed to create test indexes: %v", err)
	}

	t.Cleanup(func() {
		_ = testDB.Close()
	})

	return testDB
}

func CreateTestUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	user := models.NewUser(username+"@example.com", username, "Test User", "hashed_password")
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

func CreateTestStaffUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	user := models.NewUser(username+"@example.com", username, "Staff User", "hashed_password")
	user.IsStaff = true
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test staff user: %v", err)
	}

	return user
}

func CreateTestCategory(t *testing.T, db *DB, owner *models.User, name, categoryType string) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:         models.NormalizeCategoryName(name),
		UserID:       &owner.ID,
		Type:         categoryType,
		IsPredefined: owner.IsStaff,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}

	return category
}

func CreateTestBudget(t *testing.T, db *DB, owner *models.User, category *models.Category, year, month int, amount string) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:          owner.ID,
		CategoryID:      category.ID,
		Year:            year,
		Month:           month,
		Amount:          decimal.RequireFromString(amount),
		WasBelowWarning: true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}

	return budget
}
