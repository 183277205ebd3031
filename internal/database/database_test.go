package database

import (
	"testing"

	"expense-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIndexes_BudgetUniqueAmongActive(t *testing.T) {
	db := SetupTestDB(t)
	user := CreateTestUser(t, db, "alice")
	category := CreateTestCategory(t, db, user, "Food", models.TypeDebit)

	first := CreateTestBudget(t, db, user, category, 2026, 11, "100.00")

	duplicate := &models.Budget{UserID: user.ID, CategoryID: category.ID, Year: 2026, Month: 11, Amount: first.Amount}
	assert.Error(t, db.Create(duplicate).Error)

	require.NoError(t, db.Model(first).Update("is_deleted", true).Error)

	replacement := &models.Budget{UserID: user.ID, CategoryID: category.ID, Year: 2026, Month: 11, Amount: first.Amount}
	assert.NoError(t, db.Create(replacement).Error)
}

func TestCreateIndexes_CategoryUniquePerOwnerAndType(t *testing.T) {
	db := SetupTestDB(t)
	user := CreateTestUser(t, db, "bob")

	CreateTestCategory(t, db, user, "Salary", models.TypeCredit)

	sameType := &models.Category{Name: "salary", UserID: &user.ID, Type: models.TypeCredit}
	assert.Error(t, db.Create(sameType).Error)

	otherType := &models.Category{Name: "salary", UserID: &user.ID, Type: models.TypeDebit}
	assert.NoError(t, db.Create(otherType).Error)
}
