package repositories

import (
	"testing"
	"time"

	"expense-tracker/internal/database"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

func TestBudgetRepository(t *testing.T) {
	suite.Run(t, new(BudgetRepositorySuite))
}

type BudgetRepositorySuite struct {
	suite.Suite
	db       *database.DB
	repo     BudgetRepositoryInterface
	user     *models.User
	category *models.Category
}

func (s *BudgetRepositorySuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.repo = NewBudgetRepository(s.db.DB)
	s.user = database.CreateTestUser(s.T(), s.db, "alice")
	s.category = database.CreateTestCategory(s.T(), s.db, s.user, "Food", models.TypeDebit)
}

func (s *BudgetRepositorySuite) TestCreate_Duplicate() {
	database.CreateTestBudget(s.T(), s.db, s.user, s.category, 2026, 10, "100.00")

	duplicate := &models.Budget{
		UserID:     s.user.ID,
		CategoryID: s.category.ID,
		Year:       2026,
		Month:      10,
		Amount:     decimal.RequireFromString("50.00"),
	}
	s.ErrorIs(s.repo.Create(duplicate), ErrBudgetAlreadyExists)
}

func (s *BudgetRepositorySuite) TestGetByKey() {
	budget := database.CreateTestBudget(s.T(), s.db, s.user, s.category, 2026, 10, "100.00")

	found, err := s.repo.GetByKey(budget.Key())
	s.NoError(err)
	s.Equal(budget.ID, found.ID)
	s.True(found.WasBelowWarning)
	s.Equal(models.AlertLevelNone, found.LastAlertLevel)

	s.Require().NoError(s.repo.SoftDelete(budget.ID))

	_, err = s.repo.GetByKey(budget.Key())
	s.ErrorIs(err, ErrBudgetNotFound)
	_, err = s.repo.GetByID(budget.ID)
	s.ErrorIs(err, ErrBudgetNotFound)
}

func (s *BudgetRepositorySuite) TestExists() {
	budget := database.CreateTestBudget(s.T(), s.db, s.user, s.category, 2026, 10, "100.00")

	exists, err := s.repo.Exists(budget.Key(), nil)
	s.NoError(err)
	s.True(exists)

	exists, err = s.repo.Exists(budget.Key(), &budget.ID)
	s.NoError(err)
	s.False(exists)

	other := budget.Key()
	other.Month = 11
	exists, err = s.repo.Exists(other, nil)
	s.NoError(err)
	s.False(exists)
}

func (s *BudgetRepositorySuite) TestList() {
	rent := database.CreateTestCategory(s.T(), s.db, s.user, "Rent", models.TypeDebit)
	database.CreateTestBudget(s.T(), s.db, s.user, s.category, 2026, 9, "100.00")
	database.CreateTestBudget(s.T(), s.db, s.user, s.category, 2026, 10, "100.00")
	database.CreateTestBudget(s.T(), s.db, s.user, rent, 2026, 10, "900.00")

	bob := database.CreateTestUser(s.T(), s.db, "bob")
	database.CreateTestBudget(s.T(), s.db, bob, s.category, 2026, 10, "10.00")

	budgets, total, err := s.repo.List(models.BudgetFilters{Scope: models.OwnerScope(s.user.ID)})
	s.NoError(err)
	s.Equal(int64(3), total)
	s.Equal(10, budgets[0].Month)
	s.Equal(9, budgets[2].Month)

	_, total, err = s.repo.List(models.BudgetFilters{
		Scope:      models.OwnerScope(s.user.ID),
		CategoryID: &s.category.ID,
	})
	s.NoError(err)
	s.Equal(int64(2), total)

	_, total, err = s.repo.List(models.BudgetFilters{Scope: models.StaffScope(), Year: 2026, Month: 10})
	s.NoError(err)
	s.Equal(int64(3), total)

	period, err := s.repo.ListForPeriod(2026, 10)
	s.NoError(err)
	s.Len(period, 3)
}

func (s *BudgetRepositorySuite) TestUpdateAmount() {
	budget := database.CreateTestBudget(s.T(), s.db, s.user, s.category, 2026, 10, "100.00")

	s.NoError(s.repo.UpdateAmount(budget.ID, decimal.RequireFromString("250.00")))

	found, err := s.repo.GetByID(budget.ID)
	s.NoError(err)
	s.True(decimal.RequireFromString("250").Equal(found.Amount))

	s.Error(s.repo.UpdateAmount(budget.ID, decimal.Zero))
	s.ErrorIs(s.repo.UpdateAmount(uuid.New(), decimal.NewFromInt(1)), ErrBudgetNotFound)
}

func (s *BudgetRepositorySuite) TestSaveAlertState_DetectsConcurrentUpdate() {
	budget := database.CreateTestBudget(s.T(), s.db, s.user, s.category, 2026, 10, "100.00")
	now := time.Now()

	first := *budget
	previous := first.AlertState()
	s.Require().Equal(models.AlertLevelWarning, first.EvaluateAlert(decimal.NewFromInt(95), now, time.Hour))

	saved, err := s.repo.SaveAlertState(&first, previous)
	s.NoError(err)
	s.True(saved)

	// A second evaluation that started from the same stale state loses
	second := *budget
	s.Require().Equal(models.AlertLevelWarning, second.EvaluateAlert(decimal.NewFromInt(95), now, time.Hour))

	saved, err = s.repo.SaveAlertState(&second, previous)
	s.NoError(err)
	s.False(saved)

	stored, err := s.repo.GetByID(budget.ID)
	s.NoError(err)
	s.False(stored.WasBelowWarning)
	s.Equal(models.AlertLevelWarning, stored.LastAlertLevel)
	s.NotNil(stored.LastWarningSentAt)
}
