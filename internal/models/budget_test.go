package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBudget(amount int64) *Budget {
	return &Budget{
		UserID:          uuid.New(),
		CategoryID:      uuid.New(),
		Year:            2026,
		Month:           10,
		Amount:          decimal.NewFromInt(amount),
		WasBelowWarning: true,
		LastAlertLevel:  AlertLevelNone,
	}
}

func TestParseMonthYear(t *testing.T) {
	tests := []struct {
		input string
		month int
		year  int
		err   error
	}{
		{"1-2026", 1, 2026, nil},
		{"01-2026", 1, 2026, nil},
		{"12-2100", 12, 2100, nil},
		{"13-2026", 0, 0, ErrMonthOutOfRange},
		{"0-2026", 0, 0, ErrMonthOutOfRange},
		{"05-1999", 0, 0, ErrYearOutOfRange},
		{"2026-05", 0, 0, ErrInvalidMonthYear},
		{"May-2026", 0, 0, ErrInvalidMonthYear},
		{"", 0, 0, ErrInvalidMonthYear},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			month, year, err := ParseMonthYear(tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.month, month)
			assert.Equal(t, tt.year, year)
		})
	}
}

func TestIsPastMonth(t *testing.T) {
	now := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsPastMonth(2026, 9, now))
	assert.True(t, IsPastMonth(2025, 12, now))
	assert.False(t, IsPastMonth(2026, 10, now))
	assert.False(t, IsPastMonth(2026, 11, now))
	assert.False(t, IsPastMonth(2027, 1, now))
}

func TestBudgetKey_Period(t *testing.T) {
	start, end := BudgetKey{Year: 2026, Month: 12}.Period()

	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestValidateBudgetAmount(t *testing.T) {
	assert.NoError(t, ValidateBudgetAmount(decimal.RequireFromString("0.01")))
	assert.NoError(t, ValidateBudgetAmount(decimal.RequireFromString("99999999.99")))
	assert.ErrorIs(t, ValidateBudgetAmount(decimal.Zero), ErrInvalidBudgetValue)
	assert.ErrorIs(t, ValidateBudgetAmount(decimal.RequireFromString("100000000")), ErrInvalidBudgetValue)
	assert.ErrorIs(t, ValidateBudgetAmount(decimal.RequireFromString("5.555")), ErrTooManyDecimals)
}

func TestBudget_PercentageUsed(t *testing.T) {
	budget := newBudget(200)

	assert.True(t, decimal.NewFromInt(45).Equal(budget.PercentageUsed(decimal.NewFromInt(90))))
	assert.True(t, decimal.Zero.Equal((&Budget{}).PercentageUsed(decimal.NewFromInt(10))))
}

func TestBudget_EvaluateAlert_BelowWarningSendsNothing(t *testing.T) {
	budget := newBudget(100)

	level := budget.EvaluateAlert(decimal.NewFromInt(89), time.Now(), DefaultNotificationCooldown)

	assert.Equal(t, AlertLevelNone, level)
	assert.True(t, budget.WasBelowWarning)
	assert.Nil(t, budget.LastWarningSentAt)
}

func TestBudget_EvaluateAlert_WarningOncePerCrossing(t *testing.T) {
	budget := newBudget(100)
	now := time.Now()

	assert.Equal(t, AlertLevelWarning, budget.EvaluateAlert(decimal.NewFromInt(90), now, DefaultNotificationCooldown))
	assert.False(t, budget.WasBelowWarning)
	require.NotNil(t, budget.LastWarningSentAt)

	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(95), now.Add(time.Minute), DefaultNotificationCooldown))
	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(95), now.Add(48*time.Hour), DefaultNotificationCooldown))
}

func TestBudget_EvaluateAlert_EscalatesToCritical(t *testing.T) {
	budget := newBudget(100)
	now := time.Now()

	assert.Equal(t, AlertLevelWarning, budget.EvaluateAlert(decimal.NewFromInt(92), now, DefaultNotificationCooldown))
	assert.Equal(t, AlertLevelCritical, budget.EvaluateAlert(decimal.NewFromInt(100), now.Add(time.Minute), DefaultNotificationCooldown))
	assert.Equal(t, AlertLevelCritical, budget.LastAlertLevel)
	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(130), now.Add(2*time.Minute), DefaultNotificationCooldown))
}

func TestBudget_EvaluateAlert_CriticalTakesPriority(t *testing.T) {
	budget := newBudget(100)

	assert.Equal(t, AlertLevelCritical, budget.EvaluateAlert(decimal.NewFromInt(150), time.Now(), DefaultNotificationCooldown))
	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(95), time.Now(), DefaultNotificationCooldown))
}

func TestBudget_EvaluateAlert_ReArmRespectsCooldown(t *testing.T) {
	budget := newBudget(100)
	now := time.Now()

	require.Equal(t, AlertLevelWarning, budget.EvaluateAlert(decimal.NewFromInt(91), now, DefaultNotificationCooldown))

	// Spending drops under the reset threshold and climbs back within the cooldown
	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(80), now.Add(time.Hour), DefaultNotificationCooldown))
	assert.True(t, budget.WasBelowWarning)
	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(91), now.Add(2*time.Hour), DefaultNotificationCooldown))
	assert.True(t, budget.WasBelowWarning, "suppressed alerts keep the budget armed")

	assert.Equal(t, AlertLevelWarning, budget.EvaluateAlert(decimal.NewFromInt(91), now.Add(25*time.Hour), DefaultNotificationCooldown))
	assert.False(t, budget.WasBelowWarning)
}

func TestBudget_EvaluateAlert_HysteresisBand(t *testing.T) {
	budget := newBudget(100)
	now := time.Now()

	require.Equal(t, AlertLevelWarning, budget.EvaluateAlert(decimal.NewFromInt(90), now, DefaultNotificationCooldown))

	// 87% sits between the reset and warning thresholds and must not re-arm
	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(87), now.Add(30*time.Hour), DefaultNotificationCooldown))
	assert.False(t, budget.WasBelowWarning)
	assert.Equal(t, AlertLevelNone, budget.EvaluateAlert(decimal.NewFromInt(90), now.Add(31*time.Hour), DefaultNotificationCooldown))
}

func TestBudget_BeforeCreate(t *testing.T) {
	budget := newBudget(100)
	budget.LastAlertLevel = ""

	require.NoError(t, budget.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, budget.ID)
	assert.Equal(t, AlertLevelNone, budget.LastAlertLevel)
	assert.Equal(t, "10-2026", budget.MonthYear())

	invalid := newBudget(0)
	assert.Error(t, invalid.BeforeCreate(nil))
}
