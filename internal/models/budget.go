package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertLevel is the severity of a budget threshold notification
type AlertLevel string

const (
	AlertLevelNone     AlertLevel = "none"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"

	MinBudgetYear = 2000
	MaxBudgetYear = 2100

	DefaultNotificationCooldown = 24 * time.Hour
)

var (
	WarningThreshold  = decimal.NewFromInt(90)
	CriticalThreshold = decimal.NewFromInt(100)
	// ResetThreshold re-arms notifications once spending drops back under it.
	ResetThreshold = decimal.NewFromInt(85)

	MinBudgetAmount = decimal.RequireFromString("0.01")
	MaxBudgetAmount = decimal.RequireFromString("99999999.99")

	monthYearRegex = regexp.MustCompile(`^(\d{1,2})-(\d{4})$`)

	ErrInvalidMonthYear   = errors.New("month_year must be in M-YYYY or MM-YYYY format")
	ErrMonthOutOfRange    = errors.New("month must be between 1 and 12")
	ErrYearOutOfRange     = errors.New("year must be between 2000 and 2100")
	ErrInvalidBudgetValue = errors.New("amount must be between 0.01 and 99999999.99")
)

func (l AlertLevel) rank() int {
	switch l {
	case AlertLevelCritical:
		return 2
	case AlertLevelWarning:
		return 1
	default:
		return 0
	}
}

// Title is the status word used in notification bodies
func (l AlertLevel) Title() string {
	switch l {
	case AlertLevelCritical:
		return "Critical"
	case AlertLevelWarning:
		return "Warning"
	default:
		return "OK"
	}
}

// BudgetKey identifies a user's spending in one category for one calendar month
type BudgetKey struct {
	UserID     uuid.UUID `json:"user_id"`
	CategoryID uuid.UUID `json:"category_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
}

// Period returns the half-open [start, end) UTC interval of the month
func (k BudgetKey) Period() (time.Time, time.Time) {
	start := time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func (k BudgetKey) String() string {
	return fmt.Sprintf("%s/%s/%d-%02d", k.UserID, k.CategoryID, k.Year, k.Month)
}

type Budget struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_budgets_period" json:"user_id"`
	CategoryID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_budgets_period" json:"category_id"`
	Year              int             `gorm:"not null;index:idx_budgets_period" json:"year"`
	Month             int             `gorm:"not null;index:idx_budgets_period" json:"month"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	LastWarningSentAt *time.Time      `json:"last_warning_sent_at,omitempty"`
	WasBelowWarning   bool            `gorm:"not null;default:true" json:"was_below_warning"`
	LastAlertLevel    AlertLevel      `gorm:"type:varchar(10);not null;default:'none'" json:"last_alert_level"`
	IsDeleted         bool            `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`

	User     User     `gorm:"foreignKey:UserID" json:"-"`
	Category Category `gorm:"foreignKey:CategoryID" json:"-"`
}

// ParseMonthYear parses "M-YYYY" or "MM-YYYY" and range-checks both parts
func ParseMonthYear(value string) (month, year int, err error) {
	matches := monthYearRegex.FindStringSubmatch(value)
	if matches == nil {
		return 0, 0, ErrInvalidMonthYear
	}

	month, _ = strconv.Atoi(matches[1])
	year, _ = strconv.Atoi(matches[2])

	if month < 1 || month > 12 {
		return 0, 0, ErrMonthOutOfRange
	}

	if year < MinBudgetYear || year > MaxBudgetYear {
		return 0, 0, ErrYearOutOfRange
	}

	return month, year, nil
}

// FormatMonthYear renders a period the way ParseMonthYear accepts it
func FormatMonthYear(month, year int) string {
	return fmt.Sprintf("%02d-%d", month, year)
}

// IsPastMonth reports whether year/month lies strictly before the month containing now
func IsPastMonth(year, month int, now time.Time) bool {
	now = now.UTC()
	if year != now.Year() {
		return year < now.Year()
	}
	return month < int(now.Month())
}

func ValidateBudgetAmount(amount decimal.Decimal) error {
	if amount.LessThan(MinBudgetAmount) || amount.GreaterThan(MaxBudgetAmount) {
		return ErrInvalidBudgetValue
	}

	if !amount.Equal(amount.Round(2)) {
		return ErrTooManyDecimals
	}

	return nil
}

// AlertState is the part of the notification state used to detect concurrent evaluations
type AlertState struct {
	WasBelowWarning bool
	LastAlertLevel  AlertLevel
}

func (b *Budget) AlertState() AlertState {
	return AlertState{WasBelowWarning: b.WasBelowWarning, LastAlertLevel: b.LastAlertLevel}
}

func (b *Budget) Key() BudgetKey {
	return BudgetKey{UserID: b.UserID, CategoryID: b.CategoryID, Year: b.Year, Month: b.Month}
}

func (b *Budget) MonthYear() string {
	return FormatMonthYear(b.Month, b.Year)
}

// PercentageUsed returns spent as a percentage of the budget amount
func (b *Budget) PercentageUsed(spent decimal.Decimal) decimal.Decimal {
	if !b.Amount.IsPositive() {
		return decimal.Zero
	}
	return spent.Div(b.Amount).Mul(decimal.NewFromInt(100))
}

// EvaluateAlert updates the notification state for the given spend and returns the
// level that should be sent now, or AlertLevelNone.
//
// Dropping under ResetThreshold re-arms the budget. A re-armed budget alerts at most
// once per cooldown. An armed budget alerts only when the level escalates.
func (b *Budget) EvaluateAlert(spent decimal.Decimal, now time.Time, cooldown time.Duration) AlertLevel {
	pct := b.PercentageUsed(spent)

	if pct.LessThan(ResetThreshold) {
		b.WasBelowWarning = true
		b.LastAlertLevel = AlertLevelNone
		return AlertLevelNone
	}

	level := AlertLevelNone
	switch {
	case pct.GreaterThanOrEqual(CriticalThreshold):
		level = AlertLevelCritical
	case pct.GreaterThanOrEqual(WarningThreshold):
		level = AlertLevelWarning
	}

	if level == AlertLevelNone {
		return AlertLevelNone
	}

	if b.WasBelowWarning {
		if b.LastWarningSentAt != nil && now.Sub(*b.LastWarningSentAt) < cooldown {
			return AlertLevelNone
		}
	} else if level.rank() <= b.LastAlertLevel.rank() {
		return AlertLevelNone
	}

	sentAt := now
	b.LastWarningSentAt = &sentAt
	b.WasBelowWarning = false
	b.LastAlertLevel = level

	return level
}

func (b *Budget) Validate() error {
	if b.UserID == uuid.Nil || b.CategoryID == uuid.Nil {
		return errors.New("budget requires a user and a category")
	}

	if b.Month < 1 || b.Month > 12 {
		return ErrMonthOutOfRange
	}

	if b.Year < MinBudgetYear || b.Year > MaxBudgetYear {
		return ErrYearOutOfRange
	}

	return ValidateBudgetAmount(b.Amount)
}

func (b *Budget) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	if b.LastAlertLevel == "" {
		b.LastAlertLevel = AlertLevelNone
	}

	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}

	return b.Validate()
}

func (b *Budget) TableName() string {
	return "budgets"
}
