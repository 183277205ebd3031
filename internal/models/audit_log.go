package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AuditActionRegister          = "register"
	AuditActionLogin             = "login"
	AuditActionLogout            = "logout"
	AuditActionFailedLogin       = "failed_login"
	AuditActionAccountLocked     = "account_locked"
	AuditActionTokenRefresh      = "token_refresh"
	AuditActionProfileUpdated    = "profile_updated"
	AuditActionPasswordChanged   = "password_changed"
	AuditActionPasswordResetSent = "password_reset_requested"
	AuditActionPasswordResetDone = "password_reset_completed"
	AuditActionUserDeactivated   = "user_deactivated"
	AuditActionStaffCreated      = "staff_created"
	AuditActionBudgetAlertSent   = "budget_alert_sent"
	AuditResourceUser            = "user"
	AuditResourceToken           = "token"
	AuditResourceBudget          = "budget"
)

type AuditLog struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	UserID     *uuid.UUID    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string        `gorm:"type:varchar(100);not null;index" json:"action"`
	Resource   string        `gorm:"type:varchar(100);not null" json:"resource"`
	ResourceID string        `gorm:"type:varchar(255)" json:"resource_id,omitempty"`
	IPAddress  string        `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent  string        `gorm:"type:text" json:"user_agent,omitempty"`
	Metadata   AuditMetadata `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt  time.Time     `gorm:"not null;index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
}

// Annotate sets one metadata key and returns the entry for chaining
func (al *AuditLog) Annotate(key string, value interface{}) *AuditLog {
	if al.Metadata == nil {
		al.Metadata = make(AuditMetadata)
	}
	al.Metadata[key] = value
	return al
}

// Meta returns the metadata value for key, or nil when it is absent
func (al *AuditLog) Meta(key string) interface{} {
	return al.Metadata[key]
}

func (al *AuditLog) TableName() string {
	return "audit_logs"
}

func (al *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if al.ID == uuid.Nil {
		al.ID = uuid.New()
	}

	if al.CreatedAt.IsZero() {
		al.CreatedAt = time.Now()
	}
	return nil
}

// AuditMetadata is a JSON object column. It is stored as text so the same
// schema works on Postgres and SQLite.
type AuditMetadata map[string]interface{}

func (m AuditMetadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit metadata: %w", err)
	}
	return string(raw), nil
}

func (m *AuditMetadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AuditMetadata", value)
	}

	if len(raw) == 0 {
		*m = nil
		return nil
	}

	decoded := make(map[string]interface{})
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to decode audit metadata: %w", err)
	}
	*m = decoded
	return nil
}
