package services

import (
	"errors"
	"fmt"

	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"

	"github.com/google/uuid"
)

// AuditService records user management events in the audit log
type AuditService struct {
	repo repositories.AuditLogRepositoryInterface
}

// NewAuditService creates a new audit service
func NewAuditService(repo repositories.AuditLogRepositoryInterface) AuditServiceInterface {
	return &AuditService{
		repo: repo,
	}
}

var (
	ErrInvalidUserID   = errors.New("invalid user ID")
	ErrInvalidAuditLog = errors.New("invalid audit log")
)

var validAuditActions = map[string]bool{
	models.AuditActionRegister:          true,
	models.AuditActionLogin:             true,
	models.AuditActionLogout:            true,
	models.AuditActionFailedLogin:       true,
	models.AuditActionAccountLocked:     true,
	models.AuditActionTokenRefresh:      true,
	models.AuditActionProfileUpdated:    true,
	models.AuditActionPasswordChanged:   true,
	models.AuditActionPasswordResetSent: true,
	models.AuditActionPasswordResetDone: true,
	models.AuditActionUserDeactivated:   true,
	models.AuditActionStaffCreated:      true,
	models.AuditActionBudgetAlertSent:   true,
}

// ValidateActivityType validates that the activity type is one of the allowed types
func ValidateActivityType(action string) error {
	if !validAuditActions[action] {
		return fmt.Errorf("invalid activity type: %s", action)
	}
	return nil
}

// CreateAuditLog creates a new audit log entry with validation
func (s *AuditService) CreateAuditLog(log *models.AuditLog) error {
	if log == nil {
		return ErrInvalidAuditLog
	}

	if err := ValidateActivityType(log.Action); err != nil {
		return err
	}

	if err := s.repo.Create(log); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// GetUserActivity retrieves a page of a user's audit entries, newest first,
// optionally narrowed to one action
func (s *AuditService) GetUserActivity(userID uuid.UUID, action string, page models.Page) ([]*models.AuditLog, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, ErrInvalidUserID
	}

	if action != "" && !validAuditActions[action] {
		return nil, 0, fmt.Errorf("%w: unknown action %q", ErrInvalidAuditLog, action)
	}

	return s.repo.List(models.AuditLogFilters{UserID: &userID, Action: action, Page: page})
}

// LogProfileUpdate logs a profile update with the changed field values
func (s *AuditService) LogProfileUpdate(actor models.Actor, userID uuid.UUID, changes map[string]interface{}) error {
	log := s.userEvent(actor, userID, models.AuditActionProfileUpdated)
	for field, value := range changes {
		log.Annotate(field, value)
	}
	return s.CreateAuditLog(log)
}

func (s *AuditService) LogPasswordChanged(actor models.Actor, userID uuid.UUID) error {
	return s.CreateAuditLog(s.userEvent(actor, userID, models.AuditActionPasswordChanged))
}

// LogUserDeactivated logs a soft delete. Deleting a staff user reports how many
// predefined categories lost their owner.
func (s *AuditService) LogUserDeactivated(actor models.Actor, userID uuid.UUID, categoriesOrphaned int64) error {
	log := s.userEvent(actor, userID, models.AuditActionUserDeactivated)
	if categoriesOrphaned > 0 {
		log.Annotate("categories_orphaned", categoriesOrphaned)
	}
	return s.CreateAuditLog(log)
}

func (s *AuditService) userEvent(actor models.Actor, userID uuid.UUID, action string) *models.AuditLog {
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   models.AuditResourceUser,
		ResourceID: userID.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	if !actor.Owns(userID) {
		log.Annotate("performed_by", actor.UserID.String())
	}
	return log
}
