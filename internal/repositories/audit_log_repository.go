package repositories

import (
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/models"

	"gorm.io/gorm"
)

// auditLogRepository is append-only apart from the retention purge
type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepositoryInterface {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(log *models.AuditLog) error {
	if log == nil {
		return errors.New("audit log cannot be nil")
	}

	if err := r.db.Create(log).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// List returns one page of matching audit entries, newest first, with the total match count
func (r *auditLogRepository) List(filters models.AuditLogFilters) ([]*models.AuditLog, int64, error) {
	query := r.db.Model(&models.AuditLog{}).Scopes(matchAudit(filters))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var logs []*models.AuditLog
	if err := query.Scopes(paginate(filters.Page)).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	return logs, total, nil
}

// DeleteOlderThan purges entries created before cutoff
func (r *auditLogRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// matchAudit applies the non-empty filters; an empty filter matches everything
func matchAudit(filters models.AuditLogFilters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filters.UserID != nil {
			db = db.Where("user_id = ?", *filters.UserID)
		}
		for column, value := range map[string]string{
			"action":      filters.Action,
			"resource":    filters.Resource,
			"resource_id": filters.ResourceID,
		} {
			if value != "" {
				db = db.Where(column+" = ?", value)
			}
		}
		return db
	}
}
