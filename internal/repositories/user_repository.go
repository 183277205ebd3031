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
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepositoryInterface {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.write("create user", r.db.Create(user))
}

// GetByID loads a user whatever its active flag
func (r *userRepository) GetByID(id uuid.UUID) (*models.User, error) {
	return r.take("by ID", r.db.Where("id = ?", id))
}

func (r *userRepository) GetByIDActive(id uuid.UUID) (*models.User, error) {
	return r.take("active by ID", r.db.Scopes(activeUsers).Where("id = ?", id))
}

func (r *userRepository) GetByUsername(username string) (*models.User, error) {
	return r.take("by username", r.db.Where("username = ?", username))
}

// GetByEmail matches on the normalized address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	return r.take("by email", r.db.Where("email = ?", models.NormalizeEmail(email)))
}

func (r *userRepository) take(what string, query *gorm.DB) (*models.User, error) {
	var user models.User
	err := query.Take(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("failed to get user %s: %w", what, err)
	}
}

func (r *userRepository) ExistsByEmail(email string, excludeUserID *uuid.UUID) (bool, error) {
	return r.taken("email", models.NormalizeEmail(email), excludeUserID)
}

func (r *userRepository) ExistsByUsername(username string, excludeUserID *uuid.UUID) (bool, error) {
	return r.taken("username", username, excludeUserID)
}

// taken reports whether any user other than excludeUserID holds value in column
func (r *userRepository) taken(column, value string, excludeUserID *uuid.UUID) (bool, error) {
	query := r.db.Model(&models.User{}).Where(column+" = ?", value)
	if excludeUserID != nil {
		query = query.Where("id <> ?", *excludeUserID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check %s availability: %w", column, err)
	}
	return count > 0, nil
}

func (r *userRepository) Update(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.write("update user", r.db.Save(user))
}

// UpdateFields writes the given columns and fails with ErrUserNotFound when no row matched
func (r *userRepository) UpdateFields(userID uuid.UUID, fields map[string]interface{}) error {
	return r.writeOne("update user fields", r.byID(userID).Updates(fields))
}

func (r *userRepository) UpdatePasswordHash(userID uuid.UUID, passwordHash string) error {
	if userID == uuid.Nil || passwordHash == "" {
		return errors.New("user ID and password hash are required")
	}
	return r.writeOne("update password hash", r.byID(userID).Update("password_hash", passwordHash))
}

// UpdateFailedLoginAttempts persists the lockout counter and lock time held on user
func (r *userRepository) UpdateFailedLoginAttempts(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.write("update login attempts", r.byID(user.ID).Updates(map[string]interface{}{
		"failed_login_attempts": user.FailedLoginAttempts,
		"locked_at":             user.LockedAt,
	}))
}

func (r *userRepository) ResetFailedLoginAttempts(userID uuid.UUID) error {
	return r.write("reset login attempts", r.byID(userID).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_at":             nil,
	}))
}

func (r *userRepository) UpdateLastLogin(userID uuid.UUID, at time.Time) error {
	return r.write("update last login", r.byID(userID).Update("last_login_at", at))
}

// Deactivate is the soft delete for users; the row and its history stay
func (r *userRepository) Deactivate(userID uuid.UUID) error {
	return r.writeOne("deactivate user", r.byID(userID).Update("is_active", false))
}

// ListUsers pages through active users by username
func (r *userRepository) ListUsers(page models.Page) ([]*models.User, int64, error) {
	query := r.db.Model(&models.User{}).Scopes(activeUsers)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*models.User
	if err := query.Scopes(paginate(page)).Order("username ASC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

func (r *userRepository) byID(userID uuid.UUID) *gorm.DB {
	return r.db.Model(&models.User{ID: userID})
}

func (r *userRepository) write(action string, result *gorm.DB) error {
	if result.Error == nil {
		return nil
	}
	if isDuplicateKeyError(result.Error) {
		return ErrUserAlreadyExists
	}
	return fmt.Errorf("failed to %s: %w", action, result.Error)
}

func (r *userRepository) writeOne(action string, result *gorm.DB) error {
	if err := r.write(action, result); err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
