package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserInactive         = errors.New("user is inactive")
	ErrPageNotFound         = errors.New("this page not found")
	ErrIncorrectPassword    = errors.New("wrong password")
	ErrPasswordNotUpdatable = errors.New("password cannot be updated here, use the change password endpoint")
	ErrForbidden            = errors.New("you do not have permission to perform this action")
)

// UserService manages user profiles on behalf of an authenticated actor
type UserService struct {
	userRepo         repositories.UserRepositoryInterface
	categoryRepo     repositories.CategoryRepositoryInterface
	activeTokenRepo  repositories.ActiveTokenRepositoryInterface
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface
	passwordService  PasswordServiceInterface
	tokenService     TokenServiceInterface
	auditService     AuditServiceInterface
	logger           *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepositoryInterface,
	categoryRepo repositories.CategoryRepositoryInterface,
	activeTokenRepo repositories.ActiveTokenRepositoryInterface,
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface,
	passwordService PasswordServiceInterface,
	tokenService TokenServiceInterface,
	auditService AuditServiceInterface,
	logger *slog.Logger,
) UserServiceInterface {
	return &UserService{
		userRepo:         userRepo,
		categoryRepo:     categoryRepo,
		activeTokenRepo:  activeTokenRepo,
		refreshTokenRepo: refreshTokenRepo,
		passwordService:  passwordService,
		tokenService:     tokenService,
		auditService:     auditService,
		logger:           logger,
	}
}

// ListUsers lists active users. The endpoint does not exist for non-staff callers.
func (s *UserService) ListUsers(actor models.Actor, page dto.PageQuery) ([]*models.User, int64, error) {
	if !actor.IsStaff {
		return nil, 0, ErrPageNotFound
	}

	page = page.Normalize()
	users, total, err := s.userRepo.ListUsers(models.Page{Number: page.Page, Size: page.PageSize})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

func (s *UserService) GetUser(actor models.Actor, userID uuid.UUID) (*models.User, error) {
	return s.loadTarget(actor, userID)
}

// loadTarget returns the user the actor addresses. Users the actor may not see
// are reported as missing; staff are told when the user is inactive.
func (s *UserService) loadTarget(actor models.Actor, userID uuid.UUID) (*models.User, error) {
	if !actor.CanAccess(userID) {
		return nil, ErrUserNotFound
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		if actor.IsStaff {
			return nil, ErrUserInactive
		}
		return nil, ErrUserNotFound
	}

	return user, nil
}

// UpdateUser applies a partial profile update. Username and email stay unique.
func (s *UserService) UpdateUser(actor models.Actor, userID uuid.UUID, req *dto.UpdateUserRequest) (*models.User, error) {
	if req.Password != nil {
		return nil, ErrPasswordNotUpdatable
	}

	user, err := s.loadTarget(actor, userID)
	if err != nil {
		return nil, err
	}

	if req.IsEmpty() {
		return user, nil
	}

	fields := map[string]interface{}{}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if err := models.ValidateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			taken, err := s.userRepo.ExistsByUsername(username, &user.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			if taken {
				return nil, fmt.Errorf("%w: username is already taken", ErrUserAlreadyExists)
			}
			fields["username"] = username
		}
	}

	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		if email != user.Email {
			taken, err := s.userRepo.ExistsByEmail(email, &user.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if taken {
				return nil, fmt.Errorf("%w: email is already registered", ErrUserAlreadyExists)
			}
			fields["email"] = email
		}
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errors.New("name is required")
		}
		if name != user.Name {
			fields["name"] = name
		}
	}

	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateFields(user.ID, fields); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := s.auditService.LogProfileUpdate(actor, user.ID, fields); err != nil {
		s.logger.Error("failed to audit profile update", "error", err, "user_id", user.ID)
	}

	updated, err := s.userRepo.GetByID(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	return updated, nil
}

// DeleteUser soft-deletes the target after the caller confirms with their own
// password and refresh token. Every session of the target is invalidated.
func (s *UserService) DeleteUser(actor models.Actor, userID uuid.UUID, req *dto.DeleteUserRequest) error {
	target, err := s.loadTarget(actor, userID)
	if err != nil {
		return err
	}

	if req.Password == "" {
		return ErrPasswordRequired
	}

	caller, err := s.userRepo.GetByIDActive(actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get caller: %w", err)
	}

	if !s.passwordService.ComparePassword(req.Password, caller.PasswordHash) {
		return ErrIncorrectPassword
	}

	claims, err := s.tokenService.ValidateRefreshToken(req.RefreshToken)
	if err != nil || claims.UserID != caller.ID.String() {
		return ErrInvalidRefreshToken
	}

	if err := s.userRepo.Deactivate(target.ID); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	var orphaned int64
	if target.IsStaff {
		orphaned, err = s.categoryRepo.OrphanByUser(target.ID)
		if err != nil {
			return fmt.Errorf("failed to release staff categories: %w", err)
		}
	}

	if err := invalidateUserSessions(s.activeTokenRepo, s.refreshTokenRepo, target.ID); err != nil {
		return err
	}

	if !actor.Owns(target.ID) {
		if stored, err := s.refreshTokenRepo.GetByTokenHash(hashToken(req.RefreshToken)); err == nil {
			if err := s.refreshTokenRepo.Revoke(stored.ID); err != nil && !errors.Is(err, repositories.ErrRefreshTokenRevoked) {
				s.logger.Warn("failed to revoke confirming refresh token", "error", err, "user_id", actor.UserID)
			}
		}
	}

	if err := s.auditService.LogUserDeactivated(actor, target.ID, orphaned); err != nil {
		s.logger.Error("failed to audit user deactivation", "error", err, "user_id", target.ID)
	}

	return nil
}

// ChangePassword lets a user replace their own password. Staff cannot change other users' passwords.
func (s *UserService) ChangePassword(actor models.Actor, userID uuid.UUID, req *dto.ChangePasswordRequest) error {
	if !actor.Owns(userID) {
		if actor.IsStaff {
			return ErrForbidden
		}
		return ErrUserNotFound
	}

	user, err := s.userRepo.GetByIDActive(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !s.passwordService.ComparePassword(req.Password, user.PasswordHash) {
		return ErrCurrentPasswordWrong
	}

	if req.Password == req.NewPassword {
		return ErrSamePassword
	}

	hashedPassword, err := s.passwordService.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePasswordHash(user.ID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := invalidateUserSessions(s.activeTokenRepo, s.refreshTokenRepo, user.ID); err != nil {
		return err
	}

	if err := s.auditService.LogPasswordChanged(actor, user.ID); err != nil {
		s.logger.Error("failed to audit password change", "error", err, "user_id", user.ID)
	}

	return nil
}
