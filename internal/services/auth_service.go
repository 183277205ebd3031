package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expense-tracker/internal/config"
	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account is locked due to too many failed attempts")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidResetToken   = errors.New("invalid or expired token")
	ErrPasswordRequired    = errors.New("password is required")
	ErrEmailNotFound       = errors.New("no active user with this email")
)

const passwordResetSubject = "Password reset request"

// AuthService handles authentication business logic
type AuthService struct {
	userRepo          repositories.UserRepositoryInterface
	activeTokenRepo   repositories.ActiveTokenRepositoryInterface
	refreshTokenRepo  repositories.RefreshTokenRepositoryInterface
	auditRepo         repositories.AuditLogRepositoryInterface
	passwordService   PasswordServiceInterface
	tokenService      TokenServiceInterface
	taskPublisher     TaskPublisherInterface
	maxFailedAttempts int
	mailConfig        config.MailConfig
	resetTokenTTL     time.Duration
	logger            *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	activeTokenRepo repositories.ActiveTokenRepositoryInterface,
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface,
	auditRepo repositories.AuditLogRepositoryInterface,
	passwordService PasswordServiceInterface,
	tokenService TokenServiceInterface,
	taskPublisher TaskPublisherInterface,
	cfg *config.Config,
	logger *slog.Logger,
) AuthServiceInterface {
	return &AuthService{
		userRepo:          userRepo,
		activeTokenRepo:   activeTokenRepo,
		refreshTokenRepo:  refreshTokenRepo,
		auditRepo:         auditRepo,
		passwordService:   passwordService,
		tokenService:      tokenService,
		taskPublisher:     taskPublisher,
		maxFailedAttempts: cfg.Security.MaxFailedAttempts,
		mailConfig:        cfg.Mail,
		resetTokenTTL:     cfg.JWT.PasswordResetTokenDuration,
		logger:            logger,
	}
}

// Register creates a new user and signs them in
func (s *AuthService) Register(req *dto.RegisterRequest, ipAddress, userAgent string) (*dto.AuthResponse, error) {
	o := origin{ipAddress, userAgent}

	user, err := s.createUser(req, false)
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			s.audit(o, nil, models.AuditActionRegister, models.AuditResourceUser,
				models.AuditMetadata{"email": req.Email, "reason": err.Error()})
		}
		return nil, err
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.auditUser(o, user.ID, models.AuditActionRegister)

	return &dto.AuthResponse{User: dto.ToUserResponse(user), Tokens: *tokens}, nil
}

// CreateStaff bootstraps a staff user. Staff-owned categories become predefined.
func (s *AuthService) CreateStaff(req *dto.RegisterRequest) (*models.User, error) {
	user, err := s.createUser(req, true)
	if err != nil {
		return nil, err
	}

	s.auditUser(origin{}, user.ID, models.AuditActionStaffCreated)

	return user, nil
}

func (s *AuthService) createUser(req *dto.RegisterRequest, isStaff bool) (*models.User, error) {
	if err := s.ensureUnique(req.Email, req.Username); err != nil {
		return nil, err
	}

	hashedPassword, err := s.passwordService.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(req.Email, req.Username, req.Name, hashedPassword)
	user.IsStaff = isStaff

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *AuthService) ensureUnique(email, username string) error {
	emailTaken, err := s.userRepo.ExistsByEmail(email, nil)
	if err != nil {
		return fmt.Errorf("failed to check existing email: %w", err)
	}
	if emailTaken {
		return fmt.Errorf("%w: email is already registered", ErrUserAlreadyExists)
	}

	usernameTaken, err := s.userRepo.ExistsByUsername(username, nil)
	if err != nil {
		return fmt.Errorf("failed to check existing username: %w", err)
	}
	if usernameTaken {
		return fmt.Errorf("%w: username is already taken", ErrUserAlreadyExists)
	}

	return nil
}

// Login authenticates a user by username and returns tokens
func (s *AuthService) Login(req *dto.LoginRequest, ipAddress, userAgent string) (*dto.AuthResponse, error) {
	o := origin{ipAddress, userAgent}

	user, err := s.userRepo.GetByUsername(strings.TrimSpace(req.Username))
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return nil, s.rejectLogin(o, req.Username, "user_not_found", ErrInvalidCredentials)
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	case !user.IsActive:
		return nil, s.rejectLogin(o, req.Username, "user_inactive", ErrInvalidCredentials)
	case user.IsLocked():
		return nil, s.rejectLogin(o, req.Username, "account_locked", ErrAccountLocked)
	}

	if !s.passwordService.ComparePassword(req.Password, user.PasswordHash) {
		// The attempt that locks the account still answers with invalid credentials.
		user.IncrementFailedAttempts(s.maxFailedAttempts)
		if err := s.userRepo.UpdateFailedLoginAttempts(user); err != nil {
			s.logger.Error("failed to update login attempts", "error", err, "user_id", user.ID)
		}
		if user.IsLocked() {
			s.auditUser(o, user.ID, models.AuditActionAccountLocked)
		}
		return nil, s.rejectLogin(o, req.Username, "invalid_password", ErrInvalidCredentials)
	}

	if user.FailedLoginAttempts > 0 {
		if err := s.userRepo.ResetFailedLoginAttempts(user.ID); err != nil {
			s.logger.Warn("failed to reset login attempts", "error", err, "user_id", user.ID)
		}
		user.ResetFailedAttempts()
	}

	user.UpdateLastLogin()
	if err := s.userRepo.UpdateLastLogin(user.ID, *user.LastLoginAt); err != nil {
		s.logger.Warn("failed to update last login", "error", err, "user_id", user.ID)
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.auditUser(o, user.ID, models.AuditActionLogin)

	return &dto.AuthResponse{User: dto.ToUserResponse(user), Tokens: *tokens}, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked and a new pair issued
func (s *AuthService) RefreshTokens(refreshToken, ipAddress, userAgent string) (*dto.TokenResponse, error) {
	o := origin{ipAddress, userAgent}

	claims, err := s.tokenService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, s.rejectRefresh(o, "", "invalid_token")
	}

	stored, err := s.refreshTokenRepo.GetByTokenHash(hashToken(refreshToken))
	switch {
	case errors.Is(err, repositories.ErrRefreshTokenNotFound):
		return nil, s.rejectRefresh(o, claims.UserID, "token_not_found")
	case err != nil:
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	case !stored.IsValid(time.Now()) || stored.UserID.String() != claims.UserID:
		return nil, s.rejectRefresh(o, claims.UserID, "token_expired_or_revoked")
	}

	user, err := s.userRepo.GetByIDActive(stored.UserID)
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return nil, s.rejectRefresh(o, claims.UserID, "user_inactive")
	case err != nil:
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Revoke only succeeds once per token, so a replayed token loses the race here.
	if err := s.refreshTokenRepo.Revoke(stored.ID); err != nil {
		if errors.Is(err, repositories.ErrRefreshTokenRevoked) {
			return nil, s.rejectRefresh(o, claims.UserID, "token_replayed")
		}
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new tokens: %w", err)
	}

	s.auditUser(o, user.ID, models.AuditActionTokenRefresh)

	return tokens, nil
}

// Logout invalidates every access token and refresh token of the user
func (s *AuthService) Logout(userID uuid.UUID, ipAddress, userAgent string) error {
	if err := s.invalidateSessions(userID); err != nil {
		return err
	}

	s.auditUser(origin{ipAddress, userAgent}, userID, models.AuditActionLogout)

	return nil
}

// RequestPasswordReset emails a single-use reset link to an active user
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, ipAddress, userAgent string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return ErrEmailNotFound
	}

	token, err := s.tokenService.GeneratePasswordResetToken(user)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	link := s.passwordResetLink(user, token)
	plainText := fmt.Sprintf(
		"Hi %s,\n\nUse the link below to reset your password. It expires in %s.\n\n%s\n\nIf you did not request a reset you can ignore this email.",
		user.Name, s.resetTokenTTL, link)
	templateData := map[string]interface{}{
		"name":       user.Name,
		"reset_link": link,
	}

	if err := s.taskPublisher.PublishEmail(ctx, user.Email, user.Name, passwordResetSubject, plainText,
		s.mailConfig.PasswordResetTemplateID, templateData); err != nil {
		return fmt.Errorf("failed to enqueue password reset email: %w", err)
	}

	s.auditUser(origin{ipAddress, userAgent}, user.ID, models.AuditActionPasswordResetSent)

	return nil
}

// ConfirmPasswordReset sets a new password from a reset link and signs the user out everywhere
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, uid, token, password, ipAddress, userAgent string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	userID, err := decodeResetUID(uid)
	if err != nil {
		return ErrInvalidResetToken
	}

	user, err := s.userRepo.GetByIDActive(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.tokenService.ValidatePasswordResetToken(token, user); err != nil {
		s.logger.InfoContext(ctx, "rejected password reset token",
			"user_id", user.ID,
			"reason", err)
		return ErrInvalidResetToken
	}

	hashedPassword, err := s.passwordService.HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePasswordHash(user.ID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if user.IsLocked() {
		if err := s.userRepo.ResetFailedLoginAttempts(user.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to unlock user after password reset",
				"error", err,
				"user_id", user.ID)
		}
	}

	if err := s.invalidateSessions(user.ID); err != nil {
		return err
	}

	s.auditUser(origin{ipAddress, userAgent}, user.ID, models.AuditActionPasswordResetDone)

	return nil
}

func (s *AuthService) passwordResetLink(user *models.User, token string) string {
	uid := base64.RawURLEncoding.EncodeToString([]byte(user.ID.String()))
	return fmt.Sprintf("%s/password-reset/confirm/%s/%s", strings.TrimRight(s.mailConfig.FrontendURL, "/"), uid, token)
}

func decodeResetUID(uid string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(string(raw))
}

func (s *AuthService) invalidateSessions(userID uuid.UUID) error {
	return invalidateUserSessions(s.activeTokenRepo, s.refreshTokenRepo, userID)
}

// invalidateUserSessions drops every whitelisted access token and revokes every refresh token of a user
func invalidateUserSessions(
	activeTokenRepo repositories.ActiveTokenRepositoryInterface,
	refreshTokenRepo repositories.RefreshTokenRepositoryInterface,
	userID uuid.UUID,
) error {
	if _, err := activeTokenRepo.DeleteAllForUser(userID); err != nil {
		return fmt.Errorf("failed to delete active tokens: %w", err)
	}

	if err := refreshTokenRepo.RevokeAllForUser(userID); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}

	return nil
}

func (s *AuthService) generateTokens(user *models.User) (*dto.TokenResponse, error) {
	accessToken, expiresAt, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	jti, err := s.tokenService.GetJTI(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token id: %w", err)
	}

	if err := s.activeTokenRepo.Create(&models.ActiveToken{
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := s.tokenService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshTokenModel := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: refreshExpiresAt,
	}

	if err := s.refreshTokenRepo.Create(refreshTokenModel); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

// hashToken is how refresh tokens are stored; the raw token never hits the database
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// origin is where an auth request came from, as recorded in the audit trail
type origin struct {
	ip        string
	userAgent string
}

// auditUser records an event about the user's own account
func (s *AuthService) auditUser(o origin, userID uuid.UUID, action string) {
	s.audit(o, &userID, action, models.AuditResourceUser, nil)
}

// audit writes an entry and only logs when that fails; auth flows never
// fail because the audit table is unavailable.
func (s *AuthService) audit(o origin, userID *uuid.UUID, action, resource string, meta models.AuditMetadata) {
	entry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IPAddress: o.ip,
		UserAgent: o.userAgent,
		Metadata:  meta,
	}
	if userID != nil && resource == models.AuditResourceUser {
		entry.ResourceID = userID.String()
	}

	if err := s.auditRepo.Create(entry); err != nil {
		s.logger.Error("failed to create audit log", "error", err, "action", action, "resource", resource)
	}
}

// rejectRefresh audits a refused refresh attempt and returns the error the caller sees
func (s *AuthService) rejectRefresh(o origin, claimedUserID, reason string) error {
	var uid *uuid.UUID
	if id, err := uuid.Parse(claimedUserID); err == nil {
		uid = &id
	}
	s.audit(o, uid, models.AuditActionTokenRefresh, models.AuditResourceToken, models.AuditMetadata{"reason": reason})
	return ErrInvalidRefreshToken
}

// rejectLogin audits a failed login and returns err unchanged
func (s *AuthService) rejectLogin(o origin, username, reason string, err error) error {
	s.audit(o, nil, models.AuditActionFailedLogin, models.AuditResourceUser,
		models.AuditMetadata{"username": username, "reason": reason})
	return err
}
