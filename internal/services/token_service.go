package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense-tracker/internal/config"
	"expense-tracker/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const fingerprintLength = 16

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token is expired")
	ErrInvalidIssuer     = errors.New("invalid issuer")
	ErrInvalidTokenType  = errors.New("invalid token type")
	ErrEmptyToken        = errors.New("empty token")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrTokenUserMismatch = errors.New("token was issued for another user")
	ErrTokenAlreadyUsed  = errors.New("token no longer matches the user's password")
)

// TokenService issues and verifies the RS256 tokens: access, refresh and password reset
type TokenService struct {
	cfg    config.JWTConfig
	now    func() time.Time
	parser *jwt.Parser
}

func NewTokenService(jwtConfig *config.JWTConfig) TokenServiceInterface {
	ts := &TokenService{
		cfg: *jwtConfig,
		now: time.Now,
	}
	ts.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(ts.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return ts.now() }),
	)
	return ts
}

func (ts *TokenService) GenerateAccessToken(user *models.User) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("user cannot be nil")
	}

	return ts.issue(models.TokenTypeAccess, user.Username, user.ID, ts.cfg.AccessTokenDuration, func(c *models.CustomClaims) {
		c.Email = user.Email
		c.Role = user.Role()
	})
}

func (ts *TokenService) GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, errors.New("user ID cannot be nil")
	}

	return ts.issue(models.TokenTypeRefresh, userID.String(), userID, ts.cfg.RefreshTokenDuration, nil)
}

// GeneratePasswordResetToken issues a short-lived token bound to the user's
// current password hash. Changing the password invalidates it.
func (ts *TokenService) GeneratePasswordResetToken(user *models.User) (string, error) {
	if user == nil {
		return "", errors.New("user cannot be nil")
	}

	token, _, err := ts.issue(models.TokenTypePasswordReset, user.ID.String(), user.ID, ts.cfg.PasswordResetTokenDuration, func(c *models.CustomClaims) {
		c.Fingerprint = passwordFingerprint(user)
	})
	return token, err
}

func (ts *TokenService) ValidateAccessToken(tokenString string) (*models.CustomClaims, error) {
	return ts.verify(tokenString, models.TokenTypeAccess)
}

func (ts *TokenService) ValidateRefreshToken(tokenString string) (*models.CustomClaims, error) {
	return ts.verify(tokenString, models.TokenTypeRefresh)
}

// ValidatePasswordResetToken checks the token signature, expiry, owner and password fingerprint
func (ts *TokenService) ValidatePasswordResetToken(tokenString string, user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}

	claims, err := ts.verify(tokenString, models.TokenTypePasswordReset)
	if err != nil {
		return err
	}

	if claims.UserID != user.ID.String() {
		return ErrTokenUserMismatch
	}

	if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(passwordFingerprint(user))) != 1 {
		return ErrTokenAlreadyUsed
	}

	return nil
}

// ExtractTokenFromHeader returns the token of a "Bearer <token>" header. The scheme is case-insensitive.
func (ts *TokenService) ExtractTokenFromHeader(authHeader string) (string, error) {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrInvalidAuthHeader
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidAuthHeader
	}

	return token, nil
}

// GetJTI extracts the JTI (JWT ID) from a token without full validation
func (ts *TokenService) GetJTI(tokenString string) (string, error) {
	claims, err := ts.unverifiedClaims(tokenString)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// GetTokenExpiry returns the expiry time of a token
func (ts *TokenService) GetTokenExpiry(tokenString string) (time.Time, error) {
	claims, err := ts.unverifiedClaims(tokenString)
	if err != nil {
		return time.Time{}, err
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, ErrInvalidToken
	}

	return claims.ExpiresAt.Time, nil
}

func (ts *TokenService) issue(
	tokenType, subject string,
	userID uuid.UUID,
	ttl time.Duration,
	extend func(*models.CustomClaims),
) (string, time.Time, error) {
	issuedAt := ts.now()
	expiresAt := issuedAt.Add(ttl)

	claims := models.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.cfg.Issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    userID.String(),
		TokenType: tokenType,
	}
	if extend != nil {
		extend(&claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.cfg.PrivateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return signed, expiresAt, nil
}

func (ts *TokenService) verify(tokenString, expectedType string) (*models.CustomClaims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	claims := &models.CustomClaims{}
	_, err := ts.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return ts.cfg.PublicKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return nil, ErrInvalidIssuer
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.TokenType != expectedType {
		return nil, ErrInvalidTokenType
	}

	return claims, nil
}

// unverifiedClaims decodes claims without checking the signature. Only use it on tokens this service just issued.
func (ts *TokenService) unverifiedClaims(tokenString string) (*models.CustomClaims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	claims := &models.CustomClaims{}
	if _, _, err := ts.parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return claims, nil
}

func passwordFingerprint(user *models.User) string {
	return hashToken(user.ID.String() + ":" + user.PasswordHash)[:fingerprintLength]
}
