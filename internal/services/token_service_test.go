package services

import (
	"crypto/rsa"
	"testing"
	"time"

	"expense-tracker/internal/config"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type TokenServiceTestSuite struct {
	suite.Suite
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	service    TokenServiceInterface
	user       *models.User
}

func (s *TokenServiceTestSuite) SetupTest() {
	var err error
	s.privateKey, s.publicKey, err = config.GenerateRSAKeyPair()
	s.Require().NoError(err)

	s.service = s.newService("expense-tracker", 24*time.Hour)
	s.user = &models.User{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: "$2a$12$hash",
		IsStaff:      true,
	}
}

func (s *TokenServiceTestSuite) newService(issuer string, duration time.Duration) TokenServiceInterface {
	return NewTokenService(&config.JWTConfig{
		PrivateKey:                 s.privateKey,
		PublicKey:                  s.publicKey,
		Issuer:                     issuer,
		AccessTokenDuration:        duration,
		RefreshTokenDuration:       7 * duration,
		PasswordResetTokenDuration: duration,
	})
}

func TestTokenServiceSuite(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}

func (s *TokenServiceTestSuite) TestGenerateAndValidateAccessToken() {
	token, expiresAt, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)
	s.True(expiresAt.After(time.Now()))
	s.True(expiresAt.Before(time.Now().Add(25 * time.Hour)))

	claims, err := s.service.ValidateAccessToken(token)
	s.Require().NoError(err)
	s.Equal(s.user.ID.String(), claims.UserID)
	s.Equal(s.user.Email, claims.Email)
	s.Equal(models.RoleStaff, claims.Role)
	s.True(claims.IsStaff())
	s.Equal("alice", claims.Subject)
}

func (s *TokenServiceTestSuite) TestRefreshTokenIsNotAnAccessToken() {
	token, _, err := s.service.GenerateRefreshToken(s.user.ID)
	s.Require().NoError(err)

	claims, err := s.service.ValidateRefreshToken(token)
	s.Require().NoError(err)
	s.Equal(models.TokenTypeRefresh, claims.TokenType)

	_, err = s.service.ValidateAccessToken(token)
	s.ErrorIs(err, ErrInvalidTokenType)
}

func (s *TokenServiceTestSuite) TestValidateAccessToken_Rejections() {
	_, err := s.service.ValidateAccessToken("")
	s.ErrorIs(err, ErrEmptyToken)

	_, err = s.service.ValidateAccessToken("invalid.token.format")
	s.ErrorIs(err, ErrInvalidToken)

	_, err = s.service.ValidateAccessToken("eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature")
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestExpiredToken() {
	ts := s.service.(*TokenService)
	issued := time.Now()
	ts.now = func() time.Time { return issued }

	token, expiresAt, err := ts.GenerateAccessToken(s.user)
	s.Require().NoError(err)
	s.Equal(issued.Add(24*time.Hour), expiresAt)

	ts.now = func() time.Time { return issued.Add(23 * time.Hour) }
	_, err = ts.ValidateAccessToken(token)
	s.NoError(err)

	ts.now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err = ts.ValidateAccessToken(token)
	s.ErrorIs(err, ErrExpiredToken)
}

func (s *TokenServiceTestSuite) TestPasswordResetToken_Expires() {
	ts := s.service.(*TokenService)
	issued := time.Now()
	ts.now = func() time.Time { return issued }

	token, err := ts.GeneratePasswordResetToken(s.user)
	s.Require().NoError(err)

	ts.now = func() time.Time { return issued.Add(25 * time.Hour) }
	s.ErrorIs(ts.ValidatePasswordResetToken(token, s.user), ErrExpiredToken)
}

func (s *TokenServiceTestSuite) TestWrongIssuer() {
	token, _, err := s.newService("other-service", time.Hour).GenerateAccessToken(s.user)
	s.Require().NoError(err)

	_, err = s.service.ValidateAccessToken(token)
	s.ErrorIs(err, ErrInvalidIssuer)
}

func (s *TokenServiceTestSuite) TestDifferentKeys() {
	privateKey, publicKey, err := config.GenerateRSAKeyPair()
	s.Require().NoError(err)

	other := NewTokenService(&config.JWTConfig{
		PrivateKey:          privateKey,
		PublicKey:           publicKey,
		Issuer:              "expense-tracker",
		AccessTokenDuration: time.Hour,
	})

	token, _, err := other.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	_, err = s.service.ValidateAccessToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *TokenServiceTestSuite) TestPasswordResetToken_Valid() {
	token, err := s.service.GeneratePasswordResetToken(s.user)
	s.Require().NoError(err)

	s.NoError(s.service.ValidatePasswordResetToken(token, s.user))
}

func (s *TokenServiceTestSuite) TestPasswordResetToken_SingleUse() {
	token, err := s.service.GeneratePasswordResetToken(s.user)
	s.Require().NoError(err)

	s.user.PasswordHash = "$2a$12$another"

	s.ErrorIs(s.service.ValidatePasswordResetToken(token, s.user), ErrTokenAlreadyUsed)
}

func (s *TokenServiceTestSuite) TestPasswordResetToken_OtherUser() {
	token, err := s.service.GeneratePasswordResetToken(s.user)
	s.Require().NoError(err)

	other := &models.User{ID: uuid.New(), PasswordHash: s.user.PasswordHash}

	s.ErrorIs(s.service.ValidatePasswordResetToken(token, other), ErrTokenUserMismatch)
}

func (s *TokenServiceTestSuite) TestPasswordResetToken_AccessTokenRejected() {
	token, _, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	s.ErrorIs(s.service.ValidatePasswordResetToken(token, s.user), ErrInvalidTokenType)
}

func (s *TokenServiceTestSuite) TestExtractTokenFromHeader() {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc.def.ghi", "abc.def.ghi", false},
		{"abc.def.ghi", "", true},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer ", "", true},
		{"Bearer    abc.def.ghi  ", "abc.def.ghi", false},
		{"Basic dXNlcjpwYXNz", "", true},
	}

	for _, tt := range tests {
		token, err := s.service.ExtractTokenFromHeader(tt.header)
		if tt.wantErr {
			s.ErrorIs(err, ErrInvalidAuthHeader, tt.header)
			continue
		}
		s.NoError(err)
		s.Equal(tt.want, token)
	}
}

func (s *TokenServiceTestSuite) TestGetJTIAndExpiry() {
	token, expiresAt, err := s.service.GenerateAccessToken(s.user)
	s.Require().NoError(err)

	jti, err := s.service.GetJTI(token)
	s.Require().NoError(err)
	_, err = uuid.Parse(jti)
	s.NoError(err)

	expiry, err := s.service.GetTokenExpiry(token)
	s.Require().NoError(err)
	s.WithinDuration(expiresAt, expiry, time.Second)
}

func BenchmarkTokenService_ValidateAccessToken(b *testing.B) {
	privateKey, publicKey, err := config.GenerateRSAKeyPair()
	if err != nil {
		b.Fatal(err)
	}

	ts := NewTokenService(&config.JWTConfig{
		PrivateKey:          privateKey,
		PublicKey:           publicKey,
		Issuer:              "expense-tracker",
		AccessTokenDuration: time.Hour,
	})

	token, _, err := ts.GenerateAccessToken(&models.User{ID: uuid.New(), Email: "bench@example.com"})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.ValidateAccessToken(token); err != nil {
			b.Fatal(err)
		}
	}
}
