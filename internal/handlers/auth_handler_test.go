package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/services"
	"expense-tracker/internal/services/service_mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

func TestAuthHandler(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

type AuthHandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	authService *service_mocks.MockAuthServiceInterface
	handler     *AuthHandler
	e           *echo.Echo
}

func (s *AuthHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.authService = service_mocks.NewMockAuthServiceInterface(s.ctrl)
	s.handler = NewAuthHandler(s.authService)
	s.e = newTestEcho()
}

func (s *AuthHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AuthHandlerSuite) authResponse() *dto.AuthResponse {
	return &dto.AuthResponse{
		User: dto.UserResponse{ID: uuid.New(), Email: "jane@example.com", Username: "jane_doe", Name: "Jane"},
		Tokens: dto.TokenResponse{
			AccessToken:  "access.token",
			RefreshToken: "refresh.token",
			TokenType:    "Bearer",
			ExpiresAt:    time.Now().Add(15 * time.Minute),
		},
	}
}

func (s *AuthHandlerSuite) TestRegister_Success() {
	body := map[string]string{
		"email":    "jane@example.com",
		"username": "jane_doe",
		"name":     "Jane",
		"password": "Str0ng!Passw0rd",
	}

	s.authService.EXPECT().
		Register(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(req *dto.RegisterRequest, ip, ua string) (*dto.AuthResponse, error) {
			s.Equal("jane_doe", req.Username)
			return s.authResponse(), nil
		})

	c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/register", body)

	s.Require().NoError(s.handler.Register(c))
	s.Equal(http.StatusCreated, rec.Code)

	var result dto.AuthResponse
	s.Require().NoError(json.Unmarshal(decodeEnvelope(rec).Data, &result))
	s.Equal("access.token", result.Tokens.AccessToken)
	s.Equal("jane_doe", result.User.Username)
}

func (s *AuthHandlerSuite) TestRegister_Duplicate() {
	body := map[string]string{"email": "jane@example.com", "username": "jane_doe", "name": "Jane", "password": "x"}

	s.authService.EXPECT().
		Register(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: email is already registered", services.ErrUserAlreadyExists))

	c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/register", body)

	s.Require().NoError(s.handler.Register(c))
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("USER_002", decodeError(rec).Error.Code)
}

func (s *AuthHandlerSuite) TestRegister_WeakPassword() {
	body := map[string]string{"email": "jane@example.com", "username": "jane_doe", "name": "Jane", "password": "short"}

	s.authService.EXPECT().
		Register(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("password validation failed: %w", services.ErrPasswordTooShort))

	c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/register", body)

	s.Require().NoError(s.handler.Register(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_008", decodeError(rec).Error.Code)
}

func (s *AuthHandlerSuite) TestRegister_InvalidBody() {
	c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/register", "invalid json")

	s.Require().NoError(s.handler.Register(c))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_001", decodeError(rec).Error.Code)
}

func (s *AuthHandlerSuite) TestRegister_ValidationError() {
	body := map[string]string{"email": "not-an-email", "username": "jd", "name": "Jane", "password": "x"}
	c, _ := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/register", body)

	// Returned for the HTTP error handler to format
	s.Error(s.handler.Register(c))
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("success", func() {
		s.authService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(s.authResponse(), nil)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"username": "jane_doe", "password": "secret"})

		s.Require().NoError(s.handler.Login(c))
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("invalid credentials", func() {
		s.authService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, services.ErrInvalidCredentials)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"username": "jane_doe", "password": "wrong"})

		s.Require().NoError(s.handler.Login(c))
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Equal("AUTH_001", decodeError(rec).Error.Code)
	})

	s.Run("locked account", func() {
		s.authService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, services.ErrAccountLocked)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"username": "jane_doe", "password": "secret"})

		s.Require().NoError(s.handler.Login(c))
		s.Equal(http.StatusLocked, rec.Code)
		s.Equal("AUTH_006", decodeError(rec).Error.Code)
	})

	s.Run("system error is hidden", func() {
		s.authService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, fmt.Errorf("failed to get user: connection reset"))

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"username": "jane_doe", "password": "secret"})

		s.Require().NoError(s.handler.Login(c))
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "connection reset")
	})
}

func (s *AuthHandlerSuite) TestRefreshToken() {
	s.Run("rotates tokens", func() {
		s.authService.EXPECT().
			RefreshTokens("refresh.token", gomock.Any(), gomock.Any()).
			Return(&dto.TokenResponse{AccessToken: "new.access", RefreshToken: "new.refresh"}, nil)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/refresh",
			map[string]string{"refresh_token": "refresh.token"})

		s.Require().NoError(s.handler.RefreshToken(c))
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), "new.refresh")
	})

	s.Run("invalid refresh token", func() {
		s.authService.EXPECT().RefreshTokens(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, services.ErrInvalidRefreshToken)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/refresh",
			map[string]string{"refresh_token": "stale"})

		s.Require().NoError(s.handler.RefreshToken(c))
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.Equal("AUTH_007", decodeError(rec).Error.Code)
	})
}

func (s *AuthHandlerSuite) TestLogout() {
	userID := uuid.New()

	s.authService.EXPECT().Logout(userID, gomock.Any(), gomock.Any()).Return(nil)

	c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/logout", nil)
	authenticate(c, userID, false)

	s.Require().NoError(s.handler.Logout(c))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AuthHandlerSuite) TestLogout_Unauthenticated() {
	c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/logout", nil)

	s.Require().NoError(s.handler.Logout(c))
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthHandlerSuite) TestRequestPasswordReset() {
	s.Run("link sent", func() {
		s.authService.EXPECT().
			RequestPasswordReset(gomock.Any(), "jane@example.com", gomock.Any(), gomock.Any()).
			Return(nil)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/password-reset",
			map[string]string{"email": "jane@example.com"})

		s.Require().NoError(s.handler.RequestPasswordReset(c))
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("unknown email", func() {
		s.authService.EXPECT().
			RequestPasswordReset(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(services.ErrEmailNotFound)

		c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/password-reset",
			map[string]string{"email": "nobody@example.com"})

		s.Require().NoError(s.handler.RequestPasswordReset(c))
		s.Equal(http.StatusNotFound, rec.Code)
		s.Equal("USER_008", decodeError(rec).Error.Code)
	})
}

func (s *AuthHandlerSuite) TestConfirmPasswordReset() {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"success", nil, http.StatusOK, ""},
		{"missing password", services.ErrPasswordRequired, http.StatusBadRequest, "USER_009"},
		{"bad token", services.ErrInvalidResetToken, http.StatusBadRequest, "AUTH_008"},
		{"weak password", fmt.Errorf("password validation failed: %w", services.ErrPasswordNoNumber), http.StatusBadRequest, "VALIDATION_008"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.authService.EXPECT().
				ConfirmPasswordReset(gomock.Any(), "dWlk", "tok", "N3w!Password", gomock.Any(), gomock.Any()).
				Return(tt.serviceErr)

			c, rec := newJSONContext(s.e, http.MethodPost, "/api/v1/auth/password-reset/confirm/dWlk/tok",
				map[string]string{"password": "N3w!Password"})
			withParams(c, "uid", "dWlk", "token", "tok")

			s.Require().NoError(s.handler.ConfirmPasswordReset(c))
			s.Equal(tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				s.Equal(tt.wantCode, decodeError(rec).Error.Code)
			}
		})
	}
}
