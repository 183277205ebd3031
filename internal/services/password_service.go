package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"expense-tracker/internal/config"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultMinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes
	MaxPasswordLength = 72

	generatedPasswordLength = 16

	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	digitChars   = "0123456789"
	specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

var (
	ErrPasswordEmpty        = errors.New("password cannot be empty")
	ErrPasswordTooShort     = errors.New("password is too short")
	ErrPasswordTooLong      = fmt.Errorf("password must not exceed %d characters", MaxPasswordLength)
	ErrPasswordNoUppercase  = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase  = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoNumber     = errors.New("password must contain at least one number")
	ErrPasswordNoSpecial    = errors.New("password must contain at least one special character")
	ErrCurrentPasswordWrong = errors.New("current password is incorrect")
	ErrSamePassword         = errors.New("new password must be different from current password")

	policyErrors = []error{
		ErrPasswordEmpty, ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordNoUppercase,
		ErrPasswordNoLowercase, ErrPasswordNoNumber, ErrPasswordNoSpecial,
	}
)

// characterRule is one "must contain" clause of the policy
type characterRule struct {
	required bool
	matches  func(rune) bool
	err      error
}

func isSpecial(r rune) bool {
	return strings.ContainsRune(specialChars, r)
}

// PasswordService hashes passwords and enforces the configured password policy
type PasswordService struct {
	cost      int
	minLength int
	rules     []characterRule
}

func NewPasswordService(securityConfig *config.SecurityConfig) PasswordServiceInterface {
	cost := securityConfig.BCryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	minLength := securityConfig.PasswordMinLength
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}

	return &PasswordService{
		cost:      cost,
		minLength: minLength,
		rules: []characterRule{
			{securityConfig.RequireUppercase, unicode.IsUpper, ErrPasswordNoUppercase},
			{securityConfig.RequireLowercase, unicode.IsLower, ErrPasswordNoLowercase},
			{securityConfig.RequireNumbers, unicode.IsDigit, ErrPasswordNoNumber},
			{securityConfig.RequireSpecialChars, isSpecial, ErrPasswordNoSpecial},
		},
	}
}

// ValidatePassword returns the first policy violation, checking length before character classes
func (ps *PasswordService) ValidatePassword(password string) error {
	switch {
	case password == "":
		return ErrPasswordEmpty
	case len(password) < ps.minLength:
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordTooShort, ps.minLength)
	case len(password) > MaxPasswordLength:
		return ErrPasswordTooLong
	}

	for _, rule := range ps.rules {
		if rule.required && strings.IndexFunc(password, rule.matches) < 0 {
			return rule.err
		}
	}
	return nil
}

// IsPolicyViolation reports whether err came from ValidatePassword
func IsPolicyViolation(err error) bool {
	for _, target := range policyErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (ps *PasswordService) HashPassword(password string) (string, error) {
	if err := ps.ValidatePassword(password); err != nil {
		return "", fmt.Errorf("password validation failed: %w", err)
	}
	return ps.hash(password)
}

func (ps *PasswordService) ComparePassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPasswordWithoutValidation is for generated passwords; only the bcrypt limits apply
func (ps *PasswordService) HashPasswordWithoutValidation(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordEmpty
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	return ps.hash(password)
}

func (ps *PasswordService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), ps.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// GenerateSecurePassword returns a random password with at least one character of every class
func (ps *PasswordService) GenerateSecurePassword() (string, error) {
	length := max(generatedPasswordLength, ps.minLength)
	classes := []string{upperChars, lowerChars, digitChars, specialChars}
	all := strings.Join(classes, "")

	out := make([]byte, length)
	for i := range out {
		set := all
		if i < len(classes) {
			set = classes[i]
		}
		n, err := randomIndex(len(set))
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i] = set[n]
	}

	// Fisher-Yates so the guaranteed characters are not always up front
	for i := len(out) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", fmt.Errorf("failed to shuffle password: %w", err)
		}
		out[i], out[j] = out[j], out[i]
	}

	return string(out), nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
