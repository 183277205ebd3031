package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActiveToken_IsExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&ActiveToken{ExpiresAt: now.Add(time.Minute)}).IsExpired(now))
	assert.True(t, (&ActiveToken{ExpiresAt: now}).IsExpired(now))
	assert.True(t, (&ActiveToken{ExpiresAt: now.Add(-time.Minute)}).IsExpired(now))
}

func TestRefreshToken_IsValid(t *testing.T) {
	now := time.Now()
	revokedAt := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token RefreshToken
		valid bool
	}{
		{"fresh token", RefreshToken{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired token", RefreshToken{ExpiresAt: now.Add(-time.Hour)}, false},
		{"revoked token", RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.token.IsValid(now))
		})
	}
}

func TestRefreshToken_RevokeKeepsFirstTimestamp(t *testing.T) {
	first := time.Now().Add(-time.Hour)
	token := RefreshToken{ExpiresAt: time.Now().Add(time.Hour)}

	token.Revoke(first)
	token.Revoke(time.Now())

	assert.Equal(t, first, *token.RevokedAt)
	assert.False(t, token.IsValid(time.Now()))
}
