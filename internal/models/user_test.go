package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Validate(t *testing.T) {
	valid := func() User {
		return User{Email: "test@example.com", Username: "john_doe", Name: "John Doe"}
	}

	tests := []struct {
		name    string
		mutate  func(u *User)
		wantErr bool
		errMsg  string
	}{
		{name: "valid user", mutate: func(u *User) {}},
		{name: "invalid email", mutate: func(u *User) { u.Email = "invalid-email" }, wantErr: true, errMsg: "invalid email format"},
		{name: "empty email", mutate: func(u *User) { u.Email = "" }, wantErr: true, errMsg: "email is required"},
		{name: "empty username", mutate: func(u *User) { u.Username = "" }, wantErr: true, errMsg: "username is required"},
		{name: "short username", mutate: func(u *User) { u.Username = "jd" }, wantErr: true, errMsg: "between 3 and 50"},
		{name: "long username", mutate: func(u *User) { u.Username = strings.Repeat("a", 51) }, wantErr: true, errMsg: "between 3 and 50"},
		{name: "username with dash", mutate: func(u *User) { u.Username = "john-doe" }, wantErr: true, errMsg: "letters, digits and underscores"},
		{name: "blank name", mutate: func(u *User) { u.Name = "   " }, wantErr: true, errMsg: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := valid()
			tt.mutate(&user)

			err := user.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewUser_Normalizes(t *testing.T) {
	user := NewUser("  John@Example.COM ", " john ", " John ", "hash")

	assert.Equal(t, "john@example.com", user.Email)
	assert.Equal(t, "john", user.Username)
	assert.Equal(t, "John", user.Name)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff)
}

func TestUser_IncrementFailedAttempts(t *testing.T) {
	user := User{}

	user.IncrementFailedAttempts(3)
	user.IncrementFailedAttempts(3)
	assert.Equal(t, 2, user.FailedLoginAttempts)
	assert.False(t, user.IsLocked())

	user.IncrementFailedAttempts(3)
	assert.Equal(t, 3, user.FailedLoginAttempts)
	assert.True(t, user.IsLocked())

	user.Unlock()
	assert.False(t, user.IsLocked())
	assert.Zero(t, user.FailedLoginAttempts)
}

func TestUser_IncrementFailedAttempts_DefaultLimit(t *testing.T) {
	user := User{}
	for i := 0; i < DefaultMaxFailedLoginAttempts-1; i++ {
		user.IncrementFailedAttempts(0)
	}
	assert.False(t, user.IsLocked())

	user.IncrementFailedAttempts(0)
	assert.True(t, user.IsLocked())
}

func TestUser_Role(t *testing.T) {
	assert.Equal(t, RoleUser, (&User{}).Role())
	assert.Equal(t, RoleStaff, (&User{IsStaff: true}).Role())
}

func TestUser_BeforeCreate(t *testing.T) {
	user := User{Email: "test@example.com", Username: "tester", Name: "Tester"}

	err := user.BeforeCreate(nil)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotZero(t, user.CreatedAt)
	assert.NotZero(t, user.UpdatedAt)
}

func TestUser_UpdateLastLoginAndDeactivate(t *testing.T) {
	user := User{IsActive: true}
	before := time.Now()

	user.UpdateLastLogin()
	user.Deactivate()

	require.NotNil(t, user.LastLoginAt)
	assert.False(t, user.LastLoginAt.Before(before))
	assert.False(t, user.IsActive)
}
