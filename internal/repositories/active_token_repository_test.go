package repositories

import (
	"testing"
	"time"

	"expense-tracker/internal/database"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

func TestActiveTokenRepository(t *testing.T) {
	suite.Run(t, new(ActiveTokenRepositorySuite))
}

type ActiveTokenRepositorySuite struct {
	suite.Suite
	db   *database.DB
	repo ActiveTokenRepositoryInterface
}

func (s *ActiveTokenRepositorySuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.repo = NewActiveTokenRepository(s.db.DB)
}

func (s *ActiveTokenRepositorySuite) createToken(userID uuid.UUID, ttl time.Duration) *models.ActiveToken {
	token := &models.ActiveToken{
		JTI:       uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	s.Require().NoError(s.repo.Create(token))
	return token
}

func (s *ActiveTokenRepositorySuite) TestExists() {
	live := s.createToken(uuid.New(), time.Hour)
	expired := s.createToken(uuid.New(), -time.Minute)

	exists, err := s.repo.Exists(live.JTI)
	s.NoError(err)
	s.True(exists)

	exists, err = s.repo.Exists(expired.JTI)
	s.NoError(err)
	s.False(exists)

	exists, err = s.repo.Exists("unknown")
	s.NoError(err)
	s.False(exists)
}

func (s *ActiveTokenRepositorySuite) TestDeleteByJTI() {
	token := s.createToken(uuid.New(), time.Hour)

	s.NoError(s.repo.DeleteByJTI(token.JTI))
	s.ErrorIs(s.repo.DeleteByJTI(token.JTI), ErrTokenNotFound)
}

func (s *ActiveTokenRepositorySuite) TestDeleteAllForUser() {
	userID := uuid.New()
	first := s.createToken(userID, time.Hour)
	s.createToken(userID, time.Hour)
	other := s.createToken(uuid.New(), time.Hour)

	count, err := s.repo.DeleteAllForUser(userID)
	s.NoError(err)
	s.Equal(int64(2), count)

	exists, err := s.repo.Exists(first.JTI)
	s.NoError(err)
	s.False(exists)

	exists, err = s.repo.Exists(other.JTI)
	s.NoError(err)
	s.True(exists)
}

func (s *ActiveTokenRepositorySuite) TestDeleteExpired() {
	s.createToken(uuid.New(), -time.Hour)
	live := s.createToken(uuid.New(), time.Hour)

	count, err := s.repo.DeleteExpired()
	s.NoError(err)
	s.Equal(int64(1), count)

	exists, err := s.repo.Exists(live.JTI)
	s.NoError(err)
	s.True(exists)
}
