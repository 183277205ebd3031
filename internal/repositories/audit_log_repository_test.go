package repositories

import (
	"testing"
	"time"

	"expense-tracker/internal/database"
	"expense-tracker/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

func TestAuditLogRepository(t *testing.T) {
	suite.Run(t, new(AuditLogRepositorySuite))
}

type AuditLogRepositorySuite struct {
	suite.Suite
	db     *database.DB
	repo   AuditLogRepositoryInterface
	userID uuid.UUID
}

func (s *AuditLogRepositorySuite) SetupTest() {
	s.db = database.SetupTestDB(s.T())
	s.repo = NewAuditLogRepository(s.db.DB)
	s.userID = uuid.New()
}

// record stores an entry for the suite user; pass uuid.Nil for an anonymous entry
func (s *AuditLogRepositorySuite) record(userID uuid.UUID, action, resource, resourceID string) *models.AuditLog {
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  gofakeit.IPv4Address(),
		UserAgent:  gofakeit.UserAgent(),
	}
	if userID != uuid.Nil {
		entry.UserID = &userID
	}
	s.Require().NoError(s.repo.Create(entry))
	return entry
}

func (s *AuditLogRepositorySuite) recordLogin(userID uuid.UUID) *models.AuditLog {
	return s.record(userID, models.AuditActionLogin, models.AuditResourceUser, userID.String())
}

func (s *AuditLogRepositorySuite) TestCreateAssignsIdentity() {
	entry := s.recordLogin(s.userID)

	s.NotEqual(uuid.Nil, entry.ID)
	s.False(entry.CreatedAt.IsZero())
	s.Equal(s.userID, *entry.UserID)
}

func (s *AuditLogRepositorySuite) TestCreateAnonymousEntry() {
	entry := s.record(uuid.Nil, models.AuditActionFailedLogin, models.AuditResourceUser, "")

	s.Nil(entry.UserID)

	stored, total, err := s.repo.List(models.AuditLogFilters{Action: models.AuditActionFailedLogin})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Nil(stored[0].UserID)
}

func (s *AuditLogRepositorySuite) TestCreateRejectsNil() {
	s.Error(s.repo.Create(nil))
}

func (s *AuditLogRepositorySuite) TestListPagesThroughOneUser() {
	for range 5 {
		s.recordLogin(s.userID)
	}
	s.recordLogin(uuid.New())

	sizes := map[int]int{1: 2, 2: 2, 3: 1, 4: 0}
	for number, want := range sizes {
		entries, total, err := s.repo.List(models.AuditLogFilters{
			UserID: &s.userID,
			Page:   models.Page{Number: number, Size: 2},
		})
		s.Require().NoError(err)
		s.Equal(int64(5), total, "page %d", number)
		s.Len(entries, want, "page %d", number)
		for _, entry := range entries {
			s.Equal(s.userID, *entry.UserID)
		}
	}
}

func (s *AuditLogRepositorySuite) TestListNewestFirst() {
	first := s.recordLogin(s.userID)
	second := s.record(s.userID, models.AuditActionLogout, models.AuditResourceUser, s.userID.String())
	s.Require().NoError(s.db.Model(first).Update("created_at", time.Now().Add(-time.Hour)).Error)

	entries, _, err := s.repo.List(models.AuditLogFilters{UserID: &s.userID})
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(second.ID, entries[0].ID)
	s.Equal(first.ID, entries[1].ID)
}

func (s *AuditLogRepositorySuite) TestListFilters() {
	budgetID := uuid.NewString()
	s.recordLogin(s.userID)
	s.record(s.userID, models.AuditActionLogout, models.AuditResourceUser, s.userID.String())
	s.record(uuid.Nil, models.AuditActionLogin, models.AuditResourceUser, "")
	s.record(s.userID, models.AuditActionBudgetAlertSent, models.AuditResourceBudget, budgetID)
	s.record(s.userID, models.AuditActionBudgetAlertSent, models.AuditResourceBudget, budgetID)
	s.record(s.userID, models.AuditActionBudgetAlertSent, models.AuditResourceBudget, uuid.NewString())

	tests := []struct {
		name    string
		filters models.AuditLogFilters
		want    int64
	}{
		{"no filters", models.AuditLogFilters{}, 6},
		{"action across users", models.AuditLogFilters{Action: models.AuditActionLogin}, 2},
		{"action for one user", models.AuditLogFilters{UserID: &s.userID, Action: models.AuditActionLogin}, 1},
		{"resource", models.AuditLogFilters{Resource: models.AuditResourceBudget}, 3},
		{"resource id", models.AuditLogFilters{Resource: models.AuditResourceBudget, ResourceID: budgetID}, 2},
		{"no match", models.AuditLogFilters{Action: models.AuditActionPasswordChanged}, 0},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			entries, total, err := s.repo.List(tt.filters)
			s.Require().NoError(err)
			s.Equal(tt.want, total)
			s.Len(entries, int(tt.want))
		})
	}
}

func (s *AuditLogRepositorySuite) TestDeleteOlderThanKeepsRecentEntries() {
	stale := s.recordLogin(s.userID)
	fresh := s.record(s.userID, models.AuditActionLogout, models.AuditResourceUser, s.userID.String())

	s.Require().NoError(s.db.Model(stale).Update("created_at", time.Now().AddDate(0, 0, -100)).Error)

	removed, err := s.repo.DeleteOlderThan(time.Now().AddDate(0, 0, -90))
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	entries, total, err := s.repo.List(models.AuditLogFilters{UserID: &s.userID})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(fresh.ID, entries[0].ID)

	removed, err = s.repo.DeleteOlderThan(time.Now().AddDate(0, 0, -90))
	s.Require().NoError(err)
	s.Zero(removed)
}
