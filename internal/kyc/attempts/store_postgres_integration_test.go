//go:build integration

package attempts_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"onboard/internal/kyc/attempts"
	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	"onboard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *attempts.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = attempts.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "verification_attempts"))
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	now := time.Now().UTC().Truncate(time.Microsecond)

	for i, status := range []models.AttemptStatus{models.AttemptError, models.AttemptSoftFailed, models.AttemptSuccess} {
		s.Require().NoError(s.store.Append(ctx, models.VerificationAttempt{
			ID:           id.NewAttemptID(),
			UserID:       userID,
			DocumentType: models.DocumentBankAccount,
			Provider:     "mock",
			Status:       status,
			ErrorCode:    "timeout",
			Metadata:     map[string]string{"browser": "Chrome"},
			IPAddress:    "203.0.113.7",
			CreatedAt:    now.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := s.store.ListByUser(ctx, userID, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(models.AttemptSoftFailed, got[0].Status, "most recent two, oldest first")
	s.Equal(models.AttemptSuccess, got[1].Status)
	s.Equal("Chrome", got[1].Metadata["browser"])
	s.True(got[1].CompanyID.IsNil())
}

func (s *PostgresStoreSuite) TestAppendIsIdempotentByID() {
	ctx := context.Background()
	a := models.VerificationAttempt{
		ID:           id.NewAttemptID(),
		UserID:       id.UserID(uuid.New()),
		DocumentType: models.DocumentPAN,
		Provider:     "mock",
		Status:       models.AttemptSuccess,
		CreatedAt:    time.Now().UTC(),
	}
	s.Require().NoError(s.store.Append(ctx, a))
	s.Require().NoError(s.store.Append(ctx, a))

	got, err := s.store.ListByUser(ctx, a.UserID, 0)
	s.Require().NoError(err)
	s.Len(got, 1)
}
