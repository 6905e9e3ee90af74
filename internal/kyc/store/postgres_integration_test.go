//go:build integration

package store_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/store"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/sealing"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	key := make([]byte, 32)
	_, err := rand.Read(key)
	s.Require().NoError(err)
	sealer, err := sealing.New(base64.StdEncoding.EncodeToString(key))
	s.Require().NoError(err)
	s.store = store.NewPostgres(s.postgres.DB, sealer)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "kyc_cases"))
}

func newVerifiedCase(now time.Time) *models.Case {
	c := models.NewCase(id.UserID(uuid.New()), id.CompanyID{}, false, now)
	fields := map[string]string{models.FieldPAN: "ABCDE1234F"}
	c.ApplyVerification(models.DocumentPAN, models.Verification{
		Valid:     true,
		Provider:  "mock",
		AttemptID: id.NewAttemptID(),
		InputHash: models.CreateInputHash(models.DocumentPAN, fields),
		Fields:    fields,
		Payload:   map[string]any{"name": "ASHA RAO"},
		CheckedAt: now,
	})
	bank := map[string]string{models.FieldAccountNumber: "123456789012", models.FieldIFSC: "HDFC0ABCDEF"}
	exp := now.Add(time.Hour)
	c.ApplyVerification(models.DocumentBankAccount, models.Verification{
		Valid:     true,
		Provider:  "mock",
		AttemptID: id.NewAttemptID(),
		InputHash: models.CreateInputHash(models.DocumentBankAccount, bank),
		Fields:    bank,
		CheckedAt: now,
		ExpiresAt: &exp,
	})
	return c
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	c := newVerifiedCase(now)
	s.Require().NoError(s.store.Create(ctx, c))

	found, err := s.store.FindByUserID(ctx, c.UserID)
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
	s.True(found.CompanyID.IsNil())
	s.Equal("ASHA RAO", found.ApplicantName)
	s.Equal(int64(1), found.Version)
	pan := found.Documents[models.DocumentPAN]
	s.Require().NotNil(pan)
	s.Equal("ABCDE1234F", pan.Fields[models.FieldPAN])
	s.Equal(models.StateVerified, pan.Status.State)
	s.Len(pan.History, 1)

	var raw []byte
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx, `SELECT body FROM kyc_cases WHERE id = $1`, uuid.UUID(c.ID)).Scan(&raw))
	s.NotContains(string(raw), "ABCDE1234F", "body is sealed at rest")
}

func (s *PostgresStoreSuite) TestDuplicateUser() {
	ctx := context.Background()
	c := newVerifiedCase(time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, c))

	dup := models.NewCase(c.UserID, id.CompanyID{}, false, time.Now().UTC())
	s.ErrorIs(s.store.Create(ctx, dup), sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestConcurrentCompareAndSwap() {
	ctx := context.Background()
	c := newVerifiedCase(time.Now().UTC())
	s.Require().NoError(s.store.Create(ctx, c))

	const writers = 20
	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mine := c.Clone()
			mine.State = models.CaseSubmitted
			err := s.store.CompareAndSwap(ctx, mine, 1)
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(writers-1), conflicts.Load())

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), found.Version)
	s.Equal(models.CaseSubmitted, found.State)
}

func (s *PostgresStoreSuite) TestListCountAndExpiring() {
	ctx := context.Background()
	now := time.Now().UTC()
	a := newVerifiedCase(now)
	b := newVerifiedCase(now.Add(time.Minute))
	b.ApplicantName = "Vikram Singh"
	b.State = models.CaseSubmitted
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	page, err := s.store.List(ctx, models.CaseFilter{Search: "asha"})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Equal(a.ID, page.Cases[0].ID)

	page, err = s.store.List(ctx, models.CaseFilter{States: []models.CaseState{models.CaseSubmitted, models.CaseVerified}})
	s.Require().NoError(err)
	s.Equal(1, page.Total)

	page, err = s.store.List(ctx, models.CaseFilter{Limit: 1, Offset: 10})
	s.Require().NoError(err)
	s.Equal(2, page.Total)
	s.Empty(page.Cases)

	counts, err := s.store.CountByState(ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[models.CaseDraft])
	s.Equal(1, counts[models.CaseSubmitted])

	due, err := s.store.ListExpiring(ctx, now.Add(2*time.Hour), 10)
	s.Require().NoError(err)
	s.Len(due, 2)
	due, err = s.store.ListExpiring(ctx, now, 10)
	s.Require().NoError(err)
	s.Empty(due)
}
