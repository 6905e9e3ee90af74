package worker_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/kyc/adapters"
	"onboard/internal/kyc/models"
	"onboard/internal/kyc/providers"
	"onboard/internal/kyc/service"
	"onboard/internal/kyc/store"
	"onboard/internal/kyc/worker"
	id "onboard/pkg/domain"
	"onboard/pkg/requestcontext"
)

func TestSweeperExpiresApprovedCase(t *testing.T) {
	approvedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := store.NewInMemory()
	status := adapters.NewInMemoryUserStatus()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(cases, providers.NewMockProvider(0),
		service.WithUserStatusSync(status),
		service.WithLogger(logger),
	)

	userID := id.UserID(uuid.New())
	ctx := requestcontext.WithTime(context.Background(), approvedAt)
	for _, req := range []service.VerifyRequest{
		{UserID: userID, DocumentType: models.DocumentPAN, Fields: map[string]string{models.FieldPAN: "ABCDE1234F"}},
		{UserID: userID, DocumentType: models.DocumentGSTIN, Fields: map[string]string{models.FieldGSTIN: "27ABCDE1234F1Z5"}},
		{UserID: userID, DocumentType: models.DocumentBankAccount, Fields: map[string]string{models.FieldAccountNumber: "123456789012", models.FieldIFSC: "HDFC0ABCDEF"}},
	} {
		_, err := svc.Verify(ctx, req)
		require.NoError(t, err)
	}
	_, err := svc.AcceptAgreement(ctx, userID, id.CompanyID{}, "")
	require.NoError(t, err)
	submitted, err := svc.Submit(ctx, service.SubmitRequest{UserID: userID})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, service.ReviewRequest{CaseID: submitted.ID, Reviewer: "reviewer-1"})
	require.NoError(t, err)

	sweeper := worker.NewSweeper(svc, worker.WithLogger(logger))

	res, err := sweeper.SweepOnce(requestcontext.WithTime(context.Background(), approvedAt.Add(30*24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, worker.SweepResult{}, res, "nothing is due yet")

	res, err = sweeper.SweepOnce(requestcontext.WithTime(context.Background(), approvedAt.Add(366*24*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)

	stored, err := cases.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseExpired, stored.State)
	assert.Equal(t, models.StateExpired, stored.Document(models.DocumentBankAccount).Status.State)
	assert.Equal(t, models.StateVerified, stored.Document(models.DocumentPAN).Status.State)

	mirrored, ok := status.Status(userID)
	require.True(t, ok)
	assert.Equal(t, models.CaseExpired, mirrored)

	res, err = sweeper.SweepOnce(requestcontext.WithTime(context.Background(), approvedAt.Add(367*24*time.Hour)))
	require.NoError(t, err)
	assert.Zero(t, res.Scanned, "expired proofs are no longer due")
}
