package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"onboard/internal/kyc/adapters"
	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	"onboard/internal/kyc/ports/mocks"
	"onboard/internal/kyc/providers"
	"onboard/internal/kyc/store"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	audit "onboard/pkg/platform/audit"
	"onboard/pkg/platform/audit/publisher"
	auditmemory "onboard/pkg/platform/audit/store/memory"
	"onboard/pkg/requestcontext"

	"github.com/google/uuid"
)

var baseTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// =============================================================================
// KYC Service Test Suite
// =============================================================================
// The service is exercised against in-memory stores and the deterministic mock
// registry so lifecycle rules, side effects and error mapping can be asserted
// without infrastructure.

type KYCServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	cases      *store.InMemory
	provider   *countingProvider
	recorder   *syncRecorder
	auditStore *auditmemory.InMemoryStore
	status     *adapters.InMemoryUserStatus
	progress   *adapters.InMemoryProgress
	notifier   *captureNotifier
	service    *Service
	userID     id.UserID
}

func TestKYCServiceSuite(t *testing.T) {
	suite.Run(t, new(KYCServiceSuite))
}

func (s *KYCServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cases = store.NewInMemory()
	s.provider = &countingProvider{Provider: providers.NewMockProvider(0)}
	s.recorder = &syncRecorder{}
	s.auditStore = auditmemory.NewInMemoryStore()
	s.status = adapters.NewInMemoryUserStatus()
	s.progress = adapters.NewInMemoryProgress()
	s.notifier = &captureNotifier{}
	s.userID = id.UserID(uuid.New())
	s.service = s.newService(s.cases)
}

func (s *KYCServiceSuite) newService(cases store.CaseStore, opts ...Option) *Service {
	base := []Option{
		WithAttemptRecorder(s.recorder),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithUserStatusSync(s.status),
		WithProgressTracker(s.progress),
		WithNotifier(s.notifier),
		WithAgreementVersion("2024-01"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(cases, s.provider, append(base, opts...)...)
}

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *KYCServiceSuite) verify(when time.Time, docType models.DocumentType, fields map[string]string) *VerifyResult {
	res, err := s.service.Verify(at(when), VerifyRequest{UserID: s.userID, DocumentType: docType, Fields: fields})
	s.Require().NoError(err)
	return res
}

// completeCase verifies PAN, GSTIN and bank and accepts the agreement.
func (s *KYCServiceSuite) completeCase(when time.Time) {
	for _, t := range []models.DocumentType{models.DocumentPAN, models.DocumentGSTIN, models.DocumentBankAccount} {
		s.verify(when, t, validFields(t))
	}
	_, err := s.service.AcceptAgreement(at(when), s.userID, id.CompanyID{}, "")
	s.Require().NoError(err)
}

func (s *KYCServiceSuite) submittedCase(when time.Time) *models.Case {
	s.completeCase(when)
	c, err := s.service.Submit(at(when), SubmitRequest{UserID: s.userID})
	s.Require().NoError(err)
	return c
}

func (s *KYCServiceSuite) approvedCase(when time.Time) *models.Case {
	c := s.submittedCase(when)
	c, err := s.service.Approve(at(when), ReviewRequest{CaseID: c.ID, Reviewer: "reviewer-1"})
	s.Require().NoError(err)
	return c
}

func (s *KYCServiceSuite) stored() *models.Case {
	c, err := s.cases.FindByUserID(context.Background(), s.userID)
	s.Require().NoError(err)
	return c
}

func (s *KYCServiceSuite) auditActions() []string {
	events, err := s.auditStore.ListByUser(context.Background(), s.userID)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *KYCServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), err.Error())
}

// =============================================================================
// Verify
// =============================================================================

func (s *KYCServiceSuite) TestVerifyValidationShortCircuits() {
	_, err := s.service.Verify(at(baseTime), VerifyRequest{
		UserID:       s.userID,
		DocumentType: models.DocumentPAN,
		Fields:       map[string]string{models.FieldPAN: "12345"},
	})
	s.requireCode(err, dErrors.CodeValidation)
	s.Equal(models.FieldPAN, dErrors.FieldOf(err))

	s.Equal(int32(0), s.provider.calls.Load())
	s.Empty(s.recorder.all())
	_, err = s.cases.FindByUserID(context.Background(), s.userID)
	s.Error(err)

	s.Run("unknown document type", func() {
		_, err := s.service.Verify(at(baseTime), VerifyRequest{UserID: s.userID, DocumentType: "passport"})
		s.requireCode(err, dErrors.CodeValidation)
		s.Equal(int32(0), s.provider.calls.Load())
	})

	s.Run("unexpected field", func() {
		fields := validFields(models.DocumentGSTIN)
		fields["pan"] = "ABCDE1234F"
		_, err := s.service.Verify(at(baseTime), VerifyRequest{UserID: s.userID, DocumentType: models.DocumentGSTIN, Fields: fields})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *KYCServiceSuite) TestVerifyPANEndToEnd() {
	res := s.verify(baseTime, models.DocumentPAN, map[string]string{
		models.FieldPAN:  " abcde 1234f ",
		models.FieldName: "Asha  Rao",
	})

	s.True(res.Verified())
	s.True(res.Changed)
	doc := res.Document
	s.Equal("ABCDE1234F", doc.Fields[models.FieldPAN])
	s.Equal(models.CreateInputHash(models.DocumentPAN, map[string]string{models.FieldPAN: "ABCDE1234F"}), doc.Status.InputHash)
	s.Nil(doc.Status.ExpiresAt, "pan never expires")
	s.Equal(baseTime, *doc.Status.VerifiedAt)
	s.Equal(providers.MockProviderID, doc.Status.Provider)
	s.Require().Len(doc.History, 1)
	s.Equal(models.StateVerified, doc.History[0].State)

	s.Equal(models.CaseDraft, res.Case.State)
	s.Equal("ASHA RAO", res.Case.ApplicantName)
	s.True(res.Case.Completion.PersonalComplete)
	s.False(res.Case.Completion.BankDetailsComplete)
	s.Equal(int64(1), res.Case.Version)

	attempts := s.recorder.all()
	s.Require().Len(attempts, 1)
	s.Equal(models.AttemptSuccess, attempts[0].Status)
	s.Equal(res.AttemptID, attempts[0].ID)
	s.Equal(res.AttemptID, doc.Status.AttemptID)

	s.Equal([]string{string(audit.EventCaseCreated), string(audit.EventDocumentVerified)}, s.auditActions())
	s.True(s.progress.Has(s.userID, ports.MilestoneDocumentVerified))
}

func (s *KYCServiceSuite) TestVerifySameInputIsIdempotent() {
	fields := validFields(models.DocumentBankAccount)
	first := s.verify(baseTime, models.DocumentBankAccount, fields)
	later := baseTime.Add(48 * time.Hour)
	second := s.verify(later, models.DocumentBankAccount, fields)

	s.False(second.Changed)
	s.True(second.Verified())
	s.NotEqual(first.AttemptID, second.AttemptID)
	s.Equal(second.AttemptID, second.Document.Status.AttemptID)
	s.Equal(later, second.Document.Status.LastCheckedAt)
	s.True(first.Document.Status.VerifiedAt.Equal(*second.Document.Status.VerifiedAt), "verified_at is not re-stamped")
	s.True(first.Document.Status.ExpiresAt.Equal(*second.Document.Status.ExpiresAt), "expires_at is not re-stamped")
	s.Len(second.Document.History, 1)

	s.Len(s.recorder.all(), 2, "every provider call is an attempt")
	s.Equal(int32(2), s.provider.calls.Load())

	s.Run("same-input failure does not downgrade", func() {
		pan := s.verify(baseTime, models.DocumentPAN, validFields(models.DocumentPAN))
		s.Require().True(pan.Verified())

		// The name is not a proven field, so the hash matches.
		mismatch := s.verify(later, models.DocumentPAN, map[string]string{
			models.FieldPAN:  "ABCDE1234F",
			models.FieldName: "MISMATCH NAME",
		})
		s.False(mismatch.Changed)
		s.True(mismatch.Verified())
		s.Equal(models.AttemptSoftFailed, s.recorder.all()[len(s.recorder.all())-1].Status)
	})
}

func (s *KYCServiceSuite) TestVerifyBankAccountDoesNotExistOnVerifiedCase() {
	s.approvedCase(baseTime)
	s.Require().Equal(models.CaseVerified, s.stored().State)

	res := s.verify(baseTime.Add(time.Hour), models.DocumentBankAccount, map[string]string{
		models.FieldAccountNumber: "000123456789",
		models.FieldIFSC:          "HDFC0ABCDEF",
	})

	s.False(res.Verified())
	s.Equal(models.StateSoftFailed, res.Document.Status.State)
	s.Equal("bank account does not exist", res.Document.Status.FailureReason)
	s.Equal(false, res.Document.Payload["accountExists"])
	s.Equal(models.CaseActionRequired, res.Case.State)
	s.False(res.Case.Completion.BankDetailsComplete)

	status, ok := s.status.Status(s.userID)
	s.True(ok)
	s.Equal(models.CaseActionRequired, status)
	s.Contains(s.notifier.kinds(), ports.NotificationActionRequired)
	s.Contains(s.auditActions(), string(audit.EventDocumentFailed))
	s.Contains(s.auditActions(), string(audit.EventCaseActionRequired))

	_, err := s.service.Submit(at(baseTime.Add(time.Hour)), SubmitRequest{UserID: s.userID})
	s.requireCode(err, dErrors.CodeInvariantViolation)
}

func (s *KYCServiceSuite) TestVerifyHardFailure() {
	res := s.verify(baseTime, models.DocumentPAN, map[string]string{models.FieldPAN: "XXCDE1234F"})
	s.False(res.Verified())
	s.Equal(models.StateHardFailed, res.Document.Status.State)
	s.Equal(models.AttemptHardFailed, s.recorder.all()[0].Status)
	s.Equal(string(models.FailureHard), s.recorder.all()[0].ErrorCode)
	s.Equal(models.CaseDraft, res.Case.State)
}

func (s *KYCServiceSuite) TestVerifyProviderErrorIsRecorded() {
	_, err := s.service.Verify(at(baseTime), VerifyRequest{
		UserID:       s.userID,
		DocumentType: models.DocumentBankAccount,
		Fields:       map[string]string{models.FieldAccountNumber: "123456789999", models.FieldIFSC: "HDFC0ABCDEF"},
	})
	s.requireCode(err, dErrors.CodeTimeout)

	attempts := s.recorder.all()
	s.Require().Len(attempts, 1)
	s.Equal(models.AttemptError, attempts[0].Status)
	s.Equal(string(providers.ErrorTimeout), attempts[0].ErrorCode)
	s.Contains(s.auditActions(), string(audit.EventProviderUnavailable))

	_, err = s.cases.FindByUserID(context.Background(), s.userID)
	s.Error(err, "no case is created without a determinate answer")
}

func (s *KYCServiceSuite) TestVerifyThrottled() {
	throttle := mocks.NewMockAttemptThrottle(s.ctrl)
	throttle.EXPECT().Allow(gomock.Any(), s.userID, models.DocumentPAN).Return(false)
	svc := s.newService(s.cases, WithThrottle(throttle))

	_, err := svc.Verify(at(baseTime), VerifyRequest{UserID: s.userID, DocumentType: models.DocumentPAN, Fields: validFields(models.DocumentPAN)})
	s.requireCode(err, dErrors.CodeRateLimited)
	s.Equal(int32(0), s.provider.calls.Load())
	s.Empty(s.recorder.all())
	s.Equal([]string{string(audit.EventVerificationThrottle)}, s.auditActions())
}

func (s *KYCServiceSuite) TestVerifyIsDetachedFromCallerCancellation() {
	ctx, cancel := context.WithCancel(at(baseTime))
	cancel()

	res, err := s.service.Verify(ctx, VerifyRequest{UserID: s.userID, DocumentType: models.DocumentPAN, Fields: validFields(models.DocumentPAN)})
	s.Require().NoError(err)
	s.True(res.Verified())
	s.Require().Len(s.provider.ctxErrs, 1)
	s.NoError(s.provider.ctxErrs[0])
	s.Equal(models.StateVerified, s.stored().Document(models.DocumentPAN).Status.State)
}

func (s *KYCServiceSuite) TestVerifySyncsBankAccountOnce() {
	payout := mocks.NewMockPayoutSync(s.ctrl)
	fields := validFields(models.DocumentBankAccount)
	payout.EXPECT().SyncBankAccount(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, account ports.BankAccountSync) error {
			s.Equal(s.userID, account.UserID)
			s.Equal("123456789012", account.AccountNumber)
			s.Equal(models.CreateInputHash(models.DocumentBankAccount, fields), account.IdempotencyKey)
			return nil
		}).Times(1)
	svc := s.newService(s.cases, WithPayoutSync(payout))

	for i := 0; i < 2; i++ {
		_, err := svc.Verify(at(baseTime), VerifyRequest{UserID: s.userID, DocumentType: models.DocumentBankAccount, Fields: fields})
		s.Require().NoError(err)
	}
}

func (s *KYCServiceSuite) TestVerifyPayoutFailureDoesNotFailVerification() {
	payout := mocks.NewMockPayoutSync(s.ctrl)
	payout.EXPECT().SyncBankAccount(gomock.Any(), gomock.Any()).Return(errors.New("payout down"))
	svc := s.newService(s.cases, WithPayoutSync(payout))

	res, err := svc.Verify(at(baseTime), VerifyRequest{UserID: s.userID, DocumentType: models.DocumentBankAccount, Fields: validFields(models.DocumentBankAccount)})
	s.Require().NoError(err)
	s.True(res.Verified())
}

func (s *KYCServiceSuite) TestAuditFailureIsNotReturned() {
	auditPub := mocks.NewMockAuditPublisher(s.ctrl)
	auditPub.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("outbox down")).AnyTimes()
	svc := s.newService(s.cases, WithAuditPublisher(auditPub))

	res, err := svc.Verify(at(baseTime), VerifyRequest{UserID: s.userID, DocumentType: models.DocumentPAN, Fields: validFields(models.DocumentPAN)})
	s.Require().NoError(err)
	s.True(res.Verified())
}

// =============================================================================
// Submit and agreement
// =============================================================================

func (s *KYCServiceSuite) TestSubmitGate() {
	s.Run("no case", func() {
		_, err := s.service.Submit(at(baseTime), SubmitRequest{UserID: s.userID})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("incomplete case", func() {
		s.verify(baseTime, models.DocumentPAN, validFields(models.DocumentPAN))
		_, err := s.service.Submit(at(baseTime), SubmitRequest{UserID: s.userID})
		s.requireCode(err, dErrors.CodeInvariantViolation)
		s.Equal(models.CaseDraft, s.stored().State)
	})

	s.Run("declared bank details differ from the verified record", func() {
		s.completeCase(baseTime)
		_, err := s.service.Submit(at(baseTime), SubmitRequest{
			UserID: s.userID,
			Declared: map[models.DocumentType]map[string]string{
				models.DocumentBankAccount: {models.FieldAccountNumber: "999999999999", models.FieldIFSC: "HDFC0ABCDEF"},
			},
		})
		s.requireCode(err, dErrors.CodeConflict)
		s.Equal(string(models.DocumentBankAccount), dErrors.FieldOf(err))
	})

	s.Run("complete case submits", func() {
		c, err := s.service.Submit(at(baseTime), SubmitRequest{
			UserID: s.userID,
			Declared: map[models.DocumentType]map[string]string{
				models.DocumentPAN: {models.FieldPAN: "abcde1234f"},
			},
		})
		s.Require().NoError(err)
		s.Equal(models.CaseSubmitted, c.State)
		s.Equal(baseTime, *c.SubmittedAt)

		status, _ := s.status.Status(s.userID)
		s.Equal(models.CaseSubmitted, status)
		s.True(s.progress.Has(s.userID, ports.MilestoneKYCSubmitted))
		s.Contains(s.auditActions(), string(audit.EventCaseSubmitted))
	})

	s.Run("submitting twice is an invalid transition", func() {
		_, err := s.service.Submit(at(baseTime), SubmitRequest{UserID: s.userID})
		s.requireCode(err, dErrors.CodeInvalidTransition)
	})
}

func (s *KYCServiceSuite) TestConcurrentSubmitHasOneWinner() {
	s.completeCase(baseTime)
	barrier := &barrierStore{InMemory: s.cases}
	svc := s.newService(barrier)
	barrier.arm(2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(at(baseTime), SubmitRequest{UserID: s.userID})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case dErrors.HasCode(err, dErrors.CodeConcurrentModification):
			conflicts++
		}
	}
	s.Equal(1, wins)
	s.Equal(1, conflicts)
	s.Equal(models.CaseSubmitted, s.stored().State)
}

func (s *KYCServiceSuite) TestSubmitAbortsWhenBankProofRevokedMidway() {
	s.completeCase(baseTime)
	interleaved := &interleavingStore{InMemory: s.cases}
	svc := s.newService(interleaved)

	var revokeErr error
	revoke := func() {
		_, revokeErr = svc.Invalidate(at(baseTime), InvalidateRequest{
			UserID:       s.userID,
			DocumentType: models.DocumentBankAccount,
			Reason:       "switching banks",
		})
	}
	interleaved.afterRead.Store(&revoke)

	_, err := svc.Submit(at(baseTime), SubmitRequest{UserID: s.userID})
	s.Require().NoError(revokeErr)
	s.requireCode(err, dErrors.CodeConcurrentModification)

	stored := s.stored()
	s.NotEqual(models.CaseSubmitted, stored.State)
	s.Nil(stored.SubmittedAt)
	s.False(stored.Completion.BankDetailsComplete)
	s.Equal(models.StateRevoked, stored.Document(models.DocumentBankAccount).Status.State)
}

func (s *KYCServiceSuite) TestAcceptAgreementCreatesCase() {
	c, err := s.service.AcceptAgreement(at(baseTime), s.userID, id.CompanyID{}, "")
	s.Require().NoError(err)
	s.True(c.Completion.AgreementComplete)
	s.Equal("2024-01", c.AgreementVersion)
	s.Equal(baseTime, *c.AgreementAcceptedAt)
	s.Equal(models.CaseDraft, c.State)

	c, err = s.service.AcceptAgreement(at(baseTime.Add(time.Hour)), s.userID, id.CompanyID{}, "2025-02")
	s.Require().NoError(err)
	s.Equal("2025-02", c.AgreementVersion)
	s.Equal(int64(2), c.Version)
	s.True(s.progress.Has(s.userID, ports.MilestoneAgreementAccepted))
	s.Equal([]string{
		string(audit.EventCaseCreated),
		string(audit.EventAgreementAccepted),
		string(audit.EventAgreementAccepted),
	}, s.auditActions())
}

// =============================================================================
// Review
// =============================================================================

func (s *KYCServiceSuite) TestApprove() {
	c := s.submittedCase(baseTime)

	s.Run("reviewer required", func() {
		_, err := s.service.Approve(at(baseTime), ReviewRequest{CaseID: c.ID})
		s.requireCode(err, dErrors.CodeUnauthorized)
	})

	s.Run("unknown case", func() {
		_, err := s.service.Approve(at(baseTime), ReviewRequest{CaseID: id.NewCaseID(), Reviewer: "reviewer-1"})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("approves a submitted case", func() {
		approved, err := s.service.Approve(at(baseTime.Add(time.Hour)), ReviewRequest{CaseID: c.ID, Reviewer: "reviewer-1", Notes: "looks good"})
		s.Require().NoError(err)
		s.Equal(models.CaseVerified, approved.State)
		s.Equal("reviewer-1", approved.ReviewedBy)
		s.Equal("looks good", approved.VerificationNotes)

		status, _ := s.status.Status(s.userID)
		s.Equal(models.CaseVerified, status)
		s.Contains(s.notifier.kinds(), ports.NotificationApproved)
		s.True(s.progress.Has(s.userID, ports.MilestoneKYCApproved))

		trail, err := s.auditStore.ListByCase(context.Background(), c.ID)
		s.Require().NoError(err)
		last := trail[len(trail)-1]
		s.Equal(string(audit.EventCaseApproved), last.Action)
		s.Equal(string(models.CaseSubmitted), last.FromState)
		s.Equal(string(models.CaseVerified), last.ToState)
		s.Equal("reviewer-1", last.ActorID)
	})

	s.Run("approving again is an invalid transition", func() {
		_, err := s.service.Approve(at(baseTime), ReviewRequest{CaseID: c.ID, Reviewer: "reviewer-1"})
		s.requireCode(err, dErrors.CodeInvalidTransition)
	})
}

type txMarker struct{}

func (s *KYCServiceSuite) TestApproveSyncsStatusInsideTransaction() {
	tx := mocks.NewMockTxRunner(s.ctrl)
	tx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(context.WithValue(ctx, txMarker{}, true))
		}).AnyTimes()

	var synced []models.CaseState
	statusSync := mocks.NewMockUserStatusSync(s.ctrl)
	statusSync.EXPECT().SyncStatus(gomock.Any(), s.userID, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ id.UserID, st models.CaseState) error {
			s.Equal(true, ctx.Value(txMarker{}), "status sync runs inside the case transaction")
			synced = append(synced, st)
			return nil
		}).AnyTimes()

	s.service = s.newService(s.cases, WithTxRunner(tx), WithUserStatusSync(statusSync))
	s.approvedCase(baseTime)
	s.Equal([]models.CaseState{models.CaseSubmitted, models.CaseVerified}, synced)
}

func (s *KYCServiceSuite) TestApproveFailsWhenStatusSyncFails() {
	statusSync := mocks.NewMockUserStatusSync(s.ctrl)
	statusSync.EXPECT().SyncStatus(gomock.Any(), s.userID, models.CaseSubmitted).Return(nil)
	statusSync.EXPECT().SyncStatus(gomock.Any(), s.userID, models.CaseVerified).Return(errors.New("users db down"))
	s.service = s.newService(s.cases, WithUserStatusSync(statusSync))

	c := s.submittedCase(baseTime)
	_, err := s.service.Approve(at(baseTime), ReviewRequest{CaseID: c.ID, Reviewer: "reviewer-1"})
	s.requireCode(err, dErrors.CodeInternal)
	s.NotContains(s.notifier.kinds(), ports.NotificationApproved)
}

func (s *KYCServiceSuite) TestRejectAndResubmit() {
	c := s.submittedCase(baseTime)

	_, err := s.service.Reject(at(baseTime), ReviewRequest{CaseID: c.ID, Reviewer: "reviewer-1", Reason: "  "})
	s.requireCode(err, dErrors.CodeValidation)

	rejected, err := s.service.Reject(at(baseTime), ReviewRequest{CaseID: c.ID, Reviewer: "reviewer-1", Reason: "blurry bank proof"})
	s.Require().NoError(err)
	s.Equal(models.CaseRejected, rejected.State)
	s.Equal("blurry bank proof", rejected.RejectionReason)
	s.Require().NotEmpty(s.notifier.sent)
	last := s.notifier.sent[len(s.notifier.sent)-1]
	s.Equal(ports.NotificationRejected, last.Kind)
	s.Equal("blurry bank proof", last.Reason)

	resubmitted, err := s.service.Submit(at(baseTime.Add(time.Hour)), SubmitRequest{UserID: s.userID})
	s.Require().NoError(err)
	s.Equal(models.CaseSubmitted, resubmitted.State)
	s.Empty(resubmitted.RejectionReason)
}

// =============================================================================
// Invalidate
// =============================================================================

func (s *KYCServiceSuite) TestInvalidateBankOnVerifiedCase() {
	c := s.approvedCase(baseTime)
	when := baseTime.Add(24 * time.Hour)

	out, err := s.service.Invalidate(at(when), InvalidateRequest{
		CaseID:       c.ID,
		DocumentType: models.DocumentBankAccount,
		Reason:       "payout bounced",
		ActorID:      "ops-1",
	})
	s.Require().NoError(err)

	doc := out.Document(models.DocumentBankAccount)
	s.Equal(models.StateRevoked, doc.Status.State)
	s.False(doc.Verified)
	s.Nil(doc.Fields)
	s.Empty(doc.Status.InputHash)
	last := doc.History[len(doc.History)-1]
	s.Equal(models.StateRevoked, last.State)
	s.Equal("payout bounced", last.Reason)
	s.Equal("ops-1", last.ActorID)

	s.Equal(models.CaseActionRequired, out.State)
	s.False(out.Completion.BankDetailsComplete)
	status, _ := s.status.Status(s.userID)
	s.Equal(models.CaseActionRequired, status)
	s.Contains(s.auditActions(), string(audit.EventDocumentRevoked))

	s.Run("reason required", func() {
		_, err := s.service.Invalidate(at(when), InvalidateRequest{CaseID: c.ID, DocumentType: models.DocumentPAN})
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("document never submitted", func() {
		_, err := s.service.Invalidate(at(when), InvalidateRequest{CaseID: c.ID, DocumentType: models.DocumentAadhaar, Reason: "fraud"})
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *KYCServiceSuite) TestInvalidateOwnDocument() {
	s.completeCase(baseTime)
	when := baseTime.Add(time.Hour)

	out, err := s.service.Invalidate(at(when), InvalidateRequest{
		UserID:       s.userID,
		DocumentType: models.DocumentPAN,
		Reason:       "typo in name",
	})
	s.Require().NoError(err)
	s.Equal(models.StateRevoked, out.Document(models.DocumentPAN).Status.State)
	s.Equal(models.CaseDraft, out.State)
	s.False(out.Completion.PersonalComplete)

	last := out.Document(models.DocumentPAN).History
	s.Equal(s.userID.String(), last[len(last)-1].ActorID, "seller is the actor when none is given")

	s.Run("case id is ignored for a seller", func() {
		other := id.UserID(uuid.New())
		_, err := s.service.Invalidate(at(when), InvalidateRequest{
			UserID:       other,
			CaseID:       out.ID,
			DocumentType: models.DocumentBankAccount,
			Reason:       "not mine",
		})
		s.requireCode(err, dErrors.CodeNotFound)
		s.Equal(models.StateVerified, s.stored().Document(models.DocumentBankAccount).Status.State)
	})
}

// =============================================================================
// Expiry
// =============================================================================

func (s *KYCServiceSuite) TestLazyExpiryOnRead() {
	s.approvedCase(baseTime)
	later := baseTime.Add(400 * 24 * time.Hour)

	view, err := s.service.GetCase(at(later), s.userID)
	s.Require().NoError(err)
	s.Equal(models.CaseExpired, view.State)
	s.Equal(models.StateExpired, view.Document(models.DocumentBankAccount).Status.State)
	s.Equal(models.StateExpired, view.Document(models.DocumentGSTIN).Status.State)
	s.Equal(models.StateVerified, view.Document(models.DocumentPAN).Status.State)
	s.False(view.Completion.BankDetailsComplete)

	stored := s.stored()
	s.Equal(models.CaseVerified, stored.State, "reads never persist expiry")
	s.Equal(models.StateVerified, stored.Document(models.DocumentBankAccount).Status.State)
}

func (s *KYCServiceSuite) TestExpireCase() {
	c := s.approvedCase(baseTime)
	later := baseTime.Add(400 * 24 * time.Hour)

	due, err := s.service.ExpiringCases(at(baseTime.Add(time.Hour)), 10)
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.service.ExpiringCases(at(later), 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(c.ID, due[0].ID)

	expired, err := s.service.ExpireCase(at(later), c.ID)
	s.Require().NoError(err)
	s.True(expired)

	stored := s.stored()
	s.Equal(models.CaseExpired, stored.State)
	bank := stored.Document(models.DocumentBankAccount)
	s.Equal(models.StateExpired, bank.Status.State)
	s.Equal(models.ReasonExpired, bank.History[len(bank.History)-1].Reason)

	status, _ := s.status.Status(s.userID)
	s.Equal(models.CaseExpired, status)
	s.Contains(s.notifier.kinds(), ports.NotificationExpired)
	s.Contains(s.auditActions(), string(audit.EventDocumentExpired))
	s.Contains(s.auditActions(), string(audit.EventCaseExpired))

	again, err := s.service.ExpireCase(at(later), c.ID)
	s.Require().NoError(err)
	s.False(again)
}

func (s *KYCServiceSuite) TestMutationPersistsPendingExpiry() {
	s.submittedCase(baseTime)
	later := baseTime.Add(400 * 24 * time.Hour)

	// Re-verifying PAN on a case with an expired bank proof persists the
	// expiry and the SUBMITTED to ACTION_REQUIRED cascade.
	res := s.verify(later, models.DocumentPAN, validFields(models.DocumentPAN))
	s.Equal(models.CaseActionRequired, res.Case.State)

	stored := s.stored()
	s.Equal(models.CaseActionRequired, stored.State)
	s.Equal(models.StateExpired, stored.Document(models.DocumentBankAccount).Status.State)
}

// =============================================================================
// Views
// =============================================================================

func (s *KYCServiceSuite) TestListAndCount() {
	s.submittedCase(baseTime)
	other := id.UserID(uuid.New())
	_, err := s.service.AcceptAgreement(at(baseTime.Add(time.Hour)), other, id.CompanyID{}, "")
	s.Require().NoError(err)

	page, err := s.service.ListCases(at(baseTime), models.CaseFilter{States: []models.CaseState{models.CaseSubmitted}})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Require().Len(page.Cases, 1)
	s.Equal(s.userID, page.Cases[0].UserID)

	page, err = s.service.ListCases(at(baseTime), models.CaseFilter{Search: "asha"})
	s.Require().NoError(err)
	s.Equal(1, page.Total)

	_, err = s.service.ListCases(at(baseTime), models.CaseFilter{States: []models.CaseState{"PENDING"}})
	s.requireCode(err, dErrors.CodeValidation)

	from, to := baseTime, baseTime.Add(-time.Hour)
	_, err = s.service.ListCases(at(baseTime), models.CaseFilter{CreatedFrom: &from, CreatedTo: &to})
	s.requireCode(err, dErrors.CodeValidation)

	counts, err := s.service.CountByState(at(baseTime))
	s.Require().NoError(err)
	s.Equal(1, counts[models.CaseSubmitted])
	s.Equal(1, counts[models.CaseDraft])
	s.Contains(counts, models.CaseRejected)
	s.Equal(0, counts[models.CaseRejected])
}

func (s *KYCServiceSuite) TestGetCaseByIDNotFound() {
	_, err := s.service.GetCaseByID(at(baseTime), id.NewCaseID())
	s.requireCode(err, dErrors.CodeNotFound)
}

func (s *KYCServiceSuite) TestLookupIFSC() {
	details, err := s.service.LookupIFSC(at(baseTime), "hdfc0abcdef")
	s.Require().NoError(err)
	s.Equal("HDFC Bank", details.Bank)
	s.Equal("HDFC0ABCDEF", details.IFSC)

	_, err = s.service.LookupIFSC(at(baseTime), "not-a-code")
	s.requireCode(err, dErrors.CodeValidation)
}
