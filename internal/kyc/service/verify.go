package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	"onboard/internal/kyc/providers"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	audit "onboard/pkg/platform/audit"
	"onboard/pkg/requestcontext"
)

// VerifyRequest asks the provider to prove one document for a user.
type VerifyRequest struct {
	UserID       id.UserID
	CompanyID    id.CompanyID
	DocumentType models.DocumentType
	Fields       map[string]string
}

// VerifyResult is the case after a determinate provider answer. A rejected
// document is a result, not an error.
type VerifyResult struct {
	Case      *models.Case
	Document  *models.DocumentRecord
	AttemptID id.AttemptID
	// Changed is false for a same-input retry against a still valid proof.
	Changed bool
}

// Verified reports whether the document is effectively VERIFIED.
func (r *VerifyResult) Verified() bool {
	return r.Document != nil && r.Document.Status.State == models.StateVerified
}

// Verify validates the input, calls the provider outside any case lock and
// applies the outcome with compare-and-swap. Every provider call is recorded
// as an attempt, including transport failures.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (_ *VerifyResult, err error) {
	ctx, span := s.startSpan(ctx, "kyc.Verify",
		attribute.String("user_id", req.UserID.String()),
		attribute.String("document_type", string(req.DocumentType)),
	)
	defer func() { endSpan(span, err) }()

	if req.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}
	if !req.DocumentType.IsValid() {
		return nil, dErrors.NewField(dErrors.CodeValidation, "document_type", "unsupported document type")
	}
	fields, err := models.NormalizeFields(req.DocumentType, req.Fields)
	if err != nil {
		return nil, err
	}
	if s.throttle != nil && !s.throttle.Allow(ctx, req.UserID, req.DocumentType) {
		s.metrics.IncrementThrottleRejected(string(req.DocumentType))
		s.emitForUser(ctx, req, audit.Event{Action: string(audit.EventVerificationThrottle)})
		return nil, dErrors.New(dErrors.CodeRateLimited, "too many verification attempts, try again later")
	}

	// Detached: an abandoned request still records its outcome.
	ctx = context.WithoutCancel(ctx)
	attemptID := id.NewAttemptID()
	attempt := newAttempt(ctx, req, attemptID, s.provider.ID())

	result, err := s.callProvider(ctx, req.DocumentType, fields)
	if err != nil {
		attempt.Status = models.AttemptError
		attempt.ErrorCode = string(providers.GetCategory(err))
		attempt.ErrorMessage = err.Error()
		s.attempts.Record(ctx, attempt)
		s.metrics.RecordVerification(string(req.DocumentType), "error")
		s.emitForUser(ctx, req, audit.Event{
			Action:    string(audit.EventProviderUnavailable),
			Reason:    string(providers.GetCategory(err)),
			AttemptID: attemptID.String(),
		})
		s.logger.WarnContext(ctx, "kyc provider call failed",
			"user_id", req.UserID.String(),
			"document_type", req.DocumentType,
			"attempt_id", attemptID.String(),
			"retryable", providers.IsRetryable(err),
			"error", err,
		)
		return nil, providers.ToDomainError(err)
	}

	attempt.Status = attemptStatus(result)
	if !result.IsValid {
		attempt.ErrorCode = string(result.FailureClass)
		attempt.ErrorMessage = result.Reason
	}
	s.attempts.Record(ctx, attempt)

	now := s.now(ctx)
	v := models.Verification{
		Valid:        result.IsValid,
		FailureClass: result.FailureClass,
		Reason:       result.Reason,
		Provider:     providerID(result, s.provider),
		AttemptID:    attemptID,
		InputHash:    models.CreateInputHash(req.DocumentType, fields),
		Fields:       fields,
		Payload:      result.Payload,
		CheckedAt:    now,
		ActorID:      req.UserID.String(),
	}
	if result.IsValid {
		v.ExpiresAt = s.expiry.BuildExpiryDate(req.DocumentType, now)
	}

	var out *VerifyResult
	for i := 1; ; i++ {
		out, err = s.applyVerification(ctx, req, v)
		if err == nil || !isVersionRace(err) || i == maxApplyAttempts {
			break
		}
	}
	if err != nil {
		return nil, s.persistError(ctx, err, "verify")
	}
	return out, nil
}

func (s *Service) callProvider(ctx context.Context, docType models.DocumentType, fields map[string]string) (*providers.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	start := time.Now()
	defer s.metrics.ObserveProvider(string(docType), start)
	return s.provider.Verify(ctx, docType, fields)
}

func (s *Service) applyVerification(ctx context.Context, req VerifyRequest, v models.Verification) (*VerifyResult, error) {
	c, created, err := s.loadOrNew(ctx, req.UserID, req.CompanyID, v.CheckedAt)
	if err != nil {
		return nil, err
	}
	expected := c.Version
	cs := &changeSet{created: created, actorID: req.UserID.String()}
	cs.materialize(c, v.CheckedAt)

	change := c.ApplyVerification(req.DocumentType, v)
	cs.add(change.Transition)
	if change.Regressed {
		cs.reason = string(req.DocumentType) + " must be verified again"
	}
	if change.StateChanged {
		doc := c.Document(req.DocumentType)
		action := audit.EventDocumentVerified
		if !v.Valid {
			action = audit.EventDocumentFailed
		}
		cs.events = append(cs.events, audit.Event{
			Action:       string(action),
			DocumentType: string(req.DocumentType),
			ToState:      string(doc.Status.State),
			Reason:       v.Reason,
			ActorID:      v.ActorID,
			InputHash:    v.InputHash,
			AttemptID:    v.AttemptID.String(),
		})
	}
	if err := s.persist(ctx, c, expected, cs); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, c, cs)
	s.afterVerification(ctx, c, req, v, change)

	view := c.View(v.CheckedAt)
	return &VerifyResult{
		Case:      view,
		Document:  view.Document(req.DocumentType),
		AttemptID: v.AttemptID,
		Changed:   change.StateChanged,
	}, nil
}

func (s *Service) afterVerification(ctx context.Context, c *models.Case, req VerifyRequest, v models.Verification, change models.DocumentChange) {
	doc := c.Document(req.DocumentType)
	outcome := "unchanged"
	if change.StateChanged {
		outcome = strings.ToLower(string(doc.Status.State))
	}
	s.metrics.RecordVerification(string(req.DocumentType), outcome)
	s.logger.InfoContext(ctx, "kyc document verification applied",
		"user_id", req.UserID.String(),
		"document_type", req.DocumentType,
		"attempt_id", v.AttemptID.String(),
		"state", doc.Status.State,
		"changed", change.StateChanged,
	)

	if !v.Valid || !change.StateChanged {
		return
	}
	s.track(ctx, c, ports.MilestoneDocumentVerified)
	if req.DocumentType == models.DocumentBankAccount && s.payout != nil {
		err := s.payout.SyncBankAccount(ctx, ports.BankAccountSync{
			UserID:            c.UserID,
			CompanyID:         c.CompanyID,
			AccountNumber:     v.Fields[models.FieldAccountNumber],
			IFSC:              v.Fields[models.FieldIFSC],
			AccountHolderName: v.Fields[models.FieldAccountHolderName],
			IdempotencyKey:    v.InputHash,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to sync bank account to payout provider",
				"user_id", c.UserID.String(),
				"attempt_id", v.AttemptID.String(),
				"error", err,
			)
		}
	}
}

// emitForUser audits events that happen before a case is loaded.
func (s *Service) emitForUser(ctx context.Context, req VerifyRequest, event audit.Event) {
	c := &models.Case{UserID: req.UserID, CompanyID: req.CompanyID}
	event.DocumentType = string(req.DocumentType)
	event.ActorID = req.UserID.String()
	s.emit(ctx, c, event)
}

func newAttempt(ctx context.Context, req VerifyRequest, attemptID id.AttemptID, provider string) models.VerificationAttempt {
	meta := map[string]string{}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		meta["request_id"] = reqID
	}
	return models.VerificationAttempt{
		ID:           attemptID,
		UserID:       req.UserID,
		CompanyID:    req.CompanyID,
		DocumentType: req.DocumentType,
		Provider:     provider,
		Metadata:     meta,
		IPAddress:    requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
		CreatedAt:    requestcontext.Now(ctx).UTC(),
	}
}

func attemptStatus(r *providers.Result) models.AttemptStatus {
	switch {
	case r.IsValid:
		return models.AttemptSuccess
	case r.FailureClass == models.FailureHard:
		return models.AttemptHardFailed
	default:
		return models.AttemptSoftFailed
	}
}

func providerID(r *providers.Result, p providers.Provider) string {
	if r.ProviderID != "" {
		return r.ProviderID
	}
	return p.ID()
}
