package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	audit "onboard/pkg/platform/audit"
)

// SubmitRequest sends a case for compliance review.
type SubmitRequest struct {
	UserID id.UserID
	// Declared holds the values on the final form per document. Documents
	// left out are taken as their verified values.
	Declared map[models.DocumentType]map[string]string
}

// Submit moves the user's case to SUBMITTED once every section is complete
// and every declared value hash-matches its verified proof.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (_ *models.Case, err error) {
	ctx, span := s.startSpan(ctx, "kyc.Submit", attribute.String("user_id", req.UserID.String()))
	defer func() { endSpan(span, err) }()

	for t := range req.Declared {
		if !t.IsValid() {
			return nil, dErrors.NewField(dErrors.CodeValidation, "document_type", "unsupported document type")
		}
	}

	c, err := s.findByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	now := s.now(ctx)
	expected := c.Version
	cs := &changeSet{actorID: req.UserID.String()}
	cs.materialize(c, now)

	t, err := c.Submit(req.Declared, now)
	if err != nil {
		return nil, err
	}
	cs.add(t)
	if err := s.persist(ctx, c, expected, cs); err != nil {
		return nil, s.persistError(ctx, err, "submit")
	}
	s.afterCommit(ctx, c, cs)
	s.logger.InfoContext(ctx, "kyc case submitted",
		"user_id", c.UserID.String(),
		"case_id", c.ID.String(),
	)
	return c.View(now), nil
}

// AcceptAgreement records the seller agreement, creating the case if needed.
// An empty version records the current agreement version.
func (s *Service) AcceptAgreement(ctx context.Context, userID id.UserID, companyID id.CompanyID, version string) (_ *models.Case, err error) {
	ctx, span := s.startSpan(ctx, "kyc.AcceptAgreement", attribute.String("user_id", userID.String()))
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}
	version = strings.TrimSpace(version)
	if version == "" {
		version = s.agreementVersion
	}

	now := s.now(ctx)
	c, created, err := s.loadOrNew(ctx, userID, companyID, now)
	if err != nil {
		return nil, err
	}
	expected := c.Version
	cs := &changeSet{created: created, actorID: userID.String()}
	cs.materialize(c, now)
	c.AcceptAgreement(version, now)
	cs.events = append(cs.events, audit.Event{
		Action:  string(audit.EventAgreementAccepted),
		Reason:  version,
		ActorID: userID.String(),
	})

	if err := s.persist(ctx, c, expected, cs); err != nil {
		return nil, s.persistError(ctx, err, "accept_agreement")
	}
	s.afterCommit(ctx, c, cs)
	s.track(ctx, c, ports.MilestoneAgreementAccepted)
	return c.View(now), nil
}
