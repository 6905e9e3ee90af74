package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
)

// ReviewRequest is a compliance decision on a submitted case.
type ReviewRequest struct {
	CaseID   id.CaseID
	Reviewer string
	// Notes are stored on approval; Reason is mandatory for rejection.
	Notes  string
	Reason string
}

// Approve moves a SUBMITTED case to VERIFIED. The case write and the user
// status mirror commit together.
func (s *Service) Approve(ctx context.Context, req ReviewRequest) (_ *models.Case, err error) {
	ctx, span := s.startSpan(ctx, "kyc.Approve", attribute.String("case_id", req.CaseID.String()))
	defer func() { endSpan(span, err) }()

	return s.review(ctx, req, "approve", func(c *models.Case, now time.Time) (models.Transition, error) {
		return c.Approve(req.Reviewer, strings.TrimSpace(req.Notes), now)
	})
}

// Reject moves a case to REJECTED. The reason is shown to the seller and
// cleared on resubmission.
func (s *Service) Reject(ctx context.Context, req ReviewRequest) (_ *models.Case, err error) {
	ctx, span := s.startSpan(ctx, "kyc.Reject", attribute.String("case_id", req.CaseID.String()))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(req.Reason) == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "reason", "rejection reason is required")
	}
	return s.review(ctx, req, "reject", func(c *models.Case, now time.Time) (models.Transition, error) {
		return c.Reject(req.Reviewer, req.Reason, now)
	})
}

func (s *Service) review(ctx context.Context, req ReviewRequest, op string, decide func(*models.Case, time.Time) (models.Transition, error)) (*models.Case, error) {
	if strings.TrimSpace(req.Reviewer) == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer is required")
	}
	c, err := s.findByID(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	now := s.now(ctx)
	expected := c.Version
	cs := &changeSet{actorID: req.Reviewer, reason: strings.TrimSpace(req.Reason)}
	cs.materialize(c, now)

	t, err := decide(c, now)
	if err != nil {
		return nil, err
	}
	cs.add(t)
	if err := s.persist(ctx, c, expected, cs); err != nil {
		return nil, s.persistError(ctx, err, op)
	}
	s.afterCommit(ctx, c, cs)
	s.logger.InfoContext(ctx, "kyc case reviewed",
		"operation", op,
		"case_id", c.ID.String(),
		"reviewer", req.Reviewer,
		"state", c.State,
	)
	return c.View(now), nil
}
