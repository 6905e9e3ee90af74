package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
)

// ExpiringCases lists up to limit cases holding a verified proof that is past
// its expiry at request time.
func (s *Service) ExpiringCases(ctx context.Context, limit int) ([]*models.Case, error) {
	cases, err := s.cases.ListExpiring(ctx, s.now(ctx), limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expiring kyc cases")
	}
	return cases, nil
}

// ExpireCase persists lazily computed expiry for one case: each expired proof
// gets an audited history entry and the case cascades VERIFIED to EXPIRED or
// SUBMITTED to ACTION_REQUIRED. Returns false when nothing had expired.
func (s *Service) ExpireCase(ctx context.Context, caseID id.CaseID) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "kyc.ExpireCase", attribute.String("case_id", caseID.String()))
	defer func() { endSpan(span, err) }()

	c, err := s.findByID(ctx, caseID)
	if err != nil {
		return false, err
	}
	now := s.now(ctx)
	expected := c.Version
	cs := &changeSet{actorID: SystemActor, reason: models.ReasonExpired}
	cs.materialize(c, now)
	if len(cs.expired) == 0 {
		return false, nil
	}
	if err := s.persist(ctx, c, expected, cs); err != nil {
		return false, s.persistError(ctx, err, "expire")
	}
	s.afterCommit(ctx, c, cs)
	s.logger.InfoContext(ctx, "kyc documents expired",
		"case_id", c.ID.String(),
		"user_id", c.UserID.String(),
		"documents", cs.expired,
		"state", c.State,
	)
	return true, nil
}
