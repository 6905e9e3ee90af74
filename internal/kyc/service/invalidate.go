package service

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	audit "onboard/pkg/platform/audit"
)

// InvalidateRequest revokes a proof, e.g. after a payout bounce or a
// compliance finding. A seller revoking their own proof sets UserID and the
// case is resolved from it; CaseID is ignored then.
type InvalidateRequest struct {
	CaseID       id.CaseID
	UserID       id.UserID
	DocumentType models.DocumentType
	Reason       string
	ActorID      string
}

// Invalidate clears the document's sensitive fields, marks it REVOKED and
// forces a progressed case back to ACTION_REQUIRED.
func (s *Service) Invalidate(ctx context.Context, req InvalidateRequest) (_ *models.Case, err error) {
	ctx, span := s.startSpan(ctx, "kyc.Invalidate",
		attribute.String("case_id", req.CaseID.String()),
		attribute.String("document_type", string(req.DocumentType)),
	)
	defer func() { endSpan(span, err) }()

	if !req.DocumentType.IsValid() {
		return nil, dErrors.NewField(dErrors.CodeValidation, "document_type", "unsupported document type")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, dErrors.NewField(dErrors.CodeValidation, "reason", "reason is required")
	}
	actor := req.ActorID
	if actor == "" && !req.UserID.IsNil() {
		actor = req.UserID.String()
	}
	if actor == "" {
		actor = SystemActor
	}

	c, err := s.invalidateTarget(ctx, req)
	if err != nil {
		return nil, err
	}
	now := s.now(ctx)
	expected := c.Version
	cs := &changeSet{actorID: actor, reason: reason}
	cs.materialize(c, now)

	previous := models.ResolveVerificationState(c.Document(req.DocumentType), now)
	change, err := c.Invalidate(req.DocumentType, reason, actor, now)
	if err != nil {
		return nil, err
	}
	cs.add(change.Transition)
	cs.events = append(cs.events, audit.Event{
		Action:       string(audit.EventDocumentRevoked),
		DocumentType: string(req.DocumentType),
		FromState:    string(previous),
		ToState:      string(models.StateRevoked),
		Reason:       reason,
		ActorID:      actor,
	})
	if err := s.persist(ctx, c, expected, cs); err != nil {
		return nil, s.persistError(ctx, err, "invalidate")
	}
	s.afterCommit(ctx, c, cs)
	s.logger.InfoContext(ctx, "kyc document invalidated",
		"case_id", c.ID.String(),
		"document_type", req.DocumentType,
		"actor", actor,
	)
	return c.View(now), nil
}

func (s *Service) invalidateTarget(ctx context.Context, req InvalidateRequest) (*models.Case, error) {
	if !req.UserID.IsNil() {
		return s.findByUser(ctx, req.UserID)
	}
	return s.findByID(ctx, req.CaseID)
}
