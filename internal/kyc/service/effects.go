package service

import (
	"context"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	audit "onboard/pkg/platform/audit"
)

var transitionEvents = map[models.CaseState]audit.AuditEvent{
	models.CaseSubmitted:      audit.EventCaseSubmitted,
	models.CaseVerified:       audit.EventCaseApproved,
	models.CaseRejected:       audit.EventCaseRejected,
	models.CaseActionRequired: audit.EventCaseActionRequired,
	models.CaseExpired:        audit.EventCaseExpired,
}

var transitionNotifications = map[models.CaseState]ports.NotificationKind{
	models.CaseVerified:       ports.NotificationApproved,
	models.CaseRejected:       ports.NotificationRejected,
	models.CaseActionRequired: ports.NotificationActionRequired,
	models.CaseExpired:        ports.NotificationExpired,
}

var transitionMilestones = map[models.CaseState]ports.Milestone{
	models.CaseSubmitted: ports.MilestoneKYCSubmitted,
	models.CaseVerified:  ports.MilestoneKYCApproved,
}

// afterCommit runs the side effects of a committed mutation. Failures are
// logged and counted, never returned.
func (s *Service) afterCommit(ctx context.Context, c *models.Case, cs *changeSet) {
	if cs.created {
		s.emit(ctx, c, audit.Event{Action: string(audit.EventCaseCreated), ActorID: cs.actorID})
	}
	for _, t := range cs.expired {
		s.metrics.IncrementDocumentsExpired(string(t))
		doc := c.Document(t)
		s.emit(ctx, c, audit.Event{
			Action:       string(audit.EventDocumentExpired),
			DocumentType: string(t),
			FromState:    string(models.StateVerified),
			ToState:      string(models.StateExpired),
			Reason:       models.ReasonExpired,
			ActorID:      SystemActor,
			InputHash:    doc.Status.InputHash,
			AttemptID:    doc.Status.AttemptID.String(),
		})
	}
	for _, event := range cs.events {
		s.emit(ctx, c, event)
	}
	for _, step := range cs.steps {
		s.metrics.RecordTransition(string(step.From), string(step.To))
		if action, ok := transitionEvents[step.To]; ok {
			s.emit(ctx, c, audit.Event{
				Action:    string(action),
				FromState: string(step.From),
				ToState:   string(step.To),
				Reason:    cs.reason,
				ActorID:   cs.actorID,
			})
		}
		if milestone, ok := transitionMilestones[step.To]; ok {
			s.track(ctx, c, milestone)
		}
	}
	// Only the final state is worth an email.
	if len(cs.steps) > 0 {
		final := cs.steps[len(cs.steps)-1].To
		if kind, ok := transitionNotifications[final]; ok {
			s.notify(ctx, c, kind, cs.reason)
		}
	}
}

func (s *Service) emit(ctx context.Context, c *models.Case, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.UserID = c.UserID
	event.CompanyID = c.CompanyID
	event.CaseID = c.ID
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.metrics.IncrementAuditFailures()
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"user_id", c.UserID.String(),
			"case_id", c.ID.String(),
			"error", err,
		)
	}
}

func (s *Service) notify(ctx context.Context, c *models.Case, kind ports.NotificationKind, reason string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Notify(ctx, ports.Notification{
		Kind:       kind,
		UserID:     c.UserID,
		CompanyID:  c.CompanyID,
		CaseID:     c.ID,
		Reason:     reason,
		OccurredAt: c.UpdatedAt,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to queue kyc notification",
			"kind", kind,
			"user_id", c.UserID.String(),
			"error", err,
		)
	}
}

func (s *Service) track(ctx context.Context, c *models.Case, milestone ports.Milestone) {
	if s.progress == nil {
		return
	}
	if err := s.progress.Track(ctx, c.UserID, milestone); err != nil {
		s.logger.WarnContext(ctx, "failed to record onboarding milestone",
			"milestone", milestone,
			"user_id", c.UserID.String(),
			"error", err,
		)
	}
}
