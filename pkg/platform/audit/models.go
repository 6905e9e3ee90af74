package audit

import (
	"time"

	id "onboard/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and topic routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: case
	// decisions, proof revocations and agreement acceptance. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine lifecycle activity useful for
	// debugging and funnel reporting.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category     EventCategory
	Timestamp    time.Time
	UserID       id.UserID
	CompanyID    id.CompanyID
	CaseID       id.CaseID
	Action       string
	DocumentType string
	// FromState and ToState record the case or document transition, if any.
	FromState string
	ToState   string
	Reason    string
	RequestID string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. the compliance reviewer approving a case.
	ActorID string
	// InputHash is the fingerprint of the proven fields, never the raw values.
	InputHash string
	AttemptID string
}

type AuditEvent string

const (
	// Document events
	EventDocumentVerified     AuditEvent = "document_verified"
	EventDocumentFailed       AuditEvent = "document_verification_failed"
	EventDocumentExpired      AuditEvent = "document_expired"
	EventDocumentRevoked      AuditEvent = "document_revoked"
	EventProviderUnavailable  AuditEvent = "provider_unavailable"
	EventVerificationThrottle AuditEvent = "verification_throttled"

	// Case events
	EventCaseCreated        AuditEvent = "case_created"
	EventCaseSubmitted      AuditEvent = "case_submitted"
	EventCaseApproved       AuditEvent = "case_approved"
	EventCaseRejected       AuditEvent = "case_rejected"
	EventCaseActionRequired AuditEvent = "case_action_required"
	EventCaseExpired        AuditEvent = "case_expired"
	EventAgreementAccepted  AuditEvent = "agreement_accepted"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDocumentVerified:   CategoryCompliance,
	EventDocumentFailed:     CategoryCompliance,
	EventDocumentExpired:    CategoryCompliance,
	EventDocumentRevoked:    CategoryCompliance,
	EventCaseSubmitted:      CategoryCompliance,
	EventCaseApproved:       CategoryCompliance,
	EventCaseRejected:       CategoryCompliance,
	EventCaseActionRequired: CategoryCompliance,
	EventCaseExpired:        CategoryCompliance,
	EventAgreementAccepted:  CategoryCompliance,

	EventCaseCreated:          CategoryOperations,
	EventProviderUnavailable:  CategoryOperations,
	EventVerificationThrottle: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
