// Package ports defines the KYC module's outbound collaborators. Adapters
// live in internal/kyc/adapters; the service depends only on these
// interfaces.
package ports

import (
	"context"
	"time"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/audit"
)

// AuditPublisher emits domain audit events. Failures are logged by callers,
// never returned to users.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AttemptRecorder records provider calls without blocking.
type AttemptRecorder interface {
	Record(ctx context.Context, attempt models.VerificationAttempt)
}

// AttemptThrottle counts one provider attempt and reports whether it is allowed.
type AttemptThrottle interface {
	Allow(ctx context.Context, userID id.UserID, docType models.DocumentType) bool
}

// TxRunner runs fn atomically. Stores and adapters that honour the
// transaction in ctx join it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserStatusSync mirrors the case state onto the user account so other
// modules can gate trading on it.
type UserStatusSync interface {
	SyncStatus(ctx context.Context, userID id.UserID, status models.CaseState) error
}

// NotificationKind names a user-facing KYC notification.
type NotificationKind string

const (
	NotificationApproved       NotificationKind = "kyc_approved"
	NotificationRejected       NotificationKind = "kyc_rejected"
	NotificationActionRequired NotificationKind = "kyc_action_required"
	NotificationExpired        NotificationKind = "kyc_expired"
)

// Notification is queued for email delivery by the notification service.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	UserID     id.UserID        `json:"user_id"`
	CompanyID  id.CompanyID     `json:"company_id,omitempty"`
	CaseID     id.CaseID        `json:"case_id"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Notifier queues notifications. Delivery is asynchronous.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Milestone is an onboarding progress step.
type Milestone string

const (
	MilestoneDocumentVerified  Milestone = "kyc_document_verified"
	MilestoneAgreementAccepted Milestone = "agreement_accepted"
	MilestoneKYCSubmitted      Milestone = "kyc_submitted"
	MilestoneKYCApproved       Milestone = "kyc_approved"
)

// ProgressTracker records onboarding milestones. Recording is idempotent.
type ProgressTracker interface {
	Track(ctx context.Context, userID id.UserID, milestone Milestone) error
}

// BankAccountSync carries verified bank details to the payout provider.
// IdempotencyKey is the input hash, so retries for the same proof collapse.
type BankAccountSync struct {
	UserID            id.UserID    `json:"user_id"`
	CompanyID         id.CompanyID `json:"company_id,omitempty"`
	AccountNumber     string       `json:"account_number"`
	IFSC              string       `json:"ifsc"`
	AccountHolderName string       `json:"account_holder_name,omitempty"`
	IdempotencyKey    string       `json:"-"`
}

// PayoutSync propagates a verified bank account to the payout provider.
type PayoutSync interface {
	SyncBankAccount(ctx context.Context, account BankAccountSync) error
}
