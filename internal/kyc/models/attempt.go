package models

import (
	"time"

	id "onboard/pkg/domain"
)

// AttemptStatus is the outcome of one provider call.
type AttemptStatus string

const (
	AttemptSuccess    AttemptStatus = "success"
	AttemptSoftFailed AttemptStatus = "soft_failed"
	AttemptHardFailed AttemptStatus = "hard_failed"
	AttemptError      AttemptStatus = "error"
)

// VerificationAttempt records one external provider call for compliance.
// Attempts reference the user, not the case, so they can be recorded even
// when the case write fails. Never mutated.
type VerificationAttempt struct {
	ID           id.AttemptID      `json:"id"`
	UserID       id.UserID         `json:"user_id"`
	CompanyID    id.CompanyID      `json:"company_id"`
	DocumentType DocumentType      `json:"document_type"`
	Provider     string            `json:"provider"`
	Status       AttemptStatus     `json:"status"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
