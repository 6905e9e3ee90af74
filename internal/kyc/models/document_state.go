package models

import (
	"time"

	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
)

// DocumentType identifies an independently verifiable proof.
type DocumentType string

const (
	DocumentPAN         DocumentType = "pan"
	DocumentAadhaar     DocumentType = "aadhaar"
	DocumentGSTIN       DocumentType = "gstin"
	DocumentBankAccount DocumentType = "bankAccount"
)

// DocumentTypes lists every supported document type in display order.
var DocumentTypes = []DocumentType{DocumentPAN, DocumentAadhaar, DocumentGSTIN, DocumentBankAccount}

func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentPAN, DocumentAadhaar, DocumentGSTIN, DocumentBankAccount:
		return true
	}
	return false
}

func (t DocumentType) String() string { return string(t) }

// ParseDocumentType validates a document type at a trust boundary.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.NewField(dErrors.CodeValidation, "document_type", "unsupported document type")
	}
	return t, nil
}

// VerificationState is the proof status of a single document.
type VerificationState string

const (
	StateNotStarted VerificationState = "NOT_STARTED"
	StateVerified   VerificationState = "VERIFIED"
	StateSoftFailed VerificationState = "SOFT_FAILED"
	StateHardFailed VerificationState = "HARD_FAILED"
	StateExpired    VerificationState = "EXPIRED"
	StateRevoked    VerificationState = "REVOKED"
)

// VerificationStatus is the proof envelope of a document. InputHash is only
// trustworthy while State is VERIFIED; otherwise it is the last attempted input.
type VerificationStatus struct {
	State         VerificationState `json:"state"`
	Provider      string            `json:"provider,omitempty"`
	VerifiedAt    *time.Time        `json:"verified_at,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	AttemptID     id.AttemptID      `json:"attempt_id"`
	InputHash     string            `json:"input_hash,omitempty"`
	LastCheckedAt time.Time         `json:"last_checked_at"`
	FailureReason string            `json:"failure_reason,omitempty"`
}

// DocumentRecord is one document inside a case.
//
// Invariants:
//   - Verified == (Status.State == StateVerified)
//   - History is append-only and time-ordered
type DocumentRecord struct {
	Type       DocumentType       `json:"type"`
	Fields     map[string]string  `json:"fields,omitempty"`
	Verified   bool               `json:"verified"`
	VerifiedAt *time.Time         `json:"verified_at,omitempty"`
	Payload    map[string]any     `json:"payload,omitempty"`
	Status     VerificationStatus `json:"status"`
	History    []HistoryEntry     `json:"history"`
}

// NewDocumentRecord returns an empty NOT_STARTED record.
func NewDocumentRecord(t DocumentType) *DocumentRecord {
	return &DocumentRecord{
		Type:   t,
		Status: VerificationStatus{State: StateNotStarted},
	}
}

// ResolveVerificationState returns the effective state at now. A VERIFIED
// record past its expiry reads as EXPIRED; the record is not mutated.
func ResolveVerificationState(doc *DocumentRecord, now time.Time) VerificationState {
	if doc == nil {
		return StateNotStarted
	}
	if doc.Status.State == StateVerified && doc.Status.ExpiresAt != nil && !doc.Status.ExpiresAt.After(now) {
		return StateExpired
	}
	if doc.Status.State == "" {
		return StateNotStarted
	}
	return doc.Status.State
}

// IsVerified reports whether the document is effectively VERIFIED at now.
func (d *DocumentRecord) IsVerified(now time.Time) bool {
	return ResolveVerificationState(d, now) == StateVerified
}

// FailureClass separates retryable rejections from invalid input.
type FailureClass string

const (
	FailureSoft FailureClass = "soft"
	FailureHard FailureClass = "hard"
)

// Verification is a determinate provider outcome ready to be applied to a
// document. ExpiresAt comes from the expiry policy.
type Verification struct {
	Valid        bool
	FailureClass FailureClass
	Reason       string
	Provider     string
	AttemptID    id.AttemptID
	InputHash    string
	Fields       map[string]string
	Payload      map[string]any
	CheckedAt    time.Time
	ExpiresAt    *time.Time
	ActorID      string
}

// ApplyVerification transitions the document for a determinate provider
// result and reports whether the proof state changed.
//
// A same-input retry against an unexpired VERIFIED record never re-stamps
// VerifiedAt/ExpiresAt and never downgrades; only the correlation fields move.
func (d *DocumentRecord) ApplyVerification(v Verification) bool {
	sameVerifiedInput := d.IsVerified(v.CheckedAt) && d.Status.InputHash == v.InputHash
	d.Status.AttemptID = v.AttemptID
	d.Status.LastCheckedAt = v.CheckedAt
	if sameVerifiedInput {
		return false
	}

	d.Fields = copyFields(v.Fields)
	d.Payload = v.Payload
	d.Status.Provider = v.Provider
	d.Status.InputHash = v.InputHash

	if v.Valid {
		verifiedAt := v.CheckedAt
		d.Status.State = StateVerified
		d.Status.VerifiedAt = &verifiedAt
		d.Status.ExpiresAt = v.ExpiresAt
		d.Status.FailureReason = ""
		d.Verified = true
		d.VerifiedAt = &verifiedAt
	} else {
		d.Status.State = StateSoftFailed
		if v.FailureClass == FailureHard {
			d.Status.State = StateHardFailed
		}
		d.Status.VerifiedAt = nil
		d.Status.ExpiresAt = nil
		d.Status.FailureReason = v.Reason
		d.Verified = false
		d.VerifiedAt = nil
	}

	AppendVerificationHistory(d, HistoryEntry{
		State:      d.Status.State,
		Provider:   v.Provider,
		VerifiedAt: d.Status.VerifiedAt,
		ExpiresAt:  d.Status.ExpiresAt,
		AttemptID:  v.AttemptID,
		InputHash:  v.InputHash,
		CreatedAt:  v.CheckedAt,
		Reason:     v.Reason,
		ActorID:    v.ActorID,
	})
	return true
}

// MaterializeExpiry persists a lazily computed expiry. Returns false when the
// record is not past its expiry.
func (d *DocumentRecord) MaterializeExpiry(now time.Time) bool {
	if d.Status.State != StateVerified || ResolveVerificationState(d, now) != StateExpired {
		return false
	}
	d.Status.State = StateExpired
	d.Verified = false
	AppendVerificationHistory(d, HistoryEntry{
		State:     StateExpired,
		Provider:  d.Status.Provider,
		ExpiresAt: d.Status.ExpiresAt,
		AttemptID: d.Status.AttemptID,
		InputHash: d.Status.InputHash,
		CreatedAt: now,
		Reason:    ReasonExpired,
	})
	return true
}

// Revoke clears the sensitive fields and marks the proof REVOKED. A fresh
// verification is required before the document counts again.
func (d *DocumentRecord) Revoke(now time.Time, reason, actorID string) {
	d.Fields = nil
	d.Payload = nil
	d.Verified = false
	d.VerifiedAt = nil
	d.Status.State = StateRevoked
	d.Status.VerifiedAt = nil
	d.Status.ExpiresAt = nil
	d.Status.InputHash = ""
	d.Status.FailureReason = reason
	AppendVerificationHistory(d, HistoryEntry{
		State:     StateRevoked,
		Provider:  d.Status.Provider,
		AttemptID: d.Status.AttemptID,
		CreatedAt: now,
		Reason:    reason,
		ActorID:   actorID,
	})
}

// Clone deep-copies the record.
func (d *DocumentRecord) Clone() *DocumentRecord {
	if d == nil {
		return nil
	}
	out := *d
	out.Fields = copyFields(d.Fields)
	if d.Payload != nil {
		out.Payload = make(map[string]any, len(d.Payload))
		for k, v := range d.Payload {
			out.Payload[k] = v
		}
	}
	out.VerifiedAt = copyTime(d.VerifiedAt)
	out.Status.VerifiedAt = copyTime(d.Status.VerifiedAt)
	out.Status.ExpiresAt = copyTime(d.Status.ExpiresAt)
	out.History = append([]HistoryEntry(nil), d.History...)
	return &out
}

func copyFields(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
