package models

import (
	"time"

	id "onboard/pkg/domain"

	"github.com/google/uuid"
)

// Reasons recorded on system-generated history entries.
const (
	ReasonExpired = "expired"
)

// HistoryEntry is an immutable record of one document state change.
type HistoryEntry struct {
	ID         string            `json:"id"`
	State      VerificationState `json:"state"`
	Provider   string            `json:"provider,omitempty"`
	VerifiedAt *time.Time        `json:"verified_at,omitempty"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
	AttemptID  id.AttemptID      `json:"attempt_id"`
	InputHash  string            `json:"input_hash,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Reason     string            `json:"reason,omitempty"`
	ActorID    string            `json:"actor_id,omitempty"`
}

// AppendVerificationHistory appends entry to the document's history. Entries
// are never edited or removed; a CreatedAt earlier than the last entry is
// clamped so the history stays time-ordered.
func AppendVerificationHistory(doc *DocumentRecord, entry HistoryEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if n := len(doc.History); n > 0 && entry.CreatedAt.Before(doc.History[n-1].CreatedAt) {
		entry.CreatedAt = doc.History[n-1].CreatedAt
	}
	entry.VerifiedAt = copyTime(entry.VerifiedAt)
	entry.ExpiresAt = copyTime(entry.ExpiresAt)
	doc.History = append(doc.History, entry)
}
