package models

import "time"

// Default proof lifetimes. PAN is permanent.
const (
	DefaultAadhaarExpiry     = 730 * 24 * time.Hour
	DefaultGSTINExpiry       = 365 * 24 * time.Hour
	DefaultBankAccountExpiry = 365 * 24 * time.Hour
)

// ExpiryPolicy maps document types to proof lifetimes. A zero or missing
// duration means the proof does not expire.
type ExpiryPolicy struct {
	lifetimes map[DocumentType]time.Duration
}

func DefaultExpiryPolicy() ExpiryPolicy {
	return NewExpiryPolicy(0, DefaultAadhaarExpiry, DefaultGSTINExpiry, DefaultBankAccountExpiry)
}

func NewExpiryPolicy(pan, aadhaar, gstin, bankAccount time.Duration) ExpiryPolicy {
	return ExpiryPolicy{lifetimes: map[DocumentType]time.Duration{
		DocumentPAN:         pan,
		DocumentAadhaar:     aadhaar,
		DocumentGSTIN:       gstin,
		DocumentBankAccount: bankAccount,
	}}
}

// BuildExpiryDate returns now plus the lifetime of docType, or nil when the
// proof does not expire.
func (p ExpiryPolicy) BuildExpiryDate(docType DocumentType, now time.Time) *time.Time {
	d := p.lifetimes[docType]
	if d <= 0 {
		return nil
	}
	t := now.Add(d)
	return &t
}
