package providers

import (
	"context"
	"errors"
	"fmt"

	dErrors "onboard/pkg/domain-errors"
)

// ErrorCategory classifies why a registry call produced no determinate answer.
// It is stored as the attempt error code, so values are stable strings.
type ErrorCategory string

const (
	ErrorTimeout ErrorCategory = "timeout"
	// ErrorBadData covers malformed, unexpected or ambiguous envelopes. The
	// verification fails closed.
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	// ErrorProviderOutage is also returned while the circuit is open.
	ErrorProviderOutage ErrorCategory = "provider_outage"
	// ErrorNotFound only applies to lookups such as IFSC; a missing document
	// record comes back as a determinate failure instead.
	ErrorNotFound    ErrorCategory = "not_found"
	ErrorRateLimited ErrorCategory = "rate_limited"
	ErrorInternal    ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization.
// It always means no determinate verification result was obtained.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError builds a ProviderError. Timeouts, outages and upstream
// rate limits are marked retryable; the retrying HTTP client already spent its
// budget, so callers only surface the hint.
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether a later attempt may succeed.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory returns ErrorInternal for anything that is not a ProviderError.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// ToDomainError maps a provider failure to a client-safe domain error. The
// provider message never leaves this package.
func ToDomainError(err error) error {
	if err == nil {
		return nil
	}
	switch GetCategory(err) {
	case ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "verification provider timed out")
	case ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, "record not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeProviderError, "verification provider failed")
	}
}

// classifyTransport turns a transport or context error into a ProviderError.
func classifyTransport(providerID string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	}
	return NewProviderError(ErrorProviderOutage, providerID, "provider unreachable", err)
}
