package attempts

import (
	"context"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
)

// Store persists verification attempts. Attempts are append-only.
type Store interface {
	Append(ctx context.Context, attempt models.VerificationAttempt) error
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]models.VerificationAttempt, error)
}
