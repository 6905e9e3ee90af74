// Package store persists KYC cases. Every mutation goes through
// CompareAndSwap so concurrent writers to one case cannot overwrite each
// other.
package store

import (
	"context"
	"time"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
)

// CaseStore is implemented by the in-memory and Postgres stores.
//
// Errors:
//   - sentinel.ErrNotFound when no case matches
//   - sentinel.ErrAlreadyUsed when Create races another case for the user
//   - sentinel.ErrConflict when CompareAndSwap loses against a concurrent write
type CaseStore interface {
	FindByUserID(ctx context.Context, userID id.UserID) (*models.Case, error)
	FindByID(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	// Create inserts c with Version 1 and sets c.Version.
	Create(ctx context.Context, c *models.Case) error
	// CompareAndSwap writes c only when the stored version equals
	// expectedVersion, then sets c.Version to expectedVersion+1.
	CompareAndSwap(ctx context.Context, c *models.Case, expectedVersion int64) error
	List(ctx context.Context, filter models.CaseFilter) (*models.CasePage, error)
	CountByState(ctx context.Context) (map[models.CaseState]int, error)
	// ListExpiring returns up to limit cases holding a verified document whose
	// expiry is at or before now, earliest first.
	ListExpiring(ctx context.Context, now time.Time, limit int) ([]*models.Case, error)
}
