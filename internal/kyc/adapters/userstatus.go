package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	id "onboard/pkg/domain"
	txcontext "onboard/pkg/platform/tx"
	"onboard/pkg/requestcontext"
)

// PostgresUserStatus mirrors the case state into user_kyc_status. It joins the
// caller's transaction so approval and status sync commit together.
type PostgresUserStatus struct {
	db *sql.DB
}

func NewPostgresUserStatus(db *sql.DB) ports.UserStatusSync {
	return &PostgresUserStatus{db: db}
}

func (s *PostgresUserStatus) SyncStatus(ctx context.Context, userID id.UserID, status models.CaseState) error {
	query := `
		INSERT INTO user_kyc_status (user_id, status, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, userID.String(), string(status), requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("upsert user kyc status: %w", err)
	}
	return nil
}

// InMemoryUserStatus is used when no database is configured, and in tests.
type InMemoryUserStatus struct {
	mu       sync.RWMutex
	statuses map[id.UserID]models.CaseState
}

func NewInMemoryUserStatus() *InMemoryUserStatus {
	return &InMemoryUserStatus{statuses: make(map[id.UserID]models.CaseState)}
}

func (s *InMemoryUserStatus) SyncStatus(_ context.Context, userID id.UserID, status models.CaseState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[userID] = status
	return nil
}

// Status returns the last synced status.
func (s *InMemoryUserStatus) Status(userID id.UserID) (models.CaseState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[userID]
	return st, ok
}
