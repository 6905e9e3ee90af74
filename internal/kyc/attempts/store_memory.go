package attempts

import (
	"context"
	"sync"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
)

// InMemoryStore keeps attempts per user in append order.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts map[id.UserID][]models.VerificationAttempt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{attempts: make(map[id.UserID][]models.VerificationAttempt)}
}

func (s *InMemoryStore) Append(_ context.Context, attempt models.VerificationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.UserID] = append(s.attempts[attempt.UserID], attempt)
	return nil
}

// ListByUser returns the most recent attempts, newest last. limit <= 0 returns all.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]models.VerificationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.attempts[userID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.VerificationAttempt(nil), all...), nil
}
