package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"onboard/internal/kyc/ports"
	id "onboard/pkg/domain"
	txcontext "onboard/pkg/platform/tx"
	"onboard/pkg/requestcontext"
)

// PostgresProgress records onboarding milestones once per user.
type PostgresProgress struct {
	db *sql.DB
}

func NewPostgresProgress(db *sql.DB) ports.ProgressTracker {
	return &PostgresProgress{db: db}
}

func (p *PostgresProgress) Track(ctx context.Context, userID id.UserID, milestone ports.Milestone) error {
	query := `
		INSERT INTO onboarding_milestones (user_id, milestone, recorded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, milestone) DO NOTHING
	`
	_, err := txcontext.Exec(ctx, p.db).ExecContext(ctx, query, userID.String(), string(milestone), requestcontext.Now(ctx))
	if err != nil {
		return fmt.Errorf("insert onboarding milestone: %w", err)
	}
	return nil
}

type InMemoryProgress struct {
	mu         sync.RWMutex
	milestones map[id.UserID]map[ports.Milestone]struct{}
}

func NewInMemoryProgress() *InMemoryProgress {
	return &InMemoryProgress{milestones: make(map[id.UserID]map[ports.Milestone]struct{})}
}

func (p *InMemoryProgress) Track(_ context.Context, userID id.UserID, milestone ports.Milestone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.milestones[userID]
	if !ok {
		set = make(map[ports.Milestone]struct{})
		p.milestones[userID] = set
	}
	set[milestone] = struct{}{}
	return nil
}

// Has reports whether milestone was recorded for userID.
func (p *InMemoryProgress) Has(userID id.UserID, milestone ports.Milestone) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.milestones[userID][milestone]
	return ok
}
