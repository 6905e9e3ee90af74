// Package outbox relays audit events from the audit_outbox table to Kafka.
// Batches are claimed with FOR UPDATE SKIP LOCKED so several relays can run
// side by side; a record is marked published only after the broker acked it.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	audit "onboard/pkg/platform/audit"
	txcontext "onboard/pkg/platform/tx"

	"github.com/lib/pq"
)

// Producer publishes one record. Satisfied by the franz-go client wrapper.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Topics routes events by category.
type Topics struct {
	Compliance string
	Operations string
}

func (t Topics) forEvent(eventType string) string {
	if audit.AuditEvent(eventType).Category() == audit.CategoryCompliance {
		return t.Compliance
	}
	return t.Operations
}

type Relay struct {
	db        *sql.DB
	tx        *txcontext.Runner
	producer  Producer
	topics    Topics
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func New(db *sql.DB, producer Producer, topics Topics, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		tx:        txcontext.NewRunner(db),
		producer:  producer,
		topics:    topics,
		batchSize: 100,
		interval:  2 * time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type entry struct {
	id          string
	aggregateID string
	eventType   string
	payload     []byte
}

// RunOnce relays a single batch and returns how many records were published.
// A publish failure stops the batch; already-published records are still
// marked and the rest stay pending for the next tick.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.claim(ctx)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(entries))
		var publishErr error
		for _, e := range entries {
			headers := map[string]string{"event_type": e.eventType, "outbox_id": e.id}
			if err := r.producer.Publish(ctx, r.topics.forEvent(e.eventType), []byte(e.aggregateID), e.payload, headers); err != nil {
				publishErr = err
				break
			}
			ids = append(ids, e.id)
		}

		if len(ids) > 0 {
			if err := r.markPublished(ctx, ids); err != nil {
				return err
			}
		}
		published = len(ids)
		if publishErr != nil {
			r.logger.WarnContext(ctx, "outbox relay publish failed",
				"published", published,
				"pending", len(entries)-published,
				"error", publishErr,
			)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

func (r *Relay) claim(ctx context.Context) ([]entry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.Exec(ctx, r.db).QueryContext(ctx, query, r.batchSize)
	if err != nil {
		return nil, fmt.Errorf("claim outbox batch: %w", err)
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.aggregateID, &e.eventType, &e.payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

func (r *Relay) markPublished(ctx context.Context, ids []string) error {
	_, err := txcontext.Exec(ctx, r.db).ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`,
		time.Now().UTC(), pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

// Run relays on every tick until ctx is cancelled. A full batch triggers an
// immediate follow-up so a backlog drains without waiting for the ticker.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
