// Package worker runs the background expiry sweep: cases whose verified
// proofs have passed their expiry are rewritten so the stored state, the
// user status mirror and downstream consumers catch up without waiting for
// the next mutation.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"onboard/internal/kyc/metrics"
	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/requestcontext"
)

const (
	defaultInterval    = 15 * time.Minute
	defaultBatchSize   = 100
	defaultConcurrency = 4
)

// ExpiryService is the slice of the KYC service the sweeper drives.
type ExpiryService interface {
	ExpiringCases(ctx context.Context, limit int) ([]*models.Case, error)
	ExpireCase(ctx context.Context, caseID id.CaseID) (bool, error)
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Scanned int
	Expired int
	Skipped int
	Failed  int
}

type Sweeper struct {
	service     ExpiryService
	interval    time.Duration
	batchSize   int
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Sweeper)

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func NewSweeper(service ExpiryService, opts ...Option) *Sweeper {
	s := &Sweeper{
		service:     service,
		interval:    defaultInterval,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepOnce expires due cases in batches until a batch comes back short or
// makes no progress. Every case in the sweep sees the same "now". Per-case
// failures are logged and counted; only listing failures are returned.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer s.metrics.ObserveSweep(start)
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

	var total SweepResult
	for {
		batch, err := s.service.ExpiringCases(ctx, s.batchSize)
		if err != nil {
			return total, err
		}
		res := s.expireBatch(ctx, batch)
		total.Scanned += res.Scanned
		total.Expired += res.Expired
		total.Skipped += res.Skipped
		total.Failed += res.Failed

		if len(batch) < s.batchSize || res.Expired == 0 || ctx.Err() != nil {
			break
		}
	}
	if total.Scanned > 0 {
		s.logger.InfoContext(ctx, "kyc expiry sweep finished",
			"scanned", total.Scanned,
			"expired", total.Expired,
			"skipped", total.Skipped,
			"failed", total.Failed,
			"duration", time.Since(start),
		)
	}
	return total, ctx.Err()
}

func (s *Sweeper) expireBatch(ctx context.Context, batch []*models.Case) SweepResult {
	var expired, skipped, failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, c := range batch {
		caseID := c.ID
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			ok, err := s.service.ExpireCase(gctx, caseID)
			switch {
			case err == nil && ok:
				expired.Add(1)
			case err == nil:
				skipped.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConcurrentModification):
				// A concurrent mutation materialized the expiry first.
				skipped.Add(1)
			default:
				failed.Add(1)
				s.logger.ErrorContext(gctx, "failed to expire kyc case",
					"case_id", caseID.String(),
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return SweepResult{
		Scanned: len(batch),
		Expired: int(expired.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.SweepOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.ErrorContext(ctx, "kyc expiry sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
