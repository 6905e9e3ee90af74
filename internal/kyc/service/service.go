// Package service orchestrates the KYC lifecycle: provider verification,
// submission, compliance review, proof invalidation and expiry. Every
// mutation reads the case version and persists with compare-and-swap; side
// effects (audit, notifications, milestones, payout sync) run after commit and
// never fail the operation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"onboard/internal/kyc/ifsc"
	"onboard/internal/kyc/metrics"
	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	"onboard/internal/kyc/providers"
	"onboard/internal/kyc/store"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	audit "onboard/pkg/platform/audit"
	"onboard/pkg/platform/sentinel"
	"onboard/pkg/requestcontext"
)

const (
	defaultProviderTimeout  = 10 * time.Second
	defaultAgreementVersion = "v1"
	// maxApplyAttempts bounds re-reads when a verification outcome loses a
	// version race; the provider is never called twice for one request.
	maxApplyAttempts = 3
	tracerName       = "onboard/internal/kyc/service"
	// SystemActor marks changes made by background jobs.
	SystemActor = "system"
)

// IFSCResolver resolves bank branch codes.
type IFSCResolver interface {
	Resolve(ctx context.Context, code string) (*providers.IFSCDetails, error)
}

// Service orchestrates the KYC case lifecycle.
type Service struct {
	cases    store.CaseStore
	provider providers.Provider
	tx       ports.TxRunner
	attempts ports.AttemptRecorder
	throttle ports.AttemptThrottle
	ifsc     IFSCResolver

	auditPublisher ports.AuditPublisher
	userStatus     ports.UserStatusSync
	notifier       ports.Notifier
	progress       ports.ProgressTracker
	payout         ports.PayoutSync

	expiry           models.ExpiryPolicy
	gstinRequired    bool
	providerTimeout  time.Duration
	agreementVersion string

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithTxRunner makes case writes and user status sync atomic.
func WithTxRunner(tx ports.TxRunner) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

func WithAttemptRecorder(r ports.AttemptRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.attempts = r
		}
	}
}

func WithThrottle(t ports.AttemptThrottle) Option {
	return func(s *Service) {
		s.throttle = t
	}
}

func WithIFSCResolver(r IFSCResolver) Option {
	return func(s *Service) {
		if r != nil {
			s.ifsc = r
		}
	}
}

func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func WithUserStatusSync(u ports.UserStatusSync) Option {
	return func(s *Service) {
		s.userStatus = u
	}
}

func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithProgressTracker(p ports.ProgressTracker) Option {
	return func(s *Service) {
		s.progress = p
	}
}

func WithPayoutSync(p ports.PayoutSync) Option {
	return func(s *Service) {
		s.payout = p
	}
}

func WithExpiryPolicy(p models.ExpiryPolicy) Option {
	return func(s *Service) {
		s.expiry = p
	}
}

// WithGSTINRequired sets whether new cases need a verified GSTIN.
func WithGSTINRequired(required bool) Option {
	return func(s *Service) {
		s.gstinRequired = required
	}
}

func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.providerTimeout = d
		}
	}
}

// WithAgreementVersion sets the version recorded when callers omit one.
func WithAgreementVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.agreementVersion = v
		}
	}
}

// New constructs a Service. Without a TxRunner, writes are not atomic with
// user status sync; that is only acceptable for in-memory deployments.
func New(cases store.CaseStore, provider providers.Provider, opts ...Option) *Service {
	s := &Service{
		cases:            cases,
		provider:         provider,
		tx:               passthroughTx{},
		attempts:         discardRecorder{},
		expiry:           models.DefaultExpiryPolicy(),
		gstinRequired:    true,
		providerTimeout:  defaultProviderTimeout,
		agreementVersion: defaultAgreementVersion,
		logger:           slog.Default(),
		tracer:           otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ifsc == nil {
		s.ifsc = ifsc.NewResolver(provider,
			ifsc.WithLookupTimeout(s.providerTimeout),
			ifsc.WithLogger(s.logger),
			ifsc.WithMetrics(s.metrics),
		)
	}
	return s
}

func (s *Service) now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC()
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (s *Service) findByUser(ctx context.Context, userID id.UserID) (*models.Case, error) {
	c, err := s.cases.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "kyc case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load kyc case")
	}
	return c, nil
}

func (s *Service) findByID(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.cases.FindByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "kyc case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load kyc case")
	}
	return c, nil
}

// loadOrNew returns the user's case, or a fresh unsaved DRAFT case.
func (s *Service) loadOrNew(ctx context.Context, userID id.UserID, companyID id.CompanyID, now time.Time) (*models.Case, bool, error) {
	c, err := s.cases.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if c.CompanyID.IsNil() && !companyID.IsNil() {
			c.CompanyID = companyID
		}
		return c, false, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return models.NewCase(userID, companyID, s.gstinRequired, now), true, nil
	default:
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load kyc case")
	}
}

// changeSet accumulates what one mutation did to a case so post-commit side
// effects can be derived from it.
type changeSet struct {
	created bool
	expired []models.DocumentType
	steps   []models.Transition
	actorID string
	reason  string
	// events are operation-specific audit events, emitted after creation and
	// before transition events.
	events []audit.Event
}

func (cs *changeSet) add(t models.Transition) {
	if t.Changed() {
		cs.steps = append(cs.steps, t)
	}
}

func (cs *changeSet) stateChanged() bool { return len(cs.steps) > 0 }

// materialize persists lazily computed expiry as part of the current mutation.
func (cs *changeSet) materialize(c *models.Case, now time.Time) {
	expired, t := c.MaterializeExpiry(now)
	cs.expired = append(cs.expired, expired...)
	cs.add(t)
}

// persist writes c (create or compare-and-swap on expectedVersion) and, when
// the case state moved, mirrors it to the user account in the same
// transaction.
func (s *Service) persist(ctx context.Context, c *models.Case, expectedVersion int64, cs *changeSet) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if cs.created {
			err = s.cases.Create(ctx, c)
		} else {
			err = s.cases.CompareAndSwap(ctx, c, expectedVersion)
		}
		if err != nil {
			return err
		}
		if cs.stateChanged() && s.userStatus != nil {
			if err := s.userStatus.SyncStatus(ctx, c.UserID, c.State); err != nil {
				return fmt.Errorf("sync user status: %w", err)
			}
		}
		return nil
	})
}

func isVersionRace(err error) bool {
	return errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrAlreadyUsed)
}

// persistError translates store failures into domain errors.
func (s *Service) persistError(ctx context.Context, err error, op string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case isVersionRace(err):
		s.metrics.IncrementConcurrentConflicts()
		s.logger.InfoContext(ctx, "kyc case modified concurrently", "operation", op)
		return dErrors.New(dErrors.CodeConcurrentModification, "kyc case was modified concurrently, reload and retry")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "kyc case not found")
	default:
		s.logger.ErrorContext(ctx, "failed to persist kyc case", "operation", op, "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save kyc case")
	}
}
