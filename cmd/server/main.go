package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	jwttoken "onboard/internal/jwt_token"
	"onboard/internal/kyc/adapters"
	"onboard/internal/kyc/attempts"
	"onboard/internal/kyc/handler"
	"onboard/internal/kyc/ifsc"
	kycmetrics "onboard/internal/kyc/metrics"
	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	"onboard/internal/kyc/providers"
	"onboard/internal/kyc/service"
	"onboard/internal/kyc/store"
	"onboard/internal/kyc/throttle"
	"onboard/internal/kyc/worker"
	"onboard/internal/platform/config"
	"onboard/internal/platform/httpserver"
	"onboard/internal/platform/kafka"
	"onboard/internal/platform/logger"
	httpmetrics "onboard/internal/platform/metrics"
	"onboard/internal/platform/postgres"
	"onboard/internal/platform/redis"
	audit "onboard/pkg/platform/audit"
	"onboard/pkg/platform/audit/outbox"
	"onboard/pkg/platform/audit/publisher"
	auditmemory "onboard/pkg/platform/audit/store/memory"
	auditpostgres "onboard/pkg/platform/audit/store/postgres"
	"onboard/pkg/platform/circuit"
	"onboard/pkg/platform/sealing"
	txcontext "onboard/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("onboard stopped with error", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional backing services. Nil members mean the process
// falls back to in-memory implementations.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kafka.Client
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	var err error

	if in.db, err = postgres.Open(ctx, cfg.Database); err != nil {
		return nil, err
	}
	if in.db != nil && cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(in.db); err != nil {
			return nil, err
		}
	}
	if in.db == nil {
		log.Warn("DB_URL not set, using in-memory stores")
	}

	if in.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return nil, err
	}
	if in.redis == nil {
		log.Warn("REDIS_URL not set, throttle and IFSC cache are process-local")
	}

	if in.kafka, err = kafka.New(cfg.Kafka); err != nil {
		return nil, err
	}
	if in.kafka != nil {
		topicCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := in.kafka.EnsureTopics(topicCtx, 3, cfg.Kafka.ComplianceTopic, cfg.Kafka.OperationsTopic, cfg.Kafka.NotificationsTopic); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (in *infra) close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	kycMetrics := kycmetrics.New(prometheus.DefaultRegisterer)
	provider := buildProvider(cfg.Provider, log, kycMetrics)

	sealer, err := sealing.New(cfg.SealingKey)
	if err != nil {
		return err
	}

	var (
		cases        store.CaseStore
		attemptStore attempts.Store
		auditStore   audit.Store
		userStatus   ports.UserStatusSync
		progress     ports.ProgressTracker
	)
	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(kycMetrics),
		service.WithProviderTimeout(cfg.Provider.Timeout),
		service.WithGSTINRequired(cfg.KYC.GSTINRequired),
		service.WithAgreementVersion(cfg.KYC.AgreementVersion),
		service.WithExpiryPolicy(models.NewExpiryPolicy(
			cfg.KYC.PANExpiry, cfg.KYC.AadhaarExpiry, cfg.KYC.GSTINExpiry, cfg.KYC.BankAccountExpiry,
		)),
	}
	if in.db != nil {
		cases = store.NewPostgres(in.db, sealer)
		attemptStore = attempts.NewPostgresStore(in.db)
		auditStore = auditpostgres.New(in.db)
		userStatus = adapters.NewPostgresUserStatus(in.db)
		progress = adapters.NewPostgresProgress(in.db)
		svcOpts = append(svcOpts, service.WithTxRunner(txcontext.NewRunner(in.db)))
	} else {
		cases = store.NewInMemory()
		attemptStore = attempts.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
		userStatus = adapters.NewInMemoryUserStatus()
		progress = adapters.NewInMemoryProgress()
	}

	recorder := attempts.NewRecorder(attemptStore, cfg.KYC.AttemptBufferSize,
		attempts.WithLogger(log),
		attempts.WithMetrics(kycMetrics),
	)
	defer recorder.Close()

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.KYC.AuditBufferSize),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	throttleOpts := []throttle.Option{throttle.WithLogger(log)}
	ifscOpts := []ifsc.Option{
		ifsc.WithTTL(cfg.KYC.IFSCCacheTTL),
		ifsc.WithLookupTimeout(cfg.Provider.Timeout),
		ifsc.WithLogger(log),
		ifsc.WithMetrics(kycMetrics),
	}
	if in.redis != nil {
		throttleOpts = append(throttleOpts, throttle.WithRedis(in.redis.Client))
		ifscOpts = append(ifscOpts, ifsc.WithRedis(in.redis.Client))
	}

	var notifier ports.Notifier = adapters.NewLogNotifier(log)
	if in.kafka != nil {
		notifier = adapters.NewKafkaNotifier(in.kafka, cfg.Kafka.NotificationsTopic)
	}
	var payout ports.PayoutSync = adapters.NoopPayoutSync{}
	if cfg.Payout.BaseURL != "" {
		payout = adapters.NewHTTPPayoutSync(cfg.Payout.BaseURL, cfg.Payout.APIKey, cfg.Payout.Timeout,
			adapters.WithPayoutLogger(log),
			adapters.WithPayoutRetries(2, 200*time.Millisecond, 2*time.Second),
		)
	}

	svc := service.New(cases, provider, append(svcOpts,
		service.WithAttemptRecorder(recorder),
		service.WithThrottle(throttle.New(cfg.KYC.AttemptLimit, cfg.KYC.AttemptWindow, throttleOpts...)),
		service.WithIFSCResolver(ifsc.NewResolver(provider, ifscOpts...)),
		service.WithAuditPublisher(auditPublisher),
		service.WithUserStatusSync(userStatus),
		service.WithProgressTracker(progress),
		service.WithNotifier(notifier),
		service.WithPayoutSync(payout),
	)...)

	sweeper := worker.NewSweeper(svc,
		worker.WithInterval(cfg.KYC.SweepInterval),
		worker.WithBatchSize(cfg.KYC.SweepBatchSize),
		worker.WithConcurrency(cfg.KYC.SweepConcurrency),
		worker.WithLogger(log),
		worker.WithMetrics(kycMetrics),
	)

	jwtValidator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(
		cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience,
	))
	router := newRouter(log, httpmetrics.New(), jwtValidator, handler.New(svc, log), newHealthHandler(in, provider))
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting onboard", "addr", cfg.Server.Addr, "provider", provider.ID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCancel(sweeper.Run(gctx))
	})
	if in.db != nil && in.kafka != nil {
		relay := outbox.New(in.db, in.kafka, outbox.Topics{
			Compliance: cfg.Kafka.ComplianceTopic,
			Operations: cfg.Kafka.OperationsTopic,
		},
			outbox.WithBatchSize(cfg.Kafka.RelayBatchSize),
			outbox.WithInterval(cfg.Kafka.RelayInterval),
			outbox.WithLogger(log),
		)
		g.Go(func() error {
			return ignoreCancel(relay.Run(gctx))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down onboard")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildProvider(cfg config.Provider, log *slog.Logger, m *kycmetrics.Metrics) providers.Provider {
	var base providers.Provider
	if cfg.Mock {
		base = providers.NewMockProvider(0)
	} else {
		base = providers.NewHTTPProvider(cfg.ID, cfg.BaseURL, cfg.APIKey, cfg.Timeout,
			providers.WithHTTPLogger(log),
			providers.WithRetries(cfg.MaxRetries, 200*time.Millisecond, 2*time.Second),
		)
	}
	breaker := circuit.New(base.ID(),
		circuit.WithFailureThreshold(cfg.BreakerFailures),
		circuit.WithSuccessThreshold(cfg.BreakerSuccesses),
		circuit.WithCooldown(cfg.BreakerCooldown),
	)
	return providers.NewBreaker(base, breaker,
		providers.WithBreakerLogger(log),
		providers.WithStateObserver(func(s circuit.State) {
			m.SetCircuitOpen(s == circuit.StateOpen)
		}),
	)
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
