// Package ifsc resolves bank branch codes through the verification provider
// with a two-level cache: an in-process cache in front of Redis.
package ifsc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/providers"
	dErrors "onboard/pkg/domain-errors"
)

const (
	DefaultTTL           = 24 * time.Hour
	DefaultLookupTimeout = 10 * time.Second
	keyPrefix            = "kyc:ifsc:"
)

// Lookup is the provider capability the resolver needs.
type Lookup interface {
	LookupIFSC(ctx context.Context, ifsc string) (*providers.IFSCDetails, error)
}

type metrics interface {
	RecordIFSCLookup(result string)
}

// Resolver validates, caches and deduplicates IFSC lookups.
type Resolver struct {
	provider Lookup
	redis    *redis.Client
	local    *gocache.Cache
	ttl      time.Duration
	timeout  time.Duration
	group    singleflight.Group
	logger   *slog.Logger
	metrics  metrics
}

type Option func(*Resolver)

func WithRedis(client *redis.Client) Option {
	return func(r *Resolver) {
		r.redis = client
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLookupTimeout bounds a shared provider lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func NewResolver(provider Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		ttl:      DefaultTTL,
		timeout:  DefaultLookupTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.local = gocache.New(r.ttl, time.Hour)
	return r
}

// Resolve normalizes code, then serves it from cache or the provider.
// Malformed codes fail with CodeValidation before any provider call.
func (r *Resolver) Resolve(ctx context.Context, code string) (*providers.IFSCDetails, error) {
	code, err := models.NormalizeIFSC(code)
	if err != nil {
		return nil, err
	}
	if details, ok := r.cached(ctx, code); ok {
		r.record("hit")
		return details, nil
	}
	r.record("miss")

	// The shared lookup outlives any single caller; each caller still
	// stops waiting when its own context ends.
	ch := r.group.DoChan(code, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		details, err := r.provider.LookupIFSC(lookupCtx, code)
		if err != nil {
			return nil, err
		}
		r.store(lookupCtx, code, details)
		return details, nil
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "ifsc lookup abandoned")
	}
	if res.Err != nil {
		return nil, providers.ToDomainError(res.Err)
	}
	out := *res.Val.(*providers.IFSCDetails)
	return &out, nil
}

func (r *Resolver) cached(ctx context.Context, code string) (*providers.IFSCDetails, bool) {
	if v, ok := r.local.Get(code); ok {
		out := v.(providers.IFSCDetails)
		return &out, true
	}
	if r.redis == nil {
		return nil, false
	}
	raw, err := r.redis.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.record("error")
			r.logger.WarnContext(ctx, "ifsc cache read failed", "ifsc", code, "error", err)
		}
		return nil, false
	}
	var details providers.IFSCDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		r.logger.WarnContext(ctx, "ifsc cache entry corrupt", "ifsc", code, "error", err)
		return nil, false
	}
	r.local.Set(code, details, r.ttl)
	return &details, true
}

func (r *Resolver) store(ctx context.Context, code string, details *providers.IFSCDetails) {
	r.local.Set(code, *details, r.ttl)
	if r.redis == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, keyPrefix+code, raw, r.ttl).Err(); err != nil {
		r.record("error")
		r.logger.WarnContext(ctx, "ifsc cache write failed", "ifsc", code, "error", err)
	}
}

func (r *Resolver) record(result string) {
	if r.metrics != nil {
		r.metrics.RecordIFSCLookup(result)
	}
}
