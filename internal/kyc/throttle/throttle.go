// Package throttle caps provider attempts per user and document type in a
// fixed window. Counters live in Redis when configured and fall back to an
// in-process cache when Redis is absent or failing.
package throttle

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"onboard/internal/kyc/models"
	id "onboard/pkg/domain"
)

const (
	keyPrefix     = "kyc:attempts:"
	DefaultWindow = time.Hour
)

// Throttle is a fixed-window attempt counter.
type Throttle struct {
	redis  *redis.Client
	local  *gocache.Cache
	limit  int
	window time.Duration
	logger *slog.Logger
}

type Option func(*Throttle)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Throttle) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRedis shares counters across instances. A nil client keeps counters local.
func WithRedis(client *redis.Client) Option {
	return func(t *Throttle) {
		t.redis = client
	}
}

// New allows limit attempts per window. limit <= 0 disables throttling; a
// non-positive window falls back to DefaultWindow.
func New(limit int, window time.Duration, opts ...Option) *Throttle {
	if window <= 0 {
		window = DefaultWindow
	}
	t := &Throttle{
		local:  gocache.New(window, window),
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Allow counts one attempt and reports whether it is within the limit.
func (t *Throttle) Allow(ctx context.Context, userID id.UserID, docType models.DocumentType) bool {
	if t.limit <= 0 {
		return true
	}
	key := keyPrefix + userID.String() + ":" + string(docType)
	n, err := t.incrRedis(ctx, key)
	if err != nil {
		t.logger.WarnContext(ctx, "attempt throttle falling back to local counter",
			"user_id", userID.String(),
			"document_type", string(docType),
			"error", err,
		)
	}
	if t.redis == nil || err != nil {
		n = t.incrLocal(key)
	}
	return n <= int64(t.limit)
}

// incrRedis counts and arms the window in one MULTI. EXPIRE NX leaves a
// running window alone and repairs a counter that lost its TTL.
func (t *Throttle) incrRedis(ctx context.Context, key string) (int64, error) {
	if t.redis == nil {
		return 0, nil
	}
	var incr *redis.IntCmd
	_, err := t.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, t.window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (t *Throttle) incrLocal(key string) int64 {
	if err := t.local.Add(key, int64(1), t.window); err == nil {
		return 1
	}
	n, err := t.local.IncrementInt64(key, 1)
	if err != nil {
		// expired between Add and Increment
		t.local.Set(key, int64(1), t.window)
		return 1
	}
	return n
}
