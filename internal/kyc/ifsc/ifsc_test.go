package ifsc

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/kyc/providers"
	dErrors "onboard/pkg/domain-errors"
)

type countingLookup struct {
	calls atomic.Int32
	err   error
}

func (c *countingLookup) LookupIFSC(_ context.Context, code string) (*providers.IFSCDetails, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &providers.IFSCDetails{IFSC: code, Bank: "HDFC Bank", Branch: "Andheri"}, nil
}

// gatedLookup blocks until release is closed or its own context ends.
type gatedLookup struct {
	calls    atomic.Int32
	started  chan struct{}
	release  chan struct{}
	deadline atomic.Pointer[time.Time]
}

func newGatedLookup() *gatedLookup {
	return &gatedLookup{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedLookup) LookupIFSC(ctx context.Context, code string) (*providers.IFSCDetails, error) {
	g.calls.Add(1)
	if d, ok := ctx.Deadline(); ok {
		g.deadline.Store(&d)
	}
	g.started <- struct{}{}
	select {
	case <-g.release:
		return &providers.IFSCDetails{IFSC: code, Bank: "HDFC Bank"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestResolver_CallerCancelDoesNotAbortSharedLookup(t *testing.T) {
	lookup := newGatedLookup()
	r := NewResolver(lookup)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "HDFC0ABCDEF")
		firstErr <- err
	}()
	<-lookup.started

	secondDone := make(chan error, 1)
	go func() {
		details, err := r.Resolve(context.Background(), "HDFC0ABCDEF")
		if err == nil && details.Bank != "HDFC Bank" {
			err = assert.AnError
		}
		secondDone <- err
	}()

	cancel()
	err := <-firstErr
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout), "abandoning caller gets its own cancellation")

	close(lookup.release)
	require.NoError(t, <-secondDone)
	assert.Equal(t, int32(1), lookup.calls.Load())

	_, err = r.Resolve(context.Background(), "HDFC0ABCDEF")
	require.NoError(t, err, "shared result was cached")
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestResolver_LookupIsBounded(t *testing.T) {
	lookup := newGatedLookup()
	r := NewResolver(lookup, WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := r.Resolve(context.Background(), "HDFC0ABCDEF")
	require.Error(t, err)

	deadline := lookup.deadline.Load()
	require.NotNil(t, deadline)
	assert.WithinDuration(t, start.Add(20*time.Millisecond), *deadline, 15*time.Millisecond)
}

func TestResolver_CachesInRedisWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lookup := &countingLookup{}
	r := NewResolver(lookup, WithRedis(client))
	ctx := context.Background()

	details, err := r.Resolve(ctx, " hdfc0abcdef ")
	require.NoError(t, err)
	assert.Equal(t, "HDFC0ABCDEF", details.IFSC)
	assert.Equal(t, DefaultTTL, mr.TTL(keyPrefix+"HDFC0ABCDEF"))

	_, err = r.Resolve(ctx, "HDFC0ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, int32(1), lookup.calls.Load())

	// a fresh instance reads through Redis
	other := NewResolver(lookup, WithRedis(client))
	_, err = other.Resolve(ctx, "HDFC0ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestResolver_ValidatesBeforeLookup(t *testing.T) {
	lookup := &countingLookup{}
	r := NewResolver(lookup)

	_, err := r.Resolve(context.Background(), "HDFC1ABCDEF")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, int32(0), lookup.calls.Load())
}

func TestResolver_ProviderErrorsAreMapped(t *testing.T) {
	lookup := &countingLookup{err: providers.NewProviderError(providers.ErrorNotFound, "p", "missing", nil)}
	r := NewResolver(lookup)

	_, err := r.Resolve(context.Background(), "ZZZZ0ABCDEF")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = r.Resolve(context.Background(), "ZZZZ0ABCDEF")
	require.Error(t, err)
	assert.Equal(t, int32(2), lookup.calls.Load(), "failures are not cached")
}

func TestResolver_LocalOnlyExpires(t *testing.T) {
	lookup := &countingLookup{}
	r := NewResolver(lookup, WithTTL(30*time.Millisecond))
	ctx := context.Background()

	_, _ = r.Resolve(ctx, "HDFC0ABCDEF")
	_, _ = r.Resolve(ctx, "HDFC0ABCDEF")
	assert.Equal(t, int32(1), lookup.calls.Load())

	time.Sleep(50 * time.Millisecond)
	_, _ = r.Resolve(ctx, "HDFC0ABCDEF")
	assert.Equal(t, int32(2), lookup.calls.Load())
}
