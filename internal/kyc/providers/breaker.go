package providers

import (
	"context"
	"log/slog"

	"onboard/internal/kyc/models"
	"onboard/pkg/platform/circuit"
)

// Breaker guards a Provider with a circuit breaker. While open, calls fail
// fast with ErrorProviderOutage and never reach the registry.
type Breaker struct {
	next    Provider
	breaker *circuit.Breaker
	logger  *slog.Logger
	onState func(circuit.State)
}

type BreakerOption func(*Breaker)

func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithStateObserver is called whenever the breaker opens or closes.
func WithStateObserver(fn func(circuit.State)) BreakerOption {
	return func(b *Breaker) {
		b.onState = fn
	}
}

func NewBreaker(next Provider, breaker *circuit.Breaker, opts ...BreakerOption) *Breaker {
	b := &Breaker{next: next, breaker: breaker, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) ID() string { return b.next.ID() }

func (b *Breaker) Verify(ctx context.Context, docType models.DocumentType, fields map[string]string) (*Result, error) {
	if err := b.allow(); err != nil {
		return nil, err
	}
	res, err := b.next.Verify(ctx, docType, fields)
	b.record(ctx, err)
	return res, err
}

func (b *Breaker) LookupIFSC(ctx context.Context, ifsc string) (*IFSCDetails, error) {
	if err := b.allow(); err != nil {
		return nil, err
	}
	details, err := b.next.LookupIFSC(ctx, ifsc)
	b.record(ctx, err)
	return details, err
}

// Health bypasses the breaker so probes can observe recovery.
func (b *Breaker) Health(ctx context.Context) error {
	return b.next.Health(ctx)
}

func (b *Breaker) allow() error {
	if b.breaker.Allow() {
		return nil
	}
	return NewProviderError(ErrorProviderOutage, b.next.ID(), "circuit open", nil)
}

// record counts infrastructure failures only. Determinate rejections and
// not-found answers mean the registry is healthy.
func (b *Breaker) record(ctx context.Context, err error) {
	var change circuit.StateChange
	if err != nil && GetCategory(err) != ErrorNotFound {
		_, change = b.breaker.RecordFailure()
	} else {
		_, change = b.breaker.RecordSuccess()
	}
	switch {
	case change.Opened:
		b.logger.WarnContext(ctx, "provider circuit opened", "provider", b.next.ID(), "error", err)
		b.notify(circuit.StateOpen)
	case change.Closed:
		b.logger.InfoContext(ctx, "provider circuit closed", "provider", b.next.ID())
		b.notify(circuit.StateClosed)
	}
}

func (b *Breaker) notify(s circuit.State) {
	if b.onState != nil {
		b.onState(s)
	}
}
