package service

import (
	"context"
	"sync"
	"sync/atomic"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/ports"
	"onboard/internal/kyc/providers"
	"onboard/internal/kyc/store"
	id "onboard/pkg/domain"
)

func validFields(t models.DocumentType) map[string]string {
	switch t {
	case models.DocumentPAN:
		return map[string]string{models.FieldPAN: "ABCDE1234F", models.FieldName: "Asha Rao"}
	case models.DocumentAadhaar:
		return map[string]string{models.FieldAadhaarNumber: "234567890123"}
	case models.DocumentGSTIN:
		return map[string]string{models.FieldGSTIN: "27ABCDE1234F1Z5"}
	default:
		return map[string]string{models.FieldAccountNumber: "123456789012", models.FieldIFSC: "HDFC0ABCDEF"}
	}
}

// syncRecorder records attempts inline so tests can assert right away.
type syncRecorder struct {
	mu       sync.Mutex
	attempts []models.VerificationAttempt
}

func (r *syncRecorder) Record(_ context.Context, a models.VerificationAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *syncRecorder) all() []models.VerificationAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.VerificationAttempt(nil), r.attempts...)
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []ports.Notification
}

func (n *captureNotifier) Notify(_ context.Context, notification ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *captureNotifier) kinds() []ports.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ports.NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

// countingProvider wraps the deterministic registry and remembers what the
// calls saw.
type countingProvider struct {
	providers.Provider
	calls   atomic.Int32
	mu      sync.Mutex
	ctxErrs []error
}

func (p *countingProvider) Verify(ctx context.Context, docType models.DocumentType, fields map[string]string) (*providers.Result, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	p.mu.Unlock()
	return p.Provider.Verify(ctx, docType, fields)
}

// barrierStore holds FindByUserID until n callers have read, so every caller
// works from the same version.
type barrierStore struct {
	*store.InMemory
	armed atomic.Bool
	wg    sync.WaitGroup
}

func (b *barrierStore) arm(n int) {
	b.wg.Add(n)
	b.armed.Store(true)
}

func (b *barrierStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Case, error) {
	c, err := b.InMemory.FindByUserID(ctx, userID)
	if b.armed.Load() {
		b.wg.Done()
		b.wg.Wait()
	}
	return c, err
}

// interleavingStore runs afterRead once, right after the first
// FindByUserID returns, so a competing write lands between a caller's read
// and its compare-and-swap.
type interleavingStore struct {
	*store.InMemory
	afterRead atomic.Pointer[func()]
}

func (s *interleavingStore) FindByUserID(ctx context.Context, userID id.UserID) (*models.Case, error) {
	c, err := s.InMemory.FindByUserID(ctx, userID)
	if fn := s.afterRead.Swap(nil); fn != nil {
		(*fn)()
	}
	return c, err
}
