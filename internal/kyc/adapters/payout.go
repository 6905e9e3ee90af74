package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"onboard/internal/kyc/ports"
	"onboard/pkg/requestcontext"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPPayoutSync registers verified bank accounts with the payout provider.
// Requests carry an Idempotency-Key so provider-side retries collapse.
type HTTPPayoutSync struct {
	client  *retryablehttp.Client
	baseURL string
	apiKey  string
}

type PayoutOption func(*HTTPPayoutSync)

// WithPayoutLogger routes retry logs to logger.
func WithPayoutLogger(logger *slog.Logger) PayoutOption {
	return func(p *HTTPPayoutSync) {
		if logger != nil {
			p.client.Logger = logger
		}
	}
}

func WithPayoutRetries(max int, waitMin, waitMax time.Duration) PayoutOption {
	return func(p *HTTPPayoutSync) {
		p.client.RetryMax = max
		p.client.RetryWaitMin = waitMin
		p.client.RetryWaitMax = waitMax
	}
}

func NewHTTPPayoutSync(baseURL, apiKey string, timeout time.Duration, opts ...PayoutOption) *HTTPPayoutSync {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = nil

	p := &HTTPPayoutSync{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPPayoutSync) SyncBankAccount(ctx context.Context, account ports.BankAccountSync) error {
	body, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal bank account: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/beneficiaries", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", p.apiKey)
	req.Header.Set("Idempotency-Key", account.IdempotencyKey)
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("payout sync: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	// 409 means the provider already holds this key.
	if resp.StatusCode == http.StatusConflict || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return nil
	}
	return fmt.Errorf("payout sync: unexpected status %d", resp.StatusCode)
}

// NoopPayoutSync is used when no payout provider is configured.
type NoopPayoutSync struct{}

func (NoopPayoutSync) SyncBankAccount(context.Context, ports.BankAccountSync) error { return nil }
