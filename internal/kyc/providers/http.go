package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"onboard/internal/kyc/models"
	"onboard/pkg/requestcontext"
)

const (
	headerAPIKey    = "X-Api-Key"
	headerRequestID = "X-Request-Id"
	maxBodyBytes    = 1 << 20
)

// HTTPProvider calls a JSON verification registry over HTTP. Transient
// failures (5xx, 429, connection errors) are retried by go-retryablehttp.
type HTTPProvider struct {
	id      string
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	logger  *slog.Logger
}

type HTTPOption func(*HTTPProvider)

func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(p *HTTPProvider) {
		if logger != nil {
			p.logger = logger
			p.client.Logger = logger
		}
	}
}

// WithRetries sets the retry budget and backoff bounds.
func WithRetries(max int, waitMin, waitMax time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		if max >= 0 {
			p.client.RetryMax = max
		}
		if waitMin > 0 {
			p.client.RetryWaitMin = waitMin
		}
		if waitMax > 0 {
			p.client.RetryWaitMax = waitMax
		}
	}
}

// WithHTTPClient replaces the underlying transport client; tests only.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		if c != nil {
			p.client.HTTPClient = c
		}
	}
}

// NewHTTPProvider creates an adapter for the registry at baseURL. timeout
// bounds each individual HTTP attempt.
func NewHTTPProvider(id, baseURL, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPProvider {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil

	p := &HTTPProvider{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPProvider) ID() string { return p.id }

func (p *HTTPProvider) Verify(ctx context.Context, docType models.DocumentType, fields map[string]string) (*Result, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.id, "encode request", err)
	}
	status, respBody, err := p.do(ctx, http.MethodPost, "/v1/verify/"+url.PathEscape(string(docType)), body)
	if err != nil {
		return nil, err
	}

	switch {
	case status >= 200 && status < 300,
		status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusUnprocessableEntity:
		// 4xx bodies still carry a failed envelope with a determinate answer
		return parseVerifyResponse(p.id, docType, respBody, requestcontext.Now(ctx))
	default:
		return nil, p.statusError(status)
	}
}

func (p *HTTPProvider) LookupIFSC(ctx context.Context, ifsc string) (*IFSCDetails, error) {
	status, body, err := p.do(ctx, http.MethodGet, "/v1/ifsc/"+url.PathEscape(ifsc), nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status >= 200 && status < 300:
		return parseIFSCResponse(p.id, body)
	case status == http.StatusNotFound:
		return nil, NewProviderError(ErrorNotFound, p.id, "ifsc not found", nil)
	default:
		return nil, p.statusError(status)
	}
}

func (p *HTTPProvider) Health(ctx context.Context) error {
	status, _, err := p.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return p.statusError(status)
	}
	return nil
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, nil, NewProviderError(ErrorInternal, p.id, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set(headerAPIKey, p.apiKey)
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		req.Header.Set(headerRequestID, reqID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, classifyTransport(p.id, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.WarnContext(ctx, "failed to close provider response body", "provider", p.id, "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, classifyTransport(p.id, err)
	}
	return resp.StatusCode, respBody, nil
}

func (p *HTTPProvider) statusError(status int) *ProviderError {
	msg := fmt.Sprintf("unexpected status %d", status)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, p.id, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, p.id, msg, nil)
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return NewProviderError(ErrorTimeout, p.id, msg, nil)
	case status >= 500:
		return NewProviderError(ErrorProviderOutage, p.id, msg, nil)
	default:
		return NewProviderError(ErrorBadData, p.id, msg, nil)
	}
}
