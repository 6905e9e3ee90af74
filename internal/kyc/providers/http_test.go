package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboard/internal/kyc/models"
	"onboard/pkg/requestcontext"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProvider("test-registry", srv.URL, "secret", 2*time.Second,
		WithRetries(2, time.Millisecond, 5*time.Millisecond))
}

func TestHTTPProvider_Verify(t *testing.T) {
	t.Run("sends fields and headers", func(t *testing.T) {
		var gotPath, gotKey, gotReqID string
		var gotBody map[string]string
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get(headerAPIKey)
			gotReqID = r.Header.Get(headerRequestID)
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			_, _ = w.Write([]byte(`{"status":"success","data":{"valid":true,"name":"ASHA RAO"}}`))
		})

		ctx := requestcontext.WithRequestID(context.Background(), "req-1")
		ctx = requestcontext.WithTime(ctx, checkedAt)
		res, err := p.Verify(ctx, models.DocumentPAN, map[string]string{"pan": "ABCDE1234F"})

		require.NoError(t, err)
		assert.True(t, res.IsValid)
		assert.Equal(t, "ASHA RAO", res.Payload["name"])
		assert.Equal(t, checkedAt, res.CheckedAt)
		assert.Equal(t, "/v1/verify/pan", gotPath)
		assert.Equal(t, "secret", gotKey)
		assert.Equal(t, "req-1", gotReqID)
		assert.Equal(t, "ABCDE1234F", gotBody["pan"])
	})

	t.Run("determinate rejection on 422", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"status":"failed","code":"invalid_input","message":"bad pan"}`))
		})

		res, err := p.Verify(context.Background(), models.DocumentPAN, map[string]string{"pan": "ABCDE1234F"})

		require.NoError(t, err)
		assert.False(t, res.IsValid)
		assert.Equal(t, models.FailureHard, res.FailureClass)
	})

	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`{"status":"success","data":{"accountExists":true}}`))
		})

		res, err := p.Verify(context.Background(), models.DocumentBankAccount, map[string]string{"account_number": "123456789012", "ifsc": "HDFC0ABCDEF"})

		require.NoError(t, err)
		assert.True(t, res.IsValid)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("exhausted retries are an outage", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := p.Verify(context.Background(), models.DocumentGSTIN, map[string]string{"gstin": "27ABCDE1234F1Z5"})

		require.Error(t, err)
		assert.Equal(t, ErrorProviderOutage, GetCategory(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("auth failure", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := p.Verify(context.Background(), models.DocumentPAN, map[string]string{"pan": "ABCDE1234F"})
		assert.Equal(t, ErrorAuthentication, GetCategory(err))
	})

	t.Run("respects context deadline", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := p.Verify(ctx, models.DocumentPAN, map[string]string{"pan": "ABCDE1234F"})

		require.Error(t, err)
		assert.Equal(t, ErrorTimeout, GetCategory(err))
	})
}

func TestHTTPProvider_LookupIFSC(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ifsc/HDFC0ABCDEF" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"ifsc":"HDFC0ABCDEF","bank":"HDFC Bank","branch":"Andheri"}}`))
	})

	details, err := p.LookupIFSC(context.Background(), "HDFC0ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "Andheri", details.Branch)

	_, err = p.LookupIFSC(context.Background(), "ZZZZ0000000")
	assert.Equal(t, ErrorNotFound, GetCategory(err))
}

func TestHTTPProvider_Health(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, p.Health(context.Background()))
	assert.Equal(t, "test-registry", p.ID())
}
