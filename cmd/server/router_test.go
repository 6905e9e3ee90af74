package main

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	jwttoken "onboard/internal/jwt_token"
	"onboard/internal/kyc/handler"
	kycmetrics "onboard/internal/kyc/metrics"
	"onboard/internal/kyc/providers"
	"onboard/internal/kyc/service"
	"onboard/internal/kyc/store"
	httpmetrics "onboard/internal/platform/metrics"
	"onboard/pkg/requestcontext"
	"onboard/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	router http.Handler
	jwt    *jwttoken.JWTService
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupSuite() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := providers.NewMockProvider(0)
	svc := service.New(store.NewInMemory(), provider,
		service.WithLogger(log),
		service.WithMetrics(kycmetrics.New(prometheus.NewRegistry())),
	)
	s.jwt = jwttoken.NewJWTService("router-test-key", "onboard", "onboard-api")
	s.router = newRouter(log, httpmetrics.New(), jwttoken.NewJWTServiceAdapter(s.jwt),
		handler.New(svc, log), newHealthHandler(&infra{}, provider))
}

func (s *RouterSuite) token(role string) string {
	tok, err := s.jwt.GenerateAccessToken(uuid.New(), uuid.Nil, role, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path, token string, body any) *http.Response {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req).Result()
}

func (s *RouterSuite) TestHealthWithoutBackingServices() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/healthz", nil))
	s.Equal(http.StatusOK, rr.Code)
	body := testutil.DecodeBody(s.T(), rr)
	s.Equal(true, body["healthy"])
	s.Equal(map[string]any{"provider": "ok"}, body["checks"])
}

func (s *RouterSuite) TestMetricsEndpoint() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/metrics", "", nil).StatusCode)
}

func (s *RouterSuite) TestKYCRoutesRequireToken() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/kyc/case", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/kyc/case", "not-a-jwt", nil).StatusCode)
}

func (s *RouterSuite) TestSellerFlowThroughMiddleware() {
	seller := s.token("")

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/kyc/agreement", seller, map[string]string{"version": "2024-01"}).StatusCode)

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/kyc/case", nil)
	req.Header.Set("Authorization", "Bearer "+seller)
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	body := testutil.DecodeBody(s.T(), rr)
	s.Equal("DRAFT", body["state"])
	s.Equal("2024-01", body["agreement_version"])
}

func (s *RouterSuite) TestAdminRoutesRequireAdminRole() {
	s.Equal(http.StatusForbidden, s.do(http.MethodGet, "/admin/kyc/cases", s.token(""), nil).StatusCode)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/admin/kyc/cases", s.token(requestcontext.RoleAdmin), nil).StatusCode)
}
