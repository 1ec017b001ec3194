package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type countingLimiter struct{ calls int }

func (c *countingLimiter) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	c.calls++
	return true, int64(c.calls), nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: "dev"},
		JWT:       config.JWTConfig{Secret: "s", Issuer: "orderdesk"},
		Auth:      config.AuthConfig{AllowDummyTokens: true},
		RateLimit: config.RateLimitConfig{PerMinute: 100, Window: time.Minute},
	}
}

func newTestRouter(cfg *config.Config, limiter *countingLimiter) http.Handler {
	return NewRouter(cfg, logger.Nop(), Dependencies{
		DB:          okPinger{},
		Redis:       okPinger{},
		RateLimiter: limiter,
		Gatherer:    prometheus.NewRegistry(),
	})
}

func serve(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicEndpoints(t *testing.T) {
	limiter := &countingLimiter{}
	h := newTestRouter(testConfig(), limiter)

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health/live", "", "").Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/health/ready", "", "").Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/metrics", "", "").Code)

	ping := serve(h, http.MethodGet, "/api/v1/ping", "", "")
	require.Equal(t, http.StatusOK, ping.Code)
	require.Equal(t, 1, limiter.calls)
}

func TestRouterRoleGates(t *testing.T) {
	h := newTestRouter(testConfig(), &countingLimiter{})

	require.Equal(t, http.StatusUnauthorized, serve(h, http.MethodPost, "/api/v1/orders/quotes", "", `{}`).Code)
	require.Equal(t, http.StatusForbidden, serve(h, http.MethodGet, "/api/v1/admin/pricing/rulesets/active", "dummy.sales.u1", "").Code)

	// nil services render an internal error once the gates pass.
	require.Equal(t, http.StatusInternalServerError, serve(h, http.MethodGet, "/api/v1/admin/pricing/rulesets/active", "dummy.admin.u1", "").Code)
	require.Equal(t, http.StatusInternalServerError, serve(h, http.MethodPost, "/api/v1/orders", "dummy.sales.u1", `{}`).Code)
}

func TestRouterDummyTokensIgnoredInProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = "prod"
	h := newTestRouter(cfg, &countingLimiter{})

	require.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/v1/warehouses", "dummy.admin.u1", "").Code)
}
