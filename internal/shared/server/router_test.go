package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealbrief-backend/internal/deals"
	"dealbrief-backend/internal/generator"
	"dealbrief-backend/internal/services/health"
	"dealbrief-backend/internal/shared/config"
	"dealbrief-backend/internal/shared/server/middleware"
)

func newTestEngine(rps float64, burst int) http.Handler {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return NewRouter(RouterDeps{
		Config: config.Config{
			Env:              "dev",
			CORSAllowOrigins: []string{"http://localhost:5173"},
			RateLimitRPS:     rps,
			RateLimitBurst:   burst,
		},
		Deals:   deals.NewService(deals.NewMemoryStore(), generator.Offline{}, nil),
		Health:  health.NewService(nil),
		Limiter: middleware.NewRateLimiter(func() time.Time { return clock }),
	})
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealth(t *testing.T) {
	rec := serve(newTestEngine(1, 5), http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouterMetrics(t *testing.T) {
	engine := newTestEngine(0, 0)
	created := serve(engine, http.MethodPost, "/api/v1/deals", `{"raw_text":"Metrics Corp raises $1M seed round"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	rec := serve(engine, http.MethodGet, "/api/v1/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deal_brief_created_total")
	assert.Contains(t, rec.Body.String(), "deal_brief_duration_ms_bucket")
}

func TestRouterRateLimitsCreate(t *testing.T) {
	engine := newTestEngine(1, 1)

	first := serve(engine, http.MethodPost, "/api/v1/deals", `{"raw_text":"First Co raises $2M seed"}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := serve(engine, http.MethodPost, "/api/v1/deals", `{"raw_text":"Second Co raises $3M seed"}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), `"rate_limited"`)

	list := serve(engine, http.MethodGet, "/api/v1/deals", "")
	assert.Equal(t, http.StatusOK, list.Code)
}

func TestRouterUnknownDeal(t *testing.T) {
	rec := serve(newTestEngine(1, 5), http.MethodGet, "/api/v1/deals/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_found"`)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
