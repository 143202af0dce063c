package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/irfndi/oddsradar-go/internal/api/handlers"
	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/cache"
	"github.com/irfndi/oddsradar-go/internal/metrics"
	"github.com/irfndi/oddsradar-go/internal/middleware"
	"github.com/irfndi/oddsradar-go/internal/models"
)

const testAPIKey = "routes-test-key"

type routeFixture struct {
	settings *handlers.MockSettingsRepository
	runner   *handlers.MockSyncRunner
	router   *gin.Engine
}

type noStats struct{}

func (noStats) Stats() cache.CacheStats { return cache.CacheStats{} }

func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &routeFixture{
		settings: new(handlers.MockSettingsRepository),
		runner:   new(handlers.MockSyncRunner),
	}
	db := new(handlers.MockHealthChecker)
	db.On("HealthCheck", mock.Anything).Return(nil)
	opps := new(handlers.MockOpportunityRepository)

	admin, err := middleware.NewAdminMiddleware("routes-secret", testAPIKey, bcrypt.MinCost, nil)
	require.NoError(t, err)

	f.router = gin.New()
	SetupRoutes(f.router, Handlers{
		Health:        handlers.NewHealthHandler(db, db, handlers.ConfiguredServices{}, "test", nil),
		Opportunities: handlers.NewOpportunityHandler(opps, nil, nil),
		Events:        handlers.NewEventHandler(new(handlers.MockEventRepository), new(handlers.MockLatestOddsReader), new(handlers.MockTrendAnalyzer)),
		Settings:      handlers.NewSettingsHandler(f.settings, nil),
		Sync:          handlers.NewSyncHandler(f.runner, new(handlers.MockSyncStateLister), opps, nil),
		Alerts:        handlers.NewAlertHandler(new(handlers.MockAlertLister), new(handlers.MockManualAlerter)),
		Calculate:     handlers.NewCalculateHandler(arbitrage.NewEngine(arbitrage.DefaultConfig())),
		Cache:         handlers.NewCacheHandler(noStats{}),
		Cleanup:       handlers.NewCleanupHandler(nil, nil),
		Stream: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusSwitchingProtocols)
		}),
	}, admin, metrics.New())
	return f
}

func serve(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_RegistersEndpoints(t *testing.T) {
	f := newRouteFixture(t)

	registered := map[string]bool{}
	for _, r := range f.router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /metrics",
		"GET /api/v1/health",
		"GET /api/v1/opportunities",
		"GET /api/v1/opportunities/stats",
		"GET /api/v1/opportunities/:id",
		"PATCH /api/v1/opportunities/:id/status",
		"GET /api/v1/events",
		"GET /api/v1/events/:id/trend",
		"GET /api/v1/settings",
		"PUT /api/v1/settings",
		"GET /api/v1/sync",
		"POST /api/v1/sync",
		"GET /api/v1/alerts",
		"POST /api/v1/alerts",
		"POST /api/v1/calculate",
		"GET /api/v1/cache/stats",
		"POST /api/v1/cleanup",
		"GET /api/v1/stream",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestSetupRoutes_AdminEndpointsRequireCredentials(t *testing.T) {
	f := newRouteFixture(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPatch, "/api/v1/opportunities/6f1c0e0a-9a4b-4f64-9a38-1b5d2f0c7e11/status"},
		{http.MethodPut, "/api/v1/settings"},
		{http.MethodPost, "/api/v1/sync"},
		{http.MethodPost, "/api/v1/alerts"},
		{http.MethodPost, "/api/v1/cleanup"},
	} {
		w := serve(f.router, tc.method, tc.path, "{}", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSetupRoutes_AdminWithAPIKey(t *testing.T) {
	f := newRouteFixture(t)
	settings := models.DefaultSettings()
	f.settings.On("Update", mock.Anything, mock.Anything).Return(&settings, nil)
	f.runner.On("RunOnce", mock.Anything, models.SyncSourceAll).Return(&models.SyncReport{}, nil)
	auth := map[string]string{"X-API-Key": testAPIKey}

	assert.Equal(t, http.StatusOK, serve(f.router, http.MethodPut, "/api/v1/settings", `{"min_margin":0.02}`, auth).Code)
	assert.Equal(t, http.StatusOK, serve(f.router, http.MethodPost, "/api/v1/sync", `{"source":"all"}`, auth).Code)
	f.settings.AssertExpectations(t)
	f.runner.AssertExpectations(t)
}

func TestSetupRoutes_PublicEndpoints(t *testing.T) {
	f := newRouteFixture(t)

	w := serve(f.router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = serve(f.router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = serve(f.router, http.MethodGet, "/api/v1/cache/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(f.router, http.MethodGet, "/api/v1/stream", "", nil)
	assert.Equal(t, http.StatusSwitchingProtocols, w.Code)
}
