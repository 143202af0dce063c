package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/config"
	"github.com/irfndi/oddsradar-go/internal/metrics"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := &config.Config{Environment: "test"}
	cfg.Webhook.Timeout = 5 * time.Second
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          10 * time.Second,
		MaxRequests:      3,
		ResetTimeout:     time.Minute,
	}
	return cfg
}

func channels(notifiers []services.Notifier) []models.AlertChannel {
	out := make([]models.AlertChannel, 0, len(notifiers))
	for _, n := range notifiers {
		out = append(out, n.Channel())
	}
	return out
}

func TestBuildSources(t *testing.T) {
	logger, hook := test.NewNullLogger()

	t.Run("polymarket only without api key", func(t *testing.T) {
		hook.Reset()
		sources := buildSources(testConfig(), logger)

		require.Len(t, sources, 1)
		assert.Contains(t, sources, models.SyncSourcePolymarket)
		require.NotEmpty(t, hook.Entries)
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	})

	t.Run("odds api enabled with key", func(t *testing.T) {
		cfg := testConfig()
		cfg.OddsAPI.APIKey = "test-key"

		sources := buildSources(cfg, logger)

		require.Len(t, sources, 2)
		assert.Contains(t, sources, models.SyncSourceOddsAPI)
		assert.Contains(t, sources, models.SyncSourcePolymarket)
	})
}

func TestBuildNotifiers(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("webhook is always available", func(t *testing.T) {
		notifiers, err := buildNotifiers(testConfig(), logger)
		require.NoError(t, err)
		assert.Equal(t, []models.AlertChannel{models.ChannelWebhook}, channels(notifiers))
	})

	t.Run("every configured channel", func(t *testing.T) {
		cfg := testConfig()
		cfg.Telegram.BotToken = "123456:test-token"
		cfg.Telegram.DefaultChatID = "42"
		cfg.Email.ResendAPIKey = "re_test"
		cfg.Email.From = "alerts@example.com"
		cfg.Email.APIURL = "https://api.resend.com"

		notifiers, err := buildNotifiers(cfg, logger)
		require.NoError(t, err)
		assert.Equal(t, []models.AlertChannel{
			models.ChannelTelegram,
			models.ChannelEmail,
			models.ChannelWebhook,
		}, channels(notifiers))
	})
}

func TestNewBreaker(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cb := newBreaker(models.SyncSourcePolymarket, testConfig(), logger)

	require.NotNil(t, cb)
	assert.Equal(t, services.Closed, cb.GetState())
}

func TestNewRouter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := metrics.New()

	router := newRouter(testConfig(), m, logger)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.NotEmpty(t, hook.Entries, "request should be logged")
}

func TestNewRouter_RecoversFromPanic(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := newRouter(testConfig(), metrics.New(), logger)
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRun_ConfigError(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
