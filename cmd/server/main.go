package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/api"
	"github.com/irfndi/oddsradar-go/internal/api/handlers"
	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/cache"
	"github.com/irfndi/oddsradar-go/internal/config"
	"github.com/irfndi/oddsradar-go/internal/connectors"
	"github.com/irfndi/oddsradar-go/internal/connectors/oddsapi"
	"github.com/irfndi/oddsradar-go/internal/connectors/polymarket"
	"github.com/irfndi/oddsradar-go/internal/database"
	"github.com/irfndi/oddsradar-go/internal/logging"
	"github.com/irfndi/oddsradar-go/internal/metrics"
	"github.com/irfndi/oddsradar-go/internal/middleware"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/services"
	"github.com/irfndi/oddsradar-go/internal/stream"
	"github.com/irfndi/oddsradar-go/internal/telemetry"
)

const (
	serviceName     = "oddsradar-go"
	serviceVersion  = "1.0.0"
	shutdownTimeout = 30 * time.Second
	snapshotLimit   = 50
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	version := cfg.Telemetry.ServiceVersion
	if version == "" {
		version = serviceVersion
	}

	provider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Exporter:       cfg.Telemetry.Exporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownWithTimeout(logger, "telemetry", provider.Shutdown)

	logShutdown, err := logging.SetupOTLP(ctx, logger, logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint != "",
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
	})
	if err != nil {
		logger.WithError(err).Warn("OTLP log export disabled")
	} else {
		defer shutdownWithTimeout(logger, "log exporter", logShutdown)
	}

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	pool := database.NewTracedDB(db.Pool)
	if err := database.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	bookmakers := database.NewBookmakerRepository(pool)
	if err := bookmakers.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed bookmakers: %w", err)
	}
	events := database.NewEventRepository(pool)
	odds := database.NewOddsRepository(pool)
	opportunities := database.NewOpportunityRepository(pool)
	settings := database.NewSettingsRepository(pool)
	alerts := database.NewAlertRepository(pool)
	syncStates := database.NewSyncStateRepository(pool)

	m := metrics.New()
	opportunityCache := cache.NewOpportunityCache(redisClient.Client, cache.DefaultOpportunityTTL, logger)
	dedup := cache.NewAlertDeduplicator(redisClient.Client, cfg.Alerts.DedupTTL)
	limiter := cache.NewAlertRateLimiter(redisClient.Client, cfg.Alerts.MaxPerMinute)

	engine := arbitrage.NewEngine(cfg.Arbitrage.Config)
	trends := services.NewOddsTrendService(odds, logger)

	notifiers, err := buildNotifiers(cfg, logger)
	if err != nil {
		return err
	}
	dispatcher := services.NewAlertDispatcher(settings, alerts, opportunities, dedup, limiter, notifiers, m, logger)

	hub := stream.NewHub(stream.SnapshotFunc(func(ctx context.Context) ([]models.Opportunity, error) {
		return opportunities.ListActive(ctx, models.OpportunityFilter{Limit: snapshotLimit})
	}), m, logger)
	go hub.Run(ctx)

	syncService := services.NewSyncService(services.SyncDependencies{
		Sources:       buildSources(cfg, logger),
		Engine:        engine,
		Bookmakers:    bookmakers,
		Events:        events,
		Odds:          odds,
		Opportunities: opportunities,
		SyncState:     syncStates,
		Cache:         opportunityCache,
		Publisher:     hub,
		Alerter:       dispatcher,
		Volatility:    trends,
		Metrics:       m,
	}, services.SyncConfig{
		Interval:              cfg.Sync.Interval,
		SnapshotWindow:        cfg.Arbitrage.SnapshotWindow,
		MaxWorkers:            cfg.Arbitrage.MaxWorkers,
		DefaultLiquidityScore: cfg.Arbitrage.DefaultLiquidityScore,
		DefaultReliability:    cfg.Arbitrage.DefaultReliability,
		Volatility:            cfg.Arbitrage.Volatility,
	}, logger)
	if cfg.Sync.Enabled {
		if err := syncService.Start(); err != nil {
			return fmt.Errorf("failed to start sync service: %w", err)
		}
		defer syncService.Stop()
	} else {
		logger.Info("Scheduled sync disabled, manual triggers only")
	}

	cleanupService := services.NewCleanupService(opportunities, odds, opportunities, alerts, services.CleanupConfig{
		Interval:             cfg.Cleanup.Interval,
		SnapshotRetention:    cfg.Cleanup.SnapshotRetention,
		OpportunityRetention: cfg.Cleanup.OpportunityRetention,
		AlertRetention:       cfg.Cleanup.AlertRetention,
	}, logger)
	cleanupService.Start()
	defer cleanupService.Stop()

	admin, err := middleware.NewAdminMiddleware(cfg.Auth.JWTSecret, cfg.Auth.AdminAPIKey, cfg.Auth.BcryptCost, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize admin auth: %w", err)
	}

	router := newRouter(cfg, m, logger)
	api.SetupRoutes(router, api.Handlers{
		Health: handlers.NewHealthHandler(db, redisClient, handlers.ConfiguredServices{
			OddsAPI:  cfg.OddsAPI.APIKey != "",
			Telegram: cfg.Telegram.BotToken != "",
			Email:    cfg.Email.ResendAPIKey != "",
		}, version, logger),
		Opportunities: handlers.NewOpportunityHandler(opportunities, opportunityCache, logger),
		Events:        handlers.NewEventHandler(events, odds, trends),
		Settings:      handlers.NewSettingsHandler(settings, logger),
		Sync:          handlers.NewSyncHandler(syncService, syncStates, opportunities, logger),
		Alerts:        handlers.NewAlertHandler(alerts, dispatcher),
		Calculate:     handlers.NewCalculateHandler(engine),
		Cache:         handlers.NewCacheHandler(opportunityCache),
		Cleanup:       handlers.NewCleanupHandler(cleanupService, logger),
		Stream:        http.HandlerFunc(hub.ServeWS),
	}, admin, m)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogStartup(logger, serviceName, version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logging.LogShutdown(logger, serviceName, "signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

func newRouter(cfg *config.Config, m *metrics.Metrics, logger *logrus.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing(serviceName))
	router.Use(middleware.HTTPMetrics(m))
	router.Use(middleware.RequestLogger(logger))
	return router
}

// buildSources returns the enabled odds providers keyed by sync source name.
// The Odds API needs a key; Polymarket is public.
func buildSources(cfg *config.Config, logger *logrus.Logger) map[string]connectors.Source {
	sources := make(map[string]connectors.Source, 2)
	if cfg.OddsAPI.APIKey != "" {
		sources[models.SyncSourceOddsAPI] = oddsapi.NewClient(cfg.OddsAPI, newBreaker(models.SyncSourceOddsAPI, cfg, logger), logger)
	} else {
		logger.Warn("ODDS_API_KEY not set, The Odds API sync disabled")
	}
	sources[models.SyncSourcePolymarket] = polymarket.NewClient(cfg.Polymarket, newBreaker(models.SyncSourcePolymarket, cfg, logger), logger)
	return sources
}

func newBreaker(name string, cfg *config.Config, logger *logrus.Logger) *services.CircuitBreaker {
	return services.NewCircuitBreaker(name, services.CircuitBreakerConfig{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
		MaxRequests:      cfg.CircuitBreaker.MaxRequests,
		ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
	}, logger)
}

// buildNotifiers returns a notifier per configured channel. Webhooks carry
// their target in the recipient and are always available.
func buildNotifiers(cfg *config.Config, logger *logrus.Logger) ([]services.Notifier, error) {
	var out []services.Notifier
	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.DefaultChatID, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
		}
		out = append(out, tg)
	}
	if cfg.Email.ResendAPIKey != "" {
		email, err := services.NewEmailNotifier(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.APIURL, cfg.Webhook.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create email notifier: %w", err)
		}
		out = append(out, email)
	}
	out = append(out, services.NewWebhookNotifier(cfg.Webhook.Timeout))
	return out, nil
}

func shutdownWithTimeout(logger *logrus.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.WithError(err).WithField("component", name).Warn("Shutdown failed")
	}
}
