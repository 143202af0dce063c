package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/oddsradar-go/internal/api/handlers"
	"github.com/irfndi/oddsradar-go/internal/metrics"
	"github.com/irfndi/oddsradar-go/internal/middleware"
)

// Handlers bundles everything SetupRoutes mounts.
type Handlers struct {
	Health        *handlers.HealthHandler
	Opportunities *handlers.OpportunityHandler
	Events        *handlers.EventHandler
	Settings      *handlers.SettingsHandler
	Sync          *handlers.SyncHandler
	Alerts        *handlers.AlertHandler
	Calculate     *handlers.CalculateHandler
	Cache         *handlers.CacheHandler
	Cleanup       *handlers.CleanupHandler
	Stream        http.Handler
}

func SetupRoutes(router *gin.Engine, h Handlers, admin *middleware.AdminMiddleware, m *metrics.Metrics) {
	// Health check endpoint
	router.GET("/health", h.Health.HealthCheck)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	requireAdmin := admin.RequireAdmin()

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health.HealthCheck)

		opportunities := v1.Group("/opportunities")
		{
			opportunities.GET("", h.Opportunities.ListOpportunities)
			opportunities.GET("/stats", h.Opportunities.GetStats)
			opportunities.GET("/:id", h.Opportunities.GetOpportunity)
			opportunities.PATCH("/:id/status", requireAdmin, h.Opportunities.UpdateStatus)
		}

		events := v1.Group("/events")
		{
			events.GET("", h.Events.ListEvents)
			events.GET("/:id/trend", h.Events.GetTrend)
		}

		settings := v1.Group("/settings")
		{
			settings.GET("", h.Settings.GetSettings)
			settings.PUT("", requireAdmin, h.Settings.UpdateSettings)
		}

		sync := v1.Group("/sync")
		{
			sync.GET("", h.Sync.GetStatus)
			sync.POST("", requireAdmin, h.Sync.TriggerSync)
		}

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", h.Alerts.ListAlerts)
			alerts.POST("", requireAdmin, h.Alerts.SendAlert)
		}

		v1.POST("/calculate", h.Calculate.Calculate)
		v1.GET("/cache/stats", h.Cache.GetCacheStats)
		v1.POST("/cleanup", requireAdmin, h.Cleanup.TriggerCleanup)

		if h.Stream != nil {
			v1.GET("/stream", gin.WrapH(h.Stream))
		}
	}
}
