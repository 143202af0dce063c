package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

var startTime = time.Now()

const healthCheckTimeout = 3 * time.Second

// HealthChecker is satisfied by the Postgres and Redis connections.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConfiguredServices lists which optional integrations have credentials.
type ConfiguredServices struct {
	OddsAPI  bool
	Telegram bool
	Email    bool
}

type HealthHandler struct {
	db       HealthChecker
	redis    HealthChecker
	services ConfiguredServices
	version  string
	logger   *logrus.Logger
}

type SystemStats struct {
	MemoryTotalMB   uint64  `json:"memory_total_mb"`
	MemoryUsedMB    uint64  `json:"memory_used_mb"`
	MemoryUsedPct   float64 `json:"memory_used_percent"`
	CPUCount        int     `json:"cpu_count"`
	Goroutines      int     `json:"goroutines"`
	HeapAllocMB     uint64  `json:"heap_alloc_mb"`
	CollectionError string  `json:"collection_error,omitempty"`
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
	System   SystemStats       `json:"system"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
}

func NewHealthHandler(db, redis HealthChecker, services ConfiguredServices, version string, logger *logrus.Logger) *HealthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HealthHandler{
		db:       db,
		redis:    redis,
		services: services,
		version:  version,
		logger:   logger,
	}
}

// HealthCheck reports dependency status. The service is degraded, and the
// endpoint answers 503, when the database or Redis is unreachable; missing
// notifier credentials are reported but do not degrade it.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	services := map[string]string{
		"database": checkDependency(ctx, h.db),
		"redis":    checkDependency(ctx, h.redis),
		"odds_api": configured(h.services.OddsAPI),
		"telegram": configured(h.services.Telegram),
		"email":    configured(h.services.Email),
	}

	status := "healthy"
	if services["database"] != "healthy" || services["redis"] != "healthy" {
		status = "degraded"
		h.logger.WithFields(logrus.Fields{
			"database": services["database"],
			"redis":    services["redis"],
		}).Warn("Health check degraded")
	}

	response := HealthResponse{
		Status:   status,
		Services: services,
		System:   collectSystemStats(ctx),
		Version:  h.version,
		Uptime:   time.Since(startTime).Round(time.Second).String(),
	}

	if status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, Response{
			Success:   false,
			Data:      response,
			Error:     "Service degraded",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	respond(c, http.StatusOK, response)
}

func checkDependency(ctx context.Context, checker HealthChecker) string {
	if checker == nil {
		return "unhealthy: not configured"
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func collectSystemStats(ctx context.Context) SystemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats := SystemStats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: ms.HeapAlloc / 1024 / 1024,
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		stats.CollectionError = err.Error()
		return stats
	}
	stats.MemoryTotalMB = vm.Total / 1024 / 1024
	stats.MemoryUsedMB = vm.Used / 1024 / 1024
	stats.MemoryUsedPct = vm.UsedPercent

	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.CPUCount = n
	}
	return stats
}
