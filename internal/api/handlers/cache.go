package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/oddsradar-go/internal/cache"
)

// CacheStatsSource exposes the hit/miss counters of the opportunity cache.
type CacheStatsSource interface {
	Stats() cache.CacheStats
}

// CacheStatsResponse is the body of GET /cache/stats.
type CacheStatsResponse struct {
	cache.CacheStats
	HitRate float64 `json:"hit_rate"`
}

// CacheHandler handles cache monitoring endpoints
type CacheHandler struct {
	source CacheStatsSource
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(source CacheStatsSource) *CacheHandler {
	return &CacheHandler{source: source}
}

// GetCacheStats returns the opportunity cache counters since startup.
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	stats := h.source.Stats()
	respond(c, http.StatusOK, CacheStatsResponse{CacheStats: stats, HitRate: stats.HitRate()})
}
