package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/cache"
	"github.com/irfndi/oddsradar-go/internal/services"
)

type staticStats cache.CacheStats

func (s staticStats) Stats() cache.CacheStats { return cache.CacheStats(s) }

type cleanupFunc func(ctx context.Context) (*services.CleanupResult, error)

func (f cleanupFunc) RunCleanup(ctx context.Context) (*services.CleanupResult, error) { return f(ctx) }

func TestGetCacheStats(t *testing.T) {
	h := NewCacheHandler(staticStats{Hits: 3, Misses: 1, Sets: 2})
	router := gin.New()
	router.GET("/cache/stats", h.GetCacheStats)

	w := performRequest(router, http.MethodGet, "/cache/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got CacheStatsResponse
	decodeEnvelope(t, w, &got)
	assert.Equal(t, int64(3), got.Hits)
	assert.Equal(t, 75.0, got.HitRate)
}

func TestTriggerCleanup(t *testing.T) {
	router := gin.New()
	router.POST("/cleanup", NewCleanupHandler(cleanupFunc(func(context.Context) (*services.CleanupResult, error) {
		return &services.CleanupResult{Expired: 2, SnapshotsDeleted: 40}, nil
	}), nil).TriggerCleanup)
	router.POST("/cleanup-broken", NewCleanupHandler(cleanupFunc(func(context.Context) (*services.CleanupResult, error) {
		return nil, errors.New("delete snapshots: timeout")
	}), nil).TriggerCleanup)

	w := performRequest(router, http.MethodPost, "/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got services.CleanupResult
	decodeEnvelope(t, w, &got)
	assert.Equal(t, int64(2), got.Expired)
	assert.Equal(t, int64(40), got.SnapshotsDeleted)

	w = performRequest(router, http.MethodPost, "/cleanup-broken", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
