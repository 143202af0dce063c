package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/models"
)

const (
	defaultOpportunityLimit = 50
	maxOpportunityLimit     = 500
)

// OpportunityRepository is the persistence the opportunity endpoints need.
type OpportunityRepository interface {
	ListActive(ctx context.Context, filter models.OpportunityFilter) ([]models.Opportunity, error)
	GetByID(ctx context.Context, id string) (*models.Opportunity, error)
	UpdateStatus(ctx context.Context, id string, next models.OpportunityStatus) error
	Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error)
}

// OpportunityCache holds the unfiltered active listing and dashboard stats.
type OpportunityCache interface {
	GetActive(ctx context.Context) ([]models.Opportunity, bool)
	SetActive(ctx context.Context, opportunities []models.Opportunity)
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, bool)
	SetDashboardStats(ctx context.Context, stats *models.DashboardStats)
	Invalidate(ctx context.Context) error
}

type OpportunityHandler struct {
	repo   OpportunityRepository
	cache  OpportunityCache
	logger *logrus.Logger
	now    func() time.Time
}

// NewOpportunityHandler creates the handler. cache may be nil.
func NewOpportunityHandler(repo OpportunityRepository, cache OpportunityCache, logger *logrus.Logger) *OpportunityHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OpportunityHandler{repo: repo, cache: cache, logger: logger, now: time.Now}
}

// ListOpportunities returns active opportunities, newest first.
//
// Query parameters:
//   - limit: 1..500, default 50.
//   - sport: sport key filter.
//   - min_grade: lowest accepted quality grade (A-F).
func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	filter := models.OpportunityFilter{
		SportKey: c.Query("sport"),
		MinGrade: arbitrage.Grade(c.Query("min_grade")),
		Limit:    defaultOpportunityLimit,
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxOpportunityLimit {
			respondError(c, http.StatusBadRequest, "Invalid limit parameter (1-500)")
			return
		}
		filter.Limit = limit
	}
	if filter.MinGrade != "" && filter.MinGrade.Rank() < 0 {
		respondError(c, http.StatusBadRequest, "Invalid min_grade parameter (A-F)")
		return
	}

	ctx := c.Request.Context()
	cacheable := h.cache != nil && filter.SportKey == "" && filter.MinGrade == "" && filter.Limit <= defaultOpportunityLimit
	if cacheable {
		if cached, ok := h.cache.GetActive(ctx); ok {
			c.Header("X-Cache", "HIT")
			respond(c, http.StatusOK, truncate(cached, filter.Limit))
			return
		}
	}

	query := filter
	if cacheable {
		query.Limit = defaultOpportunityLimit
	}
	opportunities, err := h.repo.ListActive(ctx, query)
	if err != nil {
		respondErr(c, err, "Failed to list opportunities")
		return
	}
	if cacheable {
		h.cache.SetActive(ctx, opportunities)
		c.Header("X-Cache", "MISS")
	}
	respond(c, http.StatusOK, truncate(opportunities, filter.Limit))
}

// GetOpportunity returns one opportunity by id.
func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err, "Failed to load opportunity")
		return
	}
	respond(c, http.StatusOK, o)
}

// UpdateStatus moves an opportunity along its lifecycle. Transitions out of
// a terminal status answer 409.
func (h *OpportunityHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Status.Valid() {
		respondError(c, http.StatusBadRequest, "Unknown status "+strconv.Quote(string(req.Status)))
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		respondErr(c, err, "Failed to update opportunity")
		return
	}
	h.invalidate(ctx)

	o, err := h.repo.GetByID(ctx, id)
	if err != nil {
		respondErr(c, err, "Failed to load opportunity")
		return
	}
	h.logger.WithFields(logrus.Fields{
		"opportunity_id": id,
		"status":         req.Status,
	}).Info("Opportunity status updated")
	respond(c, http.StatusOK, o)
}

// GetStats returns the dashboard summary, cached between syncs.
func (h *OpportunityHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	if h.cache != nil {
		if stats, ok := h.cache.GetDashboardStats(ctx); ok {
			respond(c, http.StatusOK, stats)
			return
		}
	}
	stats, err := h.repo.Stats(ctx, h.now())
	if err != nil {
		respondErr(c, err, "Failed to load stats")
		return
	}
	if h.cache != nil {
		h.cache.SetDashboardStats(ctx, stats)
	}
	respond(c, http.StatusOK, stats)
}

func (h *OpportunityHandler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate opportunity cache")
	}
}

func truncate(opportunities []models.Opportunity, limit int) []models.Opportunity {
	if len(opportunities) > limit {
		return opportunities[:limit]
	}
	return opportunities
}
