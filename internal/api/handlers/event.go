package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/services"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 500
)

type EventRepository interface {
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

type LatestOddsReader interface {
	LatestForEvents(ctx context.Context, eventIDs []string) (map[string][]models.QuoteSnapshot, error)
}

type TrendAnalyzer interface {
	Trend(ctx context.Context, eventID, market string) (*services.OddsTrend, error)
}

type EventHandler struct {
	events EventRepository
	odds   LatestOddsReader
	trends TrendAnalyzer
	now    func() time.Time
}

func NewEventHandler(events EventRepository, odds LatestOddsReader, trends TrendAnalyzer) *EventHandler {
	return &EventHandler{events: events, odds: odds, trends: trends, now: time.Now}
}

// ListEvents returns upcoming scheduled events with the latest quote of each
// bookmaker.
func (h *EventHandler) ListEvents(c *gin.Context) {
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEventLimit {
			respondError(c, http.StatusBadRequest, "Invalid limit parameter (1-500)")
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	events, err := h.events.ListUpcoming(ctx, h.now(), limit)
	if err != nil {
		respondErr(c, err, "Failed to list events")
		return
	}

	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	latest := map[string][]models.QuoteSnapshot{}
	if len(ids) > 0 {
		latest, err = h.odds.LatestForEvents(ctx, ids)
		if err != nil {
			respondErr(c, err, "Failed to load latest odds")
			return
		}
	}

	out := make([]models.EventWithOdds, 0, len(events))
	for _, ev := range events {
		quotes := latest[ev.ID]
		if quotes == nil {
			quotes = []models.QuoteSnapshot{}
		}
		out = append(out, models.EventWithOdds{Event: ev, LatestOdds: quotes})
	}
	respond(c, http.StatusOK, out)
}

// GetTrend returns the best-price trend of one market of an event.
func (h *EventHandler) GetTrend(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	market := c.DefaultQuery("market", models.MarketH2H)

	ctx := c.Request.Context()
	if _, err := h.events.GetByID(ctx, id); err != nil {
		respondErr(c, err, "Failed to load event")
		return
	}
	trend, err := h.trends.Trend(ctx, id, market)
	if err != nil {
		respondErr(c, err, "Failed to compute odds trend")
		return
	}
	respond(c, http.StatusOK, trend)
}
