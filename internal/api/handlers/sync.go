package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/models"
)

type SyncRunner interface {
	RunOnce(ctx context.Context, source string) (*models.SyncReport, error)
	LastReport() *models.SyncReport
	IsRunning() bool
}

type SyncStateLister interface {
	List(ctx context.Context) ([]models.SyncState, error)
}

type OpportunityCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// SyncStatus is the body of GET /sync.
type SyncStatus struct {
	Running              bool               `json:"running"`
	States               []models.SyncState `json:"states"`
	OpportunitiesLast24h int                `json:"opportunities_last_24h"`
	LastSyncAt           *time.Time         `json:"last_sync_at,omitempty"`
	LastReport           *models.SyncReport `json:"last_report,omitempty"`
}

type SyncHandler struct {
	runner        SyncRunner
	states        SyncStateLister
	opportunities OpportunityCounter
	logger        *logrus.Logger
	now           func() time.Time
}

func NewSyncHandler(runner SyncRunner, states SyncStateLister, opportunities OpportunityCounter, logger *logrus.Logger) *SyncHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SyncHandler{
		runner:        runner,
		states:        states,
		opportunities: opportunities,
		logger:        logger,
		now:           time.Now,
	}
}

// GetStatus reports provider sync health.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	states, err := h.states.List(ctx)
	if err != nil {
		respondErr(c, err, "Failed to load sync state")
		return
	}
	count, err := h.opportunities.CountSince(ctx, h.now().Add(-24*time.Hour))
	if err != nil {
		respondErr(c, err, "Failed to count opportunities")
		return
	}

	status := SyncStatus{
		Running:              h.runner.IsRunning(),
		States:               states,
		OpportunitiesLast24h: count,
		LastReport:           h.runner.LastReport(),
	}
	for _, st := range states {
		if st.LastSyncAt != nil && (status.LastSyncAt == nil || st.LastSyncAt.After(*status.LastSyncAt)) {
			status.LastSyncAt = st.LastSyncAt
		}
	}
	respond(c, http.StatusOK, status)
}

// TriggerSync runs one sync cycle for the requested source and returns its
// report. An empty body syncs every source.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	var req models.SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Source == "" {
		req.Source = models.SyncSourceAll
	}

	report, err := h.runner.RunOnce(c.Request.Context(), req.Source)
	if err != nil {
		respondErr(c, err, "Sync failed")
		return
	}
	h.logger.WithFields(logrus.Fields{
		"source":        req.Source,
		"opportunities": report.OpportunitiesDetected,
		"duration":      report.Duration,
	}).Info("Manual sync completed")
	respond(c, http.StatusOK, report)
}
