package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/services"
)

// CleanupRunner defines the interface for cleanup operations
type CleanupRunner interface {
	RunCleanup(ctx context.Context) (*services.CleanupResult, error)
}

// CleanupHandler handles cleanup-related API endpoints
type CleanupHandler struct {
	cleanup CleanupRunner
	logger  *logrus.Logger
}

// NewCleanupHandler creates a new cleanup handler
func NewCleanupHandler(cleanup CleanupRunner, logger *logrus.Logger) *CleanupHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CleanupHandler{cleanup: cleanup, logger: logger}
}

// TriggerCleanup runs one expiry and retention pass synchronously and reports
// the rows it touched.
func (h *CleanupHandler) TriggerCleanup(c *gin.Context) {
	result, err := h.cleanup.RunCleanup(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Manual cleanup failed")
		respondErr(c, err, "Failed to run cleanup")
		return
	}
	respond(c, http.StatusOK, result)
}
