package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/middleware"
	"github.com/irfndi/oddsradar-go/internal/models"
)

type SettingsRepository interface {
	Get(ctx context.Context) (*models.UserSettings, error)
	Update(ctx context.Context, in models.SettingsInput) (*models.UserSettings, error)
}

type SettingsHandler struct {
	repo   SettingsRepository
	logger *logrus.Logger
}

func NewSettingsHandler(repo SettingsRepository, logger *logrus.Logger) *SettingsHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SettingsHandler{repo: repo, logger: logger}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.repo.Get(c.Request.Context())
	if err != nil {
		respondErr(c, err, "Failed to load settings")
		return
	}
	respond(c, http.StatusOK, settings)
}

// UpdateSettings applies a partial update. Omitted fields keep their value.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var in models.SettingsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respondErr(c, err, "Invalid settings")
		return
	}

	settings, err := h.repo.Update(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err, "Failed to update settings")
		return
	}
	if !in.IsEmpty() {
		h.logger.WithField("subject", c.GetString(middleware.ContextAuthSubject)).Info("Alert settings updated")
	}
	respond(c, http.StatusOK, settings)
}
