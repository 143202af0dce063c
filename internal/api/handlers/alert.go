package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/irfndi/oddsradar-go/internal/models"
)

const recentAlertLimit = 50

type AlertLister interface {
	ListRecent(ctx context.Context, limit int) ([]models.Alert, error)
}

type ManualAlerter interface {
	SendManual(ctx context.Context, opportunityID string, channel models.AlertChannel, recipient string) (*models.Alert, error)
}

type AlertHandler struct {
	alerts AlertLister
	sender ManualAlerter
}

func NewAlertHandler(alerts AlertLister, sender ManualAlerter) *AlertHandler {
	return &AlertHandler{alerts: alerts, sender: sender}
}

// ListAlerts returns the latest alerts, newest first.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListRecent(c.Request.Context(), recentAlertLimit)
	if err != nil {
		respondErr(c, err, "Failed to list alerts")
		return
	}
	respond(c, http.StatusOK, alerts)
}

// SendAlert delivers an alert for a stored opportunity on one channel. The
// user's alert filters do not apply. A delivery failure is reported as 502
// and the failed alert row is kept.
func (h *AlertHandler) SendAlert(c *gin.Context) {
	var req models.ManualAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := uuid.Parse(req.OpportunityID); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid opportunity_id")
		return
	}

	alert, err := h.sender.SendManual(c.Request.Context(), req.OpportunityID, req.Channel, req.Recipient)
	if err != nil {
		respondErr(c, err, "Failed to send alert")
		return
	}
	if alert.Status != models.AlertSent {
		respondError(c, http.StatusBadGateway, "Alert delivery failed: "+alert.ErrorMessage)
		return
	}
	respond(c, http.StatusCreated, alert)
}
