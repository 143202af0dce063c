package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/models"
)

func settingsRouter(repo *MockSettingsRepository) *gin.Engine {
	h := NewSettingsHandler(repo, nil)
	router := gin.New()
	router.GET("/settings", h.GetSettings)
	router.PUT("/settings", h.UpdateSettings)
	return router
}

func TestGetSettings(t *testing.T) {
	repo := new(MockSettingsRepository)
	settings := models.DefaultSettings()
	repo.On("Get", mock.Anything).Return(&settings, nil)

	w := performRequest(settingsRouter(repo), http.MethodGet, "/settings", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.UserSettings
	decodeEnvelope(t, w, &got)
	assert.Equal(t, settings.MinMargin, got.MinMargin)
}

func TestUpdateSettings(t *testing.T) {
	repo := new(MockSettingsRepository)
	updated := models.DefaultSettings()
	updated.MinMargin = 0.02
	updated.SportsFilter = []string{"soccer_epl"}
	repo.On("Update", mock.Anything, mock.MatchedBy(func(in models.SettingsInput) bool {
		return in.MinMargin != nil && *in.MinMargin == 0.02 &&
			in.SportsFilter != nil && len(*in.SportsFilter) == 1 &&
			in.Timezone == nil
	})).Return(&updated, nil)

	w := performRequest(settingsRouter(repo), http.MethodPut, "/settings",
		`{"min_margin":0.02,"sports_filter":["soccer_epl"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.UserSettings
	decodeEnvelope(t, w, &got)
	assert.Equal(t, 0.02, got.MinMargin)
	assert.Equal(t, []string{"soccer_epl"}, got.SportsFilter)
	repo.AssertExpectations(t)
}

func TestUpdateSettings_Invalid(t *testing.T) {
	repo := new(MockSettingsRepository)
	router := settingsRouter(repo)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"min_margin":`},
		{"margin out of range", `{"min_margin":1.5}`},
		{"unknown latency risk", `{"max_latency_risk":"extreme"}`},
		{"bad webhook", `{"webhook_url":"ftp://example.com"}`},
		{"bad quiet hours", `{"quiet_hours_start":"25:00"}`},
		{"unknown timezone", `{"timezone":"Mars/Olympus"}`},
		{"wrong type", `{"min_liquidity":"high"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPut, "/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, decodeEnvelope(t, w, nil).Success)
		})
	}
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
