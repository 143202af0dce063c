package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

type syncFixture struct {
	runner *MockSyncRunner
	states *MockSyncStateLister
	opps   *MockOpportunityRepository
	router *gin.Engine
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		runner: new(MockSyncRunner),
		states: new(MockSyncStateLister),
		opps:   new(MockOpportunityRepository),
	}
	h := NewSyncHandler(f.runner, f.states, f.opps, nil)
	h.now = func() time.Time { return fixedTime }
	f.router = gin.New()
	f.router.GET("/sync", h.GetStatus)
	f.router.POST("/sync", h.TriggerSync)
	return f
}

func TestGetSyncStatus(t *testing.T) {
	f := newSyncFixture()
	older := fixedTime.Add(-10 * time.Minute)
	newer := fixedTime.Add(-time.Minute)
	f.states.On("List", mock.Anything).Return([]models.SyncState{
		{Provider: "the_odds_api", SportKey: "soccer_epl", LastSyncAt: &older, TotalSyncs: 4},
		{Provider: "polymarket", LastSyncAt: &newer, ConsecutiveErrors: 2},
	}, nil)
	f.opps.On("CountSince", mock.Anything, fixedTime.Add(-24*time.Hour)).Return(7, nil)
	f.runner.On("IsRunning").Return(true)
	f.runner.On("LastReport").Return(&models.SyncReport{OpportunitiesDetected: 2})

	w := performRequest(f.router, http.MethodGet, "/sync", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got SyncStatus
	decodeEnvelope(t, w, &got)
	assert.True(t, got.Running)
	assert.Equal(t, 7, got.OpportunitiesLast24h)
	require.NotNil(t, got.LastSyncAt)
	assert.True(t, newer.Equal(*got.LastSyncAt))
	assert.Len(t, got.States, 2)
	require.NotNil(t, got.LastReport)
	assert.Equal(t, 2, got.LastReport.OpportunitiesDetected)
}

func TestGetSyncStatus_StateError(t *testing.T) {
	f := newSyncFixture()
	f.states.On("List", mock.Anything).Return(nil, errors.New("db down"))

	w := performRequest(f.router, http.MethodGet, "/sync", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTriggerSync(t *testing.T) {
	f := newSyncFixture()
	report := &models.SyncReport{
		Results:               []models.SyncResult{{Provider: "polymarket", Success: true, EventsProcessed: 3}},
		OpportunitiesDetected: 1,
		Duration:              2 * time.Second,
	}
	f.runner.On("RunOnce", mock.Anything, models.SyncSourcePolymarket).Return(report, nil)
	f.runner.On("RunOnce", mock.Anything, models.SyncSourceAll).Return(&models.SyncReport{}, nil)

	w := performRequest(f.router, http.MethodPost, "/sync", map[string]string{"source": "polymarket"})
	require.Equal(t, http.StatusOK, w.Code)
	var got models.SyncReport
	decodeEnvelope(t, w, &got)
	assert.Equal(t, 1, got.OpportunitiesDetected)
	assert.Equal(t, 3, got.Results[0].EventsProcessed)

	w = performRequest(f.router, http.MethodPost, "/sync", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	f.runner.AssertExpectations(t)
}

func TestTriggerSync_Errors(t *testing.T) {
	f := newSyncFixture()
	f.runner.On("RunOnce", mock.Anything, "betfair").Return(nil, utils.NewValidationErrorf("unknown sync source %q", "betfair"))
	f.runner.On("RunOnce", mock.Anything, models.SyncSourceOddsAPI).Return(nil, errors.New("bookmakers unavailable"))

	w := performRequest(f.router, http.MethodPost, "/sync", map[string]string{"source": "betfair"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeEnvelope(t, w, nil).Error, "betfair")

	w = performRequest(f.router, http.MethodPost, "/sync", map[string]string{"source": "odds_api"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = performRequest(f.router, http.MethodPost, "/sync", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
