package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/models"
)

const (
	testOpportunityID = "6f1c0e0a-9a4b-4f64-9a38-1b5d2f0c7e11"
	testEventID       = "0b7d5c1e-3f2a-4c8e-8d6b-2a9e4f1c3d55"
)

var fixedTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.False(t, env.Timestamp.IsZero())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func testOpportunity(id string) models.Opportunity {
	return models.Opportunity{
		ID:               id,
		EventID:          testEventID,
		MarketType:       models.MarketH2H,
		BookmakerHome:    "pinnacle",
		BookmakerAway:    "bet365",
		OddsHome:         2.15,
		OddsAway:         1.95,
		ArbitrageMargin:  0.0221,
		ProfitPercentage: 0.0226,
		TotalStake:       100,
		StakeHome:        47.56,
		StakeAway:        52.44,
		QualityScore:     79,
		QualityGrade:     arbitrage.GradeB,
		LatencyRisk:      arbitrage.LatencyLow,
		LiquidityScore:   50,
		Status:           models.OpportunityActive,
		DetectedAt:       fixedTime,
		ExpiresAt:        fixedTime.Add(2 * time.Minute),
		Event: &models.EventSummary{
			HomeTeam:     "Arsenal",
			AwayTeam:     "Chelsea",
			SportKey:     "soccer_epl",
			CommenceTime: fixedTime.Add(3 * time.Hour),
		},
	}
}
