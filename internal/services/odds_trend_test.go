package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/models"
)

var trendStart = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// historyForSums builds one snapshot per minute from bookmaker bk-a whose
// best prices produce the given implied sums, plus one early quote from bk-b
// that never wins.
func historyForSums(sums []float64) []models.QuoteSnapshot {
	history := []models.QuoteSnapshot{{
		OddsSnapshot: models.OddsSnapshot{EventID: "ev-1", BookmakerID: "bk-b", MarketType: "h2h", OddsHome: 1.5, OddsAway: 1.9, CapturedAt: trendStart},
	}}
	for i, sum := range sums {
		history = append(history, models.QuoteSnapshot{
			OddsSnapshot: models.OddsSnapshot{
				EventID:     "ev-1",
				BookmakerID: "bk-a",
				MarketType:  "h2h",
				OddsHome:    1 / (sum - 0.5),
				OddsAway:    2.0,
				CapturedAt:  trendStart.Add(time.Duration(i)*time.Minute + 10*time.Second),
			},
		})
	}
	return history
}

func TestAnalyzeTrend_Improving(t *testing.T) {
	sums := []float64{1.02, 1.02, 1.02, 1.02, 1.02, 1.02, 0.98, 0.96}
	trend := AnalyzeTrend("ev-1", "h2h", historyForSums(sums))

	require.Len(t, trend.Points, len(sums))
	for i, p := range trend.Points {
		assert.InDelta(t, sums[i], p.ImpliedSum, 1e-9)
		assert.Equal(t, 2, p.Bookmakers)
		assert.Equal(t, 2.0, p.BestAway)
		assert.Equal(t, trendStart.Add(time.Duration(i)*time.Minute), p.Timestamp)
	}
	assert.Equal(t, 5, trend.Period)
	assert.NotEmpty(t, trend.SMA)
	assert.NotEmpty(t, trend.EMA)
	assert.InDelta(t, 1.0, trend.SMA[len(trend.SMA)-1], 1e-9)
	assert.Equal(t, TrendImproving, trend.Direction)
	assert.Equal(t, arbitrage.VolatilityHigh, trend.Volatility)
	assert.InDelta(t, 0.0222, trend.StdDev, 1e-4)
}

func TestAnalyzeTrend_FlatMarket(t *testing.T) {
	trend := AnalyzeTrend("ev-1", "h2h", historyForSums([]float64{1.03, 1.03, 1.03, 1.03}))

	assert.Equal(t, 4, trend.Period)
	assert.InDelta(t, 0.0, trend.StdDev, 1e-12)
	assert.Equal(t, arbitrage.VolatilityLow, trend.Volatility)
	assert.Equal(t, TrendStable, trend.Direction)
}

func TestAnalyzeTrend_ShortHistory(t *testing.T) {
	trend := AnalyzeTrend("ev-1", "h2h", historyForSums([]float64{1.03}))
	assert.Len(t, trend.Points, 1)
	assert.Empty(t, trend.SMA)
	assert.Empty(t, trend.Volatility)
	assert.Equal(t, TrendStable, trend.Direction)

	trend = AnalyzeTrend("ev-1", "h2h", historyForSums([]float64{1.03, 1.01}))
	assert.Len(t, trend.Points, 2)
	assert.Empty(t, trend.Volatility)

	empty := AnalyzeTrend("ev-1", "h2h", nil)
	assert.Empty(t, empty.Points)
	assert.NotNil(t, empty.SMA)
}

func TestAnalyzeTrend_BucketsAndOrdering(t *testing.T) {
	history := []models.QuoteSnapshot{
		{OddsSnapshot: models.OddsSnapshot{BookmakerID: "bk-a", OddsHome: 2.2, OddsAway: 1.7, CapturedAt: trendStart.Add(70 * time.Second)}},
		{OddsSnapshot: models.OddsSnapshot{BookmakerID: "bk-a", OddsHome: 2.0, OddsAway: 1.8, CapturedAt: trendStart.Add(5 * time.Second)}},
		{OddsSnapshot: models.OddsSnapshot{BookmakerID: "bk-b", OddsHome: 1.9, OddsAway: 1.9, CapturedAt: trendStart.Add(40 * time.Second)}},
		{OddsSnapshot: models.OddsSnapshot{BookmakerID: "bk-c", OddsHome: 0, OddsAway: 0, CapturedAt: trendStart.Add(-time.Minute)}},
	}
	trend := AnalyzeTrend("ev-1", "h2h", history)

	require.Len(t, trend.Points, 2)
	assert.Equal(t, trendStart, trend.Points[0].Timestamp)
	assert.Equal(t, 2.0, trend.Points[0].BestHome)
	assert.Equal(t, 1.9, trend.Points[0].BestAway)
	assert.Equal(t, 2.2, trend.Points[1].BestHome)
	assert.Equal(t, 1.9, trend.Points[1].BestAway)
}

func TestOddsTrendService_Trend(t *testing.T) {
	store := new(MockOddsStore)
	store.On("HistoryForEvent", mock.Anything, "ev-1", models.MarketH2H, trendHistoryLimit).
		Return(historyForSums([]float64{1.02, 1.02, 1.02}), nil)
	store.On("HistoryForEvent", mock.Anything, "ev-2", "totals", trendHistoryLimit).
		Return(nil, errors.New("db down"))

	svc := NewOddsTrendService(store, nil)

	trend, err := svc.Trend(context.Background(), "ev-1", "")
	require.NoError(t, err)
	assert.Equal(t, models.MarketH2H, trend.Market)

	v, err := svc.Volatility(context.Background(), "ev-1", models.MarketH2H)
	require.NoError(t, err)
	assert.Equal(t, arbitrage.VolatilityLow, v)

	_, err = svc.Volatility(context.Background(), "ev-2", "totals")
	assert.ErrorContains(t, err, "failed to load odds history")
}

func TestClassifyVolatility(t *testing.T) {
	assert.Equal(t, arbitrage.VolatilityLow, classifyVolatility(0.0049))
	assert.Equal(t, arbitrage.VolatilityMedium, classifyVolatility(0.005))
	assert.Equal(t, arbitrage.VolatilityMedium, classifyVolatility(0.0199))
	assert.Equal(t, arbitrage.VolatilityHigh, classifyVolatility(0.02))
}
