package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/config"
	"github.com/irfndi/oddsradar-go/internal/connectors"
	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

type stubSource struct {
	name   string
	result *connectors.FetchResult
	err    error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Fetch(context.Context) (*connectors.FetchResult, error) {
	return s.result, s.err
}

func arbitrageFetch(now time.Time) *connectors.FetchResult {
	return &connectors.FetchResult{
		Provider: string(models.SourceOddsAPI),
		Events: []models.NormalizedEvent{{
			ExternalID:   "ev-1",
			SourceAPI:    models.SourceOddsAPI,
			SportKey:     "soccer_epl",
			HomeTeam:     "Arsenal",
			AwayTeam:     "Chelsea",
			CommenceTime: now.Add(2 * time.Hour),
			Status:       models.EventScheduled,
		}},
		Odds: []models.NormalizedOdds{
			{EventExternalID: "ev-1", BookmakerKey: "pinnacle", MarketType: models.MarketH2H, OddsHome: 2.15, OddsAway: 1.80, CapturedAt: now, SourceAPI: models.SourceOddsAPI},
			{EventExternalID: "ev-1", BookmakerKey: "bet365", MarketType: models.MarketH2H, OddsHome: 1.85, OddsAway: 1.95, CapturedAt: now, SourceAPI: models.SourceOddsAPI},
		},
	}
}

func TestScan_DetectsArbitrage(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := newMemoryStore()
	srcs := map[string]connectors.Source{
		models.SyncSourceOddsAPI: stubSource{name: "the_odds_api", result: arbitrageFetch(time.Now())},
	}

	report, err := scan(context.Background(), &config.Config{}, models.SyncSourceAll, srcs, store, logger)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Success)
	assert.Equal(t, 1, report.Results[0].EventsProcessed)
	assert.Equal(t, 2, report.Results[0].OddsProcessed)
	assert.Equal(t, 1, report.OpportunitiesDetected)

	opps := store.Opportunities()
	require.Len(t, opps, 1)
	assert.Equal(t, "pinnacle", opps[0].BookmakerHome)
	assert.Equal(t, "bet365", opps[0].BookmakerAway)
	assert.InDelta(t, 0.0226, opps[0].ProfitPercentage, 1e-4)
	assert.Equal(t, "Arsenal vs Chelsea", opps[0].Title())

	stored, err := store.GetByID(context.Background(), opps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, opps[0].ID, stored.ID)
}

func TestScan_ProviderFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := newMemoryStore()
	srcs := map[string]connectors.Source{
		models.SyncSourcePolymarket: stubSource{name: "polymarket", err: errors.New("gamma api unavailable")},
	}

	report, err := scan(context.Background(), &config.Config{}, models.SyncSourceAll, srcs, store, logger)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Success)
	assert.Equal(t, 0, report.OpportunitiesDetected)

	st := store.states["polymarket|"]
	assert.Equal(t, 1, st.ConsecutiveErrors)
	assert.Equal(t, "gamma api unavailable", st.LastError)
}

func TestMemoryStore_Bookmakers(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	id, err := store.Upsert(ctx, models.Bookmaker{Key: "polymarket"})
	require.NoError(t, err)
	again, err := store.Upsert(ctx, models.Bookmaker{Key: "polymarket", Commission: 0.5})
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 0.02, store.bookmakers[id].Commission, "existing rows are kept")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(models.DefaultBookmakers()))
}

func TestMemoryStore_Events(t *testing.T) {
	ctx := context.Background()
	events := eventStore{newMemoryStore()}

	ev := models.NormalizedEvent{ExternalID: "x", SourceAPI: models.SourceOddsAPI, HomeTeam: "A", AwayTeam: "B"}
	id, err := events.Upsert(ctx, ev)
	require.NoError(t, err)

	ev.HomeTeam = "A2"
	again, err := events.Upsert(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	got, err := events.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.HomeTeam)

	_, err = events.GetByID(ctx, "missing")
	assert.True(t, utils.IsNotFoundError(err))
}

func TestMemoryStore_HistoryForEvent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := store.InsertSnapshots(ctx, []models.OddsSnapshot{
		{EventID: "e1", MarketType: "h2h", OddsHome: 2.0, CapturedAt: base},
		{EventID: "e1", MarketType: "h2h", OddsHome: 2.1, CapturedAt: base.Add(time.Minute)},
		{EventID: "e1", MarketType: "totals", OddsHome: 1.9, CapturedAt: base},
		{EventID: "e2", MarketType: "h2h", OddsHome: 3.0, CapturedAt: base},
	})
	require.NoError(t, err)

	history, err := store.HistoryForEvent(ctx, "e1", "h2h", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2.1, history[0].OddsHome)

	limited, err := store.HistoryForEvent(ctx, "e1", "h2h", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFilterGrade(t *testing.T) {
	opps := []models.Opportunity{
		{ID: "a", QualityGrade: arbitrage.GradeA},
		{ID: "c", QualityGrade: arbitrage.GradeC},
		{ID: "f", QualityGrade: arbitrage.GradeF},
	}

	assert.Len(t, filterGrade(opps, ""), 3)
	got := filterGrade(opps, arbitrage.GradeC)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestPrintOpportunities(t *testing.T) {
	var buf bytes.Buffer
	printOpportunities(&buf, nil, 10)
	assert.Contains(t, buf.String(), "No arbitrage found.")

	buf.Reset()
	printOpportunities(&buf, []models.Opportunity{{
		MarketType:       models.MarketH2H,
		BookmakerHome:    "pinnacle",
		BookmakerAway:    "bet365",
		OddsHome:         2.15,
		OddsAway:         1.95,
		StakeHome:        47.56,
		StakeAway:        52.44,
		TotalStake:       100,
		ProfitPercentage: 0.0226,
		QualityGrade:     arbitrage.GradeB,
		QualityScore:     79,
		LatencyRisk:      arbitrage.LatencyLow,
		Event:            &models.EventSummary{HomeTeam: "Arsenal", AwayTeam: "Chelsea"},
	}}, 10)

	out := buf.String()
	assert.Contains(t, out, "Arsenal vs Chelsea")
	assert.Contains(t, out, "pinnacle @2.15 $47.56")
	assert.Contains(t, out, "2.26%")
	assert.Contains(t, out, "B (79)")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &models.SyncReport{
		Results: []models.SyncResult{
			{Provider: "the_odds_api", Success: true, EventsProcessed: 3, OddsProcessed: 12},
			{Provider: "polymarket", Errors: []string{"timeout"}},
		},
		OpportunitiesDetected: 1,
		Duration:              1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "the_odds_api")
	assert.Contains(t, out, "failed: timeout")
	assert.Contains(t, out, "1 opportunities detected in 1.5s")
}
