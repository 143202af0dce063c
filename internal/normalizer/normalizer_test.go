package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/models"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"navi", "Natus Vincere"},
		{"  NaVi ", "Natus Vincere"},
		{"FAZE", "FaZe Clan"},
		{"c9", "Cloud9"},
		{"Man  Utd", "Manchester United"},
		{"Atlético", "Atlético Madrid"},
		{"atletico", "Atlético Madrid"},
		{"team spirit", "Team Spirit"},
		{"HEROIC", "Heroic"},
		{"josé  aldo", "José Aldo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}

func TestSportCategory(t *testing.T) {
	assert.Equal(t, "esports", SportCategory("esports_cs2"))
	assert.Equal(t, "combat_sports", SportCategory("mma_mixed_martial_arts"))
	assert.Equal(t, "tennis", SportCategory("tennis_wta"))
	assert.Equal(t, "football", SportCategory("soccer_brazil_serie_a"))
	assert.Equal(t, "other", SportCategory("curling"))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "A vs B", FormatEventTitle("A", "B"))
	assert.Equal(t, "TBD vs B", FormatEventTitle("", "B"))
	assert.Equal(t, "A vs TBD", FormatEventTitle("A", "  "))

	assert.Equal(t, "Match Winner", FormatMarketType("h2h"))
	assert.Equal(t, "Over/Under", FormatMarketType("totals"))
	assert.Equal(t, "Round Betting", FormatMarketType("round_betting"))
	assert.Equal(t, "props", FormatMarketType("props"))
}

func TestParseMatchup(t *testing.T) {
	tests := []struct {
		question   string
		home, away string
		ok         bool
	}{
		{"NaVi vs FaZe?", "Natus Vincere", "FaZe Clan", true},
		{"Jones vs. Miocic", "Jon Jones", "Stipe Miocic", true},
		{"g2 v vitality", "G2 Esports", "Team Vitality", true},
		{"Conor McGregor against Dustin Poirier?", "Conor McGregor", "Dustin Poirier", true},
		{"Will it rain tomorrow?", "", "", false},
	}
	for _, tt := range tests {
		home, away, ok := ParseMatchup(tt.question)
		assert.Equal(t, tt.ok, ok, tt.question)
		assert.Equal(t, tt.home, home, tt.question)
		assert.Equal(t, tt.away, away, tt.question)
	}
}

func TestDetectPredictionMarketSport(t *testing.T) {
	assert.Equal(t, "polymarket_mma", DetectPredictionMarketSport("anything", []string{"UFC"}))
	assert.Equal(t, "polymarket_esports", DetectPredictionMarketSport("anything", []string{"Esports"}))
	assert.Equal(t, "polymarket_mma", DetectPredictionMarketSport("UFC 300: Pereira vs Hill", nil))
	assert.Equal(t, "polymarket_esports", DetectPredictionMarketSport("Will G2 win the Valorant Masters?", nil))
	assert.Equal(t, "polymarket_tennis", DetectPredictionMarketSport("Who wins the ATP final?", nil))
	assert.Equal(t, "polymarket_basketball", DetectPredictionMarketSport("NBA Finals winner", nil))
	assert.Equal(t, PredictionMarketOther, DetectPredictionMarketSport("Will it rain?", nil))
}

func TestOddsConversions(t *testing.T) {
	d, err := AmericanToDecimal(150)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, d, 1e-12)

	d, err = AmericanToDecimal(-200)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, d, 1e-12)

	_, err = AmericanToDecimal(0)
	assert.ErrorIs(t, err, ErrZeroAmericanOdds)

	d, err = FractionalToDecimal(5, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, d, 1e-12)

	_, err = FractionalToDecimal(1, 0)
	assert.ErrorIs(t, err, ErrInvalidFractional)
}

func TestValidateOdds(t *testing.T) {
	tests := []struct {
		name       string
		home, away float64
		draw       float64
		wantValid  bool
		wantErrors int
	}{
		{"valid two way", 2.1, 1.8, 0, true, 0},
		{"valid three way", 2.1, 3.5, 3.2, true, 0},
		{"home at one", 1, 1.8, 0, false, 1},
		{"both invalid", 0.5, 0, 0, false, 2},
		{"bad draw", 2.1, 1.8, 0.9, false, 1},
		{"unreasonable", 1500, 1.01, 0, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateOdds(models.NormalizedOdds{OddsHome: tt.home, OddsAway: tt.away, OddsDraw: tt.draw})
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Len(t, res.Errors, tt.wantErrors)
		})
	}
}

func TestIsOddsFresh(t *testing.T) {
	now := time.Now()
	assert.True(t, IsOddsFresh(now.Add(-59*time.Second), time.Minute, now))
	assert.False(t, IsOddsFresh(now.Add(-time.Minute), time.Minute, now))
}

func snap(event, market, bookmaker string, capturedAt time.Time) models.QuoteSnapshot {
	return models.QuoteSnapshot{OddsSnapshot: models.OddsSnapshot{
		EventID:     event,
		MarketType:  market,
		BookmakerID: bookmaker,
		OddsHome:    2,
		OddsAway:    2,
		CapturedAt:  capturedAt,
	}}
}

func TestGroupByEventMarket(t *testing.T) {
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	snaps := []models.QuoteSnapshot{
		snap("e1", "h2h", "b3", t0),
		snap("e1", "h2h", "b1", t0),
		snap("e1", "spreads", "b1", t0),
		snap("e2", "h2h", "b2", t0),
		snap("e1", "h2h", "b2", t0),
	}

	groups := GroupByEventMarket(snaps)
	require.Len(t, groups, 3)

	g := groups["e1|h2h"]
	require.Len(t, g, 3)
	assert.Equal(t, "b1", g[0].BookmakerID)
	assert.Equal(t, "b2", g[1].BookmakerID)
	assert.Equal(t, "b3", g[2].BookmakerID)
	assert.Len(t, groups["e1|spreads|0"], 1)
}

func TestLatestByBookmaker(t *testing.T) {
	t0 := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	old := snap("e1", "h2h", "b1", t0)
	newer := snap("e1", "h2h", "b1", t0.Add(time.Minute))
	newer.OddsHome = 2.4

	out := LatestByBookmaker([]models.QuoteSnapshot{newer, snap("e1", "h2h", "b0", t0), old})
	require.Len(t, out, 2)
	assert.Equal(t, "b0", out[0].BookmakerID)
	assert.Equal(t, 2.4, out[1].OddsHome)
}

func TestFilterByMarket(t *testing.T) {
	t0 := time.Now()
	out := FilterByMarket([]models.QuoteSnapshot{
		snap("e1", "h2h", "b1", t0),
		snap("e1", "totals", "b1", t0),
	}, "totals")
	require.Len(t, out, 1)
	assert.Equal(t, "totals", out[0].MarketType)
}
