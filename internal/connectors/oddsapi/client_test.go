package oddsapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/models"
)

const eventsFixture = `[
  {
    "id": "evt-1",
    "sport_key": "esports_cs2",
    "sport_title": "CS2",
    "commence_time": "2026-05-01T18:00:00Z",
    "home_team": "navi",
    "away_team": "FaZe Clan",
    "bookmakers": [
      {
        "key": "draftkings",
        "title": "DraftKings",
        "markets": [
          {"key": "h2h", "outcomes": [{"name": "navi", "price": 2.15}, {"name": "FaZe Clan", "price": 1.80}]},
          {"key": "spreads", "outcomes": [{"name": "navi", "price": 1.91, "point": -1.5}, {"name": "FaZe Clan", "price": 1.91, "point": 1.5}]},
          {"key": "totals", "outcomes": [{"name": "Over", "price": 1.95, "point": 2.5}, {"name": "Under", "price": 1.87, "point": 2.5}]}
        ]
      },
      {
        "key": "betfair_ex_uk",
        "title": "Betfair",
        "markets": [
          {"key": "h2h", "outcomes": [{"name": "navi", "price": 1.85}, {"name": "FaZe Clan", "price": 1.95}, {"name": "Draw", "price": 12.0}]}
        ]
      },
      {
        "key": "broken",
        "title": "Broken",
        "markets": [
          {"key": "h2h", "outcomes": [{"name": "navi", "price": 2.0}]},
          {"key": "h2h", "outcomes": [{"name": "navi", "price": 0.5}, {"name": "FaZe Clan", "price": 2.0}]}
        ]
      }
    ]
  }
]`

func newTestClient(t *testing.T, baseURL string, sports ...string) *Client {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewClient(Config{
		APIKey:            "secret",
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
		Sports:            sports,
	}, nil, logger)
	c.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil, nil)

	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, "us,uk,eu,au", c.config.Regions)
	assert.Equal(t, "h2h,spreads,totals", c.config.Markets)
	assert.Equal(t, "decimal", c.config.OddsFormat)
	assert.Equal(t, DefaultSports, c.config.Sports)
	assert.Equal(t, "the_odds_api", c.Name())
}

func TestGetUpcomingEvents_SendsQueryAndTracksUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sports/esports_cs2/odds/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("apiKey"))
		assert.Equal(t, "us,uk,eu,au", q.Get("regions"))
		assert.Equal(t, "h2h,spreads,totals", q.Get("markets"))
		assert.Equal(t, "decimal", q.Get("oddsFormat"))
		assert.Equal(t, "iso", q.Get("dateFormat"))
		w.Header().Set("x-requests-used", "12")
		w.Header().Set("x-requests-remaining", "488")
		_, _ = io.WriteString(w, eventsFixture)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "esports_cs2")
	events, err := c.GetUpcomingEvents(context.Background(), "esports_cs2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, Usage{Used: 12, Remaining: 488}, c.Usage())
	assert.Equal(t, int64(1), c.Requests())
}

func TestGetSports_OmitsOddsParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sports/", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("markets"))
		_, _ = io.WriteString(w, `[{"key":"esports_cs2","title":"CS2","active":true}]`)
	}))
	defer srv.Close()

	sports, err := newTestClient(t, srv.URL).GetSports(context.Background())
	require.NoError(t, err)
	require.Len(t, sports, 1)
	assert.True(t, sports[0].Active)
}

func TestGetEventOdds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sports/esports_cs2/events/evt-1/odds/", r.URL.Path)
		_, _ = io.WriteString(w, strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(eventsFixture), "["), "]"))
	}))
	defer srv.Close()

	ev, err := newTestClient(t, srv.URL).GetEventOdds(context.Background(), "esports_cs2", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "navi", ev.HomeTeam)
}

func TestNormalizeOdds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, eventsFixture)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "esports_cs2")
	events, err := c.GetUpcomingEvents(context.Background(), "esports_cs2")
	require.NoError(t, err)

	odds := c.NormalizeOdds(events[0])
	require.Len(t, odds, 4, "broken bookmaker markets are skipped")

	h2h := odds[0]
	assert.Equal(t, "evt-1", h2h.EventExternalID)
	assert.Equal(t, "draftkings", h2h.BookmakerKey)
	assert.Equal(t, models.MarketH2H, h2h.MarketType)
	assert.Equal(t, 2.15, h2h.OddsHome)
	assert.Equal(t, 1.80, h2h.OddsAway)
	assert.Zero(t, h2h.OddsDraw)
	assert.Equal(t, models.BookmakerTypeBookmaker, h2h.BookmakerType)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), h2h.CapturedAt)

	spread := odds[1]
	assert.Equal(t, models.MarketSpreads, spread.MarketType)
	assert.Equal(t, -1.5, spread.Point)

	totals := odds[2]
	assert.Equal(t, models.MarketTotals, totals.MarketType)
	assert.Equal(t, 2.5, totals.Point)
	assert.Equal(t, 1.95, totals.OddsOver)
	assert.Equal(t, 1.87, totals.OddsUnder)

	exchange := odds[3]
	assert.Equal(t, models.BookmakerTypeExchange, exchange.BookmakerType)
	assert.Equal(t, 0.05, exchange.Commission)
	assert.Equal(t, 12.0, exchange.OddsDraw)
}

func TestNormalizeOdds_AmericanFormat(t *testing.T) {
	c := NewClient(Config{APIKey: "k", OddsFormat: "american"}, nil, nil)
	odds := c.NormalizeOdds(Event{
		ID:       "e",
		HomeTeam: "A",
		AwayTeam: "B",
		Bookmakers: []Bookmaker{{
			Key: "fanduel",
			Markets: []Market{{
				Key:      "h2h",
				Outcomes: []Outcome{{Name: "A", Price: 150}, {Name: "B", Price: -200}},
			}},
		}},
	})
	require.Len(t, odds, 1)
	assert.InDelta(t, 2.5, odds[0].OddsHome, 1e-12)
	assert.InDelta(t, 1.5, odds[0].OddsAway, 1e-12)
}

func TestNormalizeEvent(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil, nil)

	ev, err := c.NormalizeEvent(Event{
		ID:           "evt-1",
		SportKey:     "esports_cs2",
		SportTitle:   "CS2",
		CommenceTime: "2026-05-01T18:00:00Z",
		HomeTeam:     "navi",
		AwayTeam:     "g2",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Natus Vincere", ev.HomeTeam)
	assert.Equal(t, "G2 Esports", ev.AwayTeam)
	assert.Equal(t, "esports_cs2", ev.SportKey)
	assert.Equal(t, models.EventScheduled, ev.Status)
	assert.Equal(t, models.SourceOddsAPI, ev.SourceAPI)

	_, err = c.NormalizeEvent(Event{ID: "x", CommenceTime: "tomorrow"}, "s")
	assert.Error(t, err)
}

func TestFetch_CollectsPerSportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "tennis_atp") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"unknown sport"}`)
			return
		}
		_, _ = io.WriteString(w, eventsFixture)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "esports_cs2", "tennis_atp")
	res, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "the_odds_api", res.Provider)
	assert.Len(t, res.Events, 1)
	assert.Len(t, res.Odds, 4)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "tennis_atp")
	assert.Equal(t, int64(2), res.Requests)
}

func TestFetch_AllSportsFailing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	res, err := newTestClient(t, srv.URL, "esports_cs2", "tennis_atp").Fetch(context.Background())
	require.Error(t, err)
	assert.Len(t, res.Errors, 2)
}
