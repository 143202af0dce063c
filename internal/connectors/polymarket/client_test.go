package polymarket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/models"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(baseURL string, cfg Config) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg.BaseURL = baseURL
	cfg.RequestsPerSecond = 1000
	c := NewClient(cfg, nil, logger)
	c.now = func() time.Time { return fixedNow }
	return c
}

func sportsMarket(id string) Market {
	return Market{
		ConditionID: id,
		Question:    "navi vs faze?",
		EndDateISO:  "2026-05-02T18:00:00Z",
		Tags:        []string{"Esports"},
		Active:      true,
		Tokens: []Token{
			{TokenID: id + "-a", Outcome: "NaVi", Price: 0.45},
			{TokenID: id + "-b", Outcome: "FaZe", Price: 0.50},
		},
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestIsBettingMarket(t *testing.T) {
	m := sportsMarket("c1")
	assert.True(t, IsBettingMarket(m))

	closed := m
	closed.Closed = true
	assert.False(t, IsBettingMarket(closed))

	inactive := m
	inactive.Active = false
	assert.False(t, IsBettingMarket(inactive))

	three := m
	three.Tokens = append(three.Tokens, Token{Outcome: "Draw"})
	assert.False(t, IsBettingMarket(three))
}

func TestParseOutcomesToOdds(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []Token
		wantHome float64
		wantAway float64
	}{
		{"yes first", []Token{{Outcome: "Yes", Price: 0.25}, {Outcome: "No", Price: 0.8}}, 4, 1.25},
		{"no first is reordered", []Token{{Outcome: "No", Price: 0.8}, {Outcome: "Yes", Price: 0.25}}, 4, 1.25},
		{"named outcomes keep order", []Token{{Outcome: "NaVi", Price: 0.5}, {Outcome: "FaZe", Price: 0.4}}, 2, 2.5},
		{"zero price", []Token{{Outcome: "Yes", Price: 0}, {Outcome: "No", Price: 0.5}}, 0, 2},
		{"wrong token count", []Token{{Outcome: "Yes", Price: 0.5}}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home, away := ParseOutcomesToOdds(tt.tokens)
			assert.InDelta(t, tt.wantHome, home, 1e-12)
			assert.InDelta(t, tt.wantAway, away, 1e-12)
		})
	}
}

func TestNormalizeMarket(t *testing.T) {
	c := newTestClient("http://unused", Config{})

	ev, ok := c.NormalizeMarket(sportsMarket("c1"))
	require.True(t, ok)
	assert.Equal(t, "c1", ev.ExternalID)
	assert.Equal(t, "polymarket_esports", ev.SportKey)
	assert.Equal(t, "Natus Vincere", ev.HomeTeam)
	assert.Equal(t, "FaZe Clan", ev.AwayTeam)
	assert.Equal(t, time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC), ev.CommenceTime)
	assert.Equal(t, models.EventScheduled, ev.Status)
	assert.Equal(t, models.SourcePolymarket, ev.SourceAPI)

	t.Run("outcome names when the question has no matchup", func(t *testing.T) {
		m := Market{
			ConditionID: "c2",
			Question:    "Will the UFC 310 main event end by knockout?",
			Tokens:      []Token{{Outcome: "No", Price: 0.6}, {Outcome: "Yes", Price: 0.4}},
			Active:      true,
		}
		ev, ok := c.NormalizeMarket(m)
		require.True(t, ok)
		assert.Equal(t, "polymarket_mma", ev.SportKey)
		assert.Equal(t, "Yes", ev.HomeTeam)
		assert.Equal(t, "No", ev.AwayTeam)
		assert.Equal(t, fixedNow, ev.CommenceTime)
	})

	t.Run("non sports market is skipped", func(t *testing.T) {
		_, ok := c.NormalizeMarket(Market{
			Question: "Will it rain in Madrid tomorrow?",
			Tokens:   []Token{{Outcome: "Yes"}, {Outcome: "No"}},
		})
		assert.False(t, ok)
	})
}

func TestNormalizeOdds(t *testing.T) {
	c := newTestClient("http://unused", Config{})

	q := c.NormalizeOdds(sportsMarket("c1"), 2500)
	assert.Equal(t, "c1", q.EventExternalID)
	assert.Equal(t, BookmakerKey, q.BookmakerKey)
	assert.Equal(t, models.BookmakerTypePredictionMarket, q.BookmakerType)
	assert.Equal(t, 0.02, q.Commission)
	assert.Equal(t, models.MarketH2H, q.MarketType)
	assert.InDelta(t, 1/0.45, q.OddsHome, 1e-12)
	assert.InDelta(t, 2.0, q.OddsAway, 1e-12)
	assert.Equal(t, 2500.0, q.Liquidity)
	assert.Equal(t, fixedNow, q.CapturedAt)
}

func TestOrderBook_Depth(t *testing.T) {
	book := OrderBook{
		Bids: []BookLevel{{Price: "0.45", Size: "100"}, {Price: "bad", Size: "1"}},
		Asks: []BookLevel{{Price: "0.55", Size: "200"}},
	}
	assert.InDelta(t, 45+110, book.Depth(), 1e-9)
}

func TestFetch_PaginatesUntilEndCursor(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		cursor := r.URL.Query().Get("next_cursor")
		cursors = append(cursors, cursor)

		switch cursor {
		case "":
			notSports := Market{ConditionID: "x", Question: "Will it rain?", Active: true, Tokens: []Token{{Price: 0.5}, {Price: 0.5}}}
			writeJSON(t, w, MarketsPage{NextCursor: "MTAw", Data: []Market{sportsMarket("c1"), notSports}})
		case "MTAw":
			zero := sportsMarket("c3")
			zero.Tokens[0].Price = 0
			writeJSON(t, w, MarketsPage{NextCursor: endCursor, Data: []Market{sportsMarket("c2"), zero}})
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, Config{}).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"", "MTAw"}, cursors)
	assert.Equal(t, ProviderName, res.Provider)
	require.Len(t, res.Events, 2)
	require.Len(t, res.Odds, 2)
	assert.Equal(t, DefaultLiquidity, res.Odds[0].Liquidity)
	require.Len(t, res.Errors, 1, "zero-priced market fails validation")
	assert.Contains(t, res.Errors[0], "c3")
	assert.Equal(t, int64(2), res.Requests)
}

func TestFetch_RespectsPageCap(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(t, w, MarketsPage{NextCursor: "more"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, Config{MaxPages: 3}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestFetch_FirstPageErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, Config{}).Fetch(context.Background())
	require.Error(t, err)
}

func TestFetch_LaterPageErrorIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("next_cursor") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(t, w, MarketsPage{NextCursor: "next", Data: []Market{sportsMarket("c1")}})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, Config{}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Events, 1)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "pagination")
}

func TestFetch_UsesOrderBookDepth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/markets":
			writeJSON(t, w, MarketsPage{NextCursor: endCursor, Data: []Market{sportsMarket("c1")}})
		case "/book":
			assert.Equal(t, "c1-a", r.URL.Query().Get("token_id"))
			writeJSON(t, w, OrderBook{Bids: []BookLevel{{Price: "0.5", Size: "3000"}}})
		}
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, Config{FetchOrderBooks: true}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Odds, 1)
	assert.Equal(t, 1500.0, res.Odds[0].Liquidity)
}

func TestGetMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/c9", r.URL.Path)
		writeJSON(t, w, sportsMarket("c9"))
	}))
	defer srv.Close()

	m, err := newTestClient(srv.URL, Config{}).GetMarket(context.Background(), "c9")
	require.NoError(t, err)
	assert.Equal(t, "c9", m.ConditionID)
}
