package models

import (
	"strconv"
	"time"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
)

// OddsSnapshot is one bookmaker's price for one event market at a point in
// time. Prices that do not apply to the market are zero.
type OddsSnapshot struct {
	ID          int64     `json:"id" db:"id"`
	EventID     string    `json:"event_id" db:"event_id"`
	BookmakerID string    `json:"bookmaker_id" db:"bookmaker_id"`
	MarketType  string    `json:"market_type" db:"market_type"`
	OddsHome    float64   `json:"odds_home" db:"odds_home"`
	OddsAway    float64   `json:"odds_away" db:"odds_away"`
	OddsDraw    float64   `json:"odds_draw,omitempty" db:"odds_draw"`
	Point       float64   `json:"point,omitempty" db:"point"`
	OddsOver    float64   `json:"odds_over,omitempty" db:"odds_over"`
	OddsUnder   float64   `json:"odds_under,omitempty" db:"odds_under"`
	Liquidity   float64   `json:"liquidity,omitempty" db:"liquidity"`
	CapturedAt  time.Time `json:"captured_at" db:"captured_at"`
	SourceAPI   SourceAPI `json:"source_api" db:"source_api"`
}

// QuoteSnapshot is an OddsSnapshot joined with the bookmaker fields the
// arbitrage engine needs.
type QuoteSnapshot struct {
	OddsSnapshot
	BookmakerKey      string  `json:"bookmaker_key"`
	BookmakerName     string  `json:"bookmaker_name"`
	Commission        float64 `json:"commission"`
	Reliability       float64 `json:"reliability"`
	MaxStake          float64 `json:"max_stake"`
	SupportsBothSides bool    `json:"supports_both_sides"`
}

// GroupKey identifies the comparable set a snapshot belongs to. Lines with a
// point only compare against the same point.
func (q QuoteSnapshot) GroupKey() string {
	key := q.EventID + "|" + q.MarketType
	if q.MarketType == MarketSpreads || q.MarketType == MarketTotals {
		key += "|" + strconv.FormatFloat(q.Point, 'f', -1, 64)
	}
	return key
}

// ToQuote converts the snapshot into an engine quote. Totals with over/under
// prices map over to the home leg and under to the away leg.
func (q QuoteSnapshot) ToQuote() arbitrage.Quote {
	home, away, draw := q.OddsHome, q.OddsAway, q.OddsDraw
	if q.MarketType == MarketTotals && q.OddsOver > 0 && q.OddsUnder > 0 {
		home, away, draw = q.OddsOver, q.OddsUnder, 0
	}
	return arbitrage.Quote{
		BookmakerID:               q.BookmakerID,
		BookmakerKey:              q.BookmakerKey,
		Commission:                q.Commission,
		OddsHome:                  home,
		OddsAway:                  away,
		OddsDraw:                  draw,
		CapturedAt:                q.CapturedAt,
		SupportsBothSidesExposure: q.SupportsBothSides,
	}
}

// NormalizedOdds is a quote as produced by a connector. It references its
// event and bookmaker by external keys.
type NormalizedOdds struct {
	EventExternalID string        `json:"event_external_id"`
	BookmakerKey    string        `json:"bookmaker_key"`
	BookmakerName   string        `json:"bookmaker_name"`
	BookmakerType   BookmakerType `json:"bookmaker_type"`
	Commission      float64       `json:"commission"`
	MarketType      string        `json:"market_type"`
	OddsHome        float64       `json:"odds_home"`
	OddsAway        float64       `json:"odds_away"`
	OddsDraw        float64       `json:"odds_draw,omitempty"`
	Point           float64       `json:"point,omitempty"`
	OddsOver        float64       `json:"odds_over,omitempty"`
	OddsUnder       float64       `json:"odds_under,omitempty"`
	Liquidity       float64       `json:"liquidity,omitempty"`
	CapturedAt      time.Time     `json:"captured_at"`
	SourceAPI       SourceAPI     `json:"source_api"`
}
