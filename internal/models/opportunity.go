package models

import (
	"fmt"
	"time"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
)

// OpportunityStatus is the lifecycle state of a detected opportunity.
type OpportunityStatus string

const (
	OpportunityActive    OpportunityStatus = "active"
	OpportunityExpired   OpportunityStatus = "expired"
	OpportunityExecuted  OpportunityStatus = "executed"
	OpportunityDismissed OpportunityStatus = "dismissed"
)

// Valid reports whether s is a known status.
func (s OpportunityStatus) Valid() bool {
	switch s {
	case OpportunityActive, OpportunityExpired, OpportunityExecuted, OpportunityDismissed:
		return true
	}
	return false
}

// CanTransitionTo reports whether an opportunity in state s may move to next.
// Only active opportunities change state, and they never return to active.
func (s OpportunityStatus) CanTransitionTo(next OpportunityStatus) bool {
	if s != OpportunityActive {
		return false
	}
	return next == OpportunityExpired || next == OpportunityExecuted || next == OpportunityDismissed
}

// Opportunity is a persisted arbitrage opportunity.
type Opportunity struct {
	ID         string `json:"id" db:"id"`
	EventID    string `json:"event_id" db:"event_id"`
	MarketType string `json:"market_type" db:"market_type"`
	IsThreeWay bool   `json:"is_three_way" db:"is_three_way"`

	BookmakerHomeID string  `json:"bookmaker_home_id" db:"bookmaker_home_id"`
	BookmakerAwayID string  `json:"bookmaker_away_id" db:"bookmaker_away_id"`
	BookmakerDrawID string  `json:"bookmaker_draw_id,omitempty" db:"bookmaker_draw_id"`
	BookmakerHome   string  `json:"bookmaker_home"`
	BookmakerAway   string  `json:"bookmaker_away"`
	BookmakerDraw   string  `json:"bookmaker_draw,omitempty"`
	OddsHome        float64 `json:"odds_home" db:"odds_home"`
	OddsAway        float64 `json:"odds_away" db:"odds_away"`
	OddsDraw        float64 `json:"odds_draw,omitempty" db:"odds_draw"`

	TotalImpliedProb     float64 `json:"total_implied_prob" db:"total_implied_prob"`
	ArbitrageMargin      float64 `json:"arbitrage_margin" db:"arbitrage_margin"`
	ProfitPercentage     float64 `json:"profit_percentage" db:"profit_percentage"`
	TotalStake           float64 `json:"total_stake" db:"total_stake"`
	StakeHome            float64 `json:"recommended_stake_home" db:"recommended_stake_home"`
	StakeAway            float64 `json:"recommended_stake_away" db:"recommended_stake_away"`
	StakeDraw            float64 `json:"recommended_stake_draw,omitempty" db:"recommended_stake_draw"`
	ExpectedProfit       float64 `json:"expected_profit" db:"expected_profit"`
	CommissionAdjustment float64 `json:"commission_adjustment" db:"commission_adjustment"`
	SlippageEstimate     float64 `json:"slippage_estimate" db:"slippage_estimate"`
	AdjustedProfit       float64 `json:"adjusted_profit" db:"adjusted_profit"`

	QualityScore   int                   `json:"quality_score" db:"quality_score"`
	QualityGrade   arbitrage.Grade       `json:"quality_grade" db:"quality_grade"`
	LatencyRisk    arbitrage.LatencyRisk `json:"latency_risk" db:"latency_risk"`
	LatencyMs      int64                 `json:"latency_ms" db:"latency_ms"` // age of the oldest leg at detection
	LiquidityScore float64               `json:"liquidity_score" db:"liquidity_score"`
	MaxStake       float64               `json:"max_stake" db:"max_stake"`

	Status     OpportunityStatus `json:"status" db:"status"`
	DetectedAt time.Time         `json:"detected_at" db:"detected_at"`
	ExpiresAt  time.Time         `json:"expires_at" db:"expires_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`

	Event *EventSummary `json:"event,omitempty"`
}

// EventSummary is the slice of an event shown next to an opportunity.
type EventSummary struct {
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	SportKey     string    `json:"sport_key"`
	Competition  string    `json:"competition,omitempty"`
	CommenceTime time.Time `json:"commence_time"`
}

// Title returns "Home vs Away" when event details are loaded, otherwise the
// event id.
func (o *Opportunity) Title() string {
	if o.Event == nil {
		return o.EventID
	}
	return fmt.Sprintf("%s vs %s", o.Event.HomeTeam, o.Event.AwayTeam)
}

// SportKey returns the event sport, or "" when event details are not loaded.
func (o *Opportunity) SportKey() string {
	if o.Event == nil {
		return ""
	}
	return o.Event.SportKey
}

// BookmakerKeys returns the bookmaker keys of every leg.
func (o *Opportunity) BookmakerKeys() []string {
	keys := []string{o.BookmakerHome, o.BookmakerAway}
	if o.IsThreeWay && o.BookmakerDraw != "" {
		keys = append(keys, o.BookmakerDraw)
	}
	return keys
}

// Stakes returns the recommended stake of every leg in home, away[, draw]
// order.
func (o *Opportunity) Stakes() []float64 {
	stakes := []float64{o.StakeHome, o.StakeAway}
	if o.IsThreeWay {
		stakes = append(stakes, o.StakeDraw)
	}
	return stakes
}

// OpportunityFilter narrows opportunity listings.
type OpportunityFilter struct {
	SportKey string          `form:"sport"`
	MinGrade arbitrage.Grade `form:"min_grade"`
	Limit    int             `form:"limit"`
}

// StatusUpdateRequest is the body of an opportunity status change.
type StatusUpdateRequest struct {
	Status OpportunityStatus `json:"status" binding:"required"`
}

// DashboardStats summarizes recent activity.
type DashboardStats struct {
	ActiveOpportunities  int          `json:"active_opportunities"`
	OpportunitiesLast24h int          `json:"opportunities_last_24h"`
	AvgProfitPercentage  float64      `json:"avg_profit_percentage"`
	AvgLatencyMs         float64      `json:"avg_latency_ms"`
	TopSports            []CountEntry `json:"top_sports"`
	TopBookmakers        []CountEntry `json:"top_bookmakers"`
	RecentAlerts         int          `json:"recent_alerts"`
	SystemHealth         string       `json:"system_health"`
}

// CountEntry is a label with an occurrence count.
type CountEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
