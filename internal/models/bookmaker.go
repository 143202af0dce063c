package models

import "time"

// BookmakerType distinguishes traditional books from venues where both sides
// of a market can be traded.
type BookmakerType string

const (
	BookmakerTypeBookmaker        BookmakerType = "bookmaker"
	BookmakerTypeExchange         BookmakerType = "exchange"
	BookmakerTypePredictionMarket BookmakerType = "prediction_market"
)

// SupportsBothSides reports whether backing every outcome on one venue of this
// type is executable.
func (t BookmakerType) SupportsBothSides() bool {
	return t == BookmakerTypeExchange || t == BookmakerTypePredictionMarket
}

// Bookmaker represents a venue quoting odds.
type Bookmaker struct {
	ID                string        `json:"id" db:"id"`
	Key               string        `json:"key" db:"key"`
	Name              string        `json:"name" db:"name"`
	Type              BookmakerType `json:"type" db:"type"`
	Commission        float64       `json:"commission" db:"commission"`
	Reliability       float64       `json:"reliability" db:"reliability"`
	MaxStake          float64       `json:"max_stake" db:"max_stake"`
	SupportsBothSides bool          `json:"supports_both_sides" db:"supports_both_sides"`
	IsActive          bool          `json:"is_active" db:"is_active"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// Sport categories.
const (
	SportCategoryEsports      = "esports"
	SportCategoryCombatSports = "combat_sports"
	SportCategoryTennis       = "tennis"
	SportCategoryFootball     = "football"
	SportCategoryOther        = "other"
)

// Sport is a sport key known to the connectors.
type Sport struct {
	Key      string `json:"key" db:"key"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
	Active   bool   `json:"active" db:"active"`
}

// Market keys.
const (
	MarketH2H          = "h2h"
	MarketSpreads      = "spreads"
	MarketTotals       = "totals"
	MarketMapWinner    = "map_winner"
	MarketRoundBetting = "round_betting"
)

// MarketType describes a market and whether it can settle as a draw.
type MarketType struct {
	Key        string `json:"key" db:"key"`
	Name       string `json:"name" db:"name"`
	IsThreeWay bool   `json:"is_three_way" db:"is_three_way"`
}

// DefaultBookmakers returns the venues seeded on first start.
func DefaultBookmakers() []Bookmaker {
	return []Bookmaker{
		{Key: "polymarket", Name: "Polymarket", Type: BookmakerTypePredictionMarket, Commission: 0.02, Reliability: 80, MaxStake: 5000, SupportsBothSides: true, IsActive: true},
		{Key: "draftkings", Name: "DraftKings", Type: BookmakerTypeBookmaker, Reliability: 85, MaxStake: 2000, IsActive: true},
		{Key: "fanduel", Name: "FanDuel", Type: BookmakerTypeBookmaker, Reliability: 85, MaxStake: 2000, IsActive: true},
		{Key: "betmgm", Name: "BetMGM", Type: BookmakerTypeBookmaker, Reliability: 80, MaxStake: 1500, IsActive: true},
		{Key: "pointsbet", Name: "PointsBet", Type: BookmakerTypeBookmaker, Reliability: 70, MaxStake: 1000, IsActive: true},
		{Key: "williamhill_us", Name: "William Hill", Type: BookmakerTypeBookmaker, Reliability: 75, MaxStake: 1000, IsActive: true},
	}
}

// DefaultSports returns the sport keys seeded on first start.
func DefaultSports() []Sport {
	return []Sport{
		{Key: "esports_cs2", Name: "Counter-Strike 2", Category: SportCategoryEsports, Active: true},
		{Key: "esports_lol", Name: "League of Legends", Category: SportCategoryEsports, Active: true},
		{Key: "esports_valorant", Name: "Valorant", Category: SportCategoryEsports, Active: true},
		{Key: "mma_mixed_martial_arts", Name: "MMA/UFC", Category: SportCategoryCombatSports, Active: true},
		{Key: "tennis_atp", Name: "ATP Tennis", Category: SportCategoryTennis, Active: true},
		{Key: "polymarket_mma", Name: "Polymarket MMA", Category: SportCategoryCombatSports, Active: true},
		{Key: "polymarket_esports", Name: "Polymarket Esports", Category: SportCategoryEsports, Active: true},
	}
}

// DefaultMarketTypes returns the market types seeded on first start.
func DefaultMarketTypes() []MarketType {
	return []MarketType{
		{Key: MarketH2H, Name: "Match Winner", IsThreeWay: true},
		{Key: MarketSpreads, Name: "Handicap"},
		{Key: MarketTotals, Name: "Over/Under"},
		{Key: MarketMapWinner, Name: "Map Winner"},
		{Key: MarketRoundBetting, Name: "Round Betting"},
	}
}
