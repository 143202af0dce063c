package models

import "time"

// SourceAPI identifies where an event or quote came from.
type SourceAPI string

const (
	SourceOddsAPI    SourceAPI = "the_odds_api"
	SourcePolymarket SourceAPI = "polymarket"
	SourceManual     SourceAPI = "manual"
)

// EventStatus is the lifecycle state of a sporting event.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventLive      EventStatus = "live"
	EventEnded     EventStatus = "ended"
	EventCancelled EventStatus = "cancelled"
)

// Event represents a fixture or match stored in the database.
type Event struct {
	ID           string      `json:"id" db:"id"`
	ExternalID   string      `json:"external_id" db:"external_id"`
	SourceAPI    SourceAPI   `json:"source_api" db:"source_api"`
	SportKey     string      `json:"sport_key" db:"sport_key"`
	Competition  string      `json:"competition,omitempty" db:"competition"`
	HomeTeam     string      `json:"home_team" db:"home_team"`
	AwayTeam     string      `json:"away_team" db:"away_team"`
	CommenceTime time.Time   `json:"commence_time" db:"commence_time"`
	Status       EventStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// EventWithOdds is an event together with the most recent quote per bookmaker.
type EventWithOdds struct {
	Event
	LatestOdds []QuoteSnapshot `json:"latest_odds"`
}

// NormalizedEvent is an event as produced by a connector, before it has a
// database id.
type NormalizedEvent struct {
	ExternalID   string      `json:"external_id"`
	SourceAPI    SourceAPI   `json:"source_api"`
	SportKey     string      `json:"sport_key"`
	Competition  string      `json:"competition,omitempty"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	CommenceTime time.Time   `json:"commence_time"`
	Status       EventStatus `json:"status"`
}
