package arbitrage

import (
	"math"
	"time"
)

const (
	mediumLatencyThreshold = 10 * time.Second
	highLatencyThreshold   = 30 * time.Second

	// An opportunity never outlives 1/expirationEventDivisor of the time left
	// before the event starts.
	expirationEventDivisor = 10
)

// Volatility describes how fast prices move in a market.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityMedium Volatility = "medium"
	VolatilityHigh   Volatility = "high"
)

var baseExpiration = map[Volatility]time.Duration{
	VolatilityLow:    5 * time.Minute,
	VolatilityMedium: 2 * time.Minute,
	VolatilityHigh:   30 * time.Second,
}

// AssessLatencyRisk classifies a quote by its age at now.
func AssessLatencyRisk(capturedAt, now time.Time) LatencyRisk {
	age := now.Sub(capturedAt)
	switch {
	case age < mediumLatencyThreshold:
		return LatencyLow
	case age < highLatencyThreshold:
		return LatencyMedium
	default:
		return LatencyHigh
	}
}

// EstimateExpiration predicts when an opportunity detected at detectedAt stops
// being actionable. The base window depends on volatility and is never longer
// than 10% of the time remaining before eventStart. An empty volatility is
// treated as medium.
func EstimateExpiration(detectedAt, eventStart time.Time, volatility Volatility) (time.Time, error) {
	if detectedAt.IsZero() || eventStart.IsZero() {
		return time.Time{}, &InputError{Field: "timestamp", Reason: "must be set"}
	}
	if volatility == "" {
		volatility = VolatilityMedium
	}
	window, ok := baseExpiration[volatility]
	if !ok {
		return time.Time{}, &InputError{Field: "volatility", Reason: "unknown volatility " + string(volatility)}
	}

	untilEvent := eventStart.Sub(detectedAt)
	maxWindow := untilEvent / expirationEventDivisor
	if maxWindow < 0 {
		maxWindow = 0
	}
	if maxWindow < window {
		window = maxWindow
	}
	return detectedAt.Add(window), nil
}

// BookmakerLimits are the maximum accepted stakes per leg. Draw is ignored
// unless positive.
type BookmakerLimits struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
	Draw float64 `json:"draw,omitempty"`
}

// EstimateMaxStake returns a conservative ceiling for the total stake: the
// thinnest leg limit scaled by liquidityScore/100.
func EstimateMaxStake(liquidityScore float64, limits BookmakerLimits) (float64, error) {
	if err := validateNonNegative("liquidityScore", liquidityScore); err != nil {
		return 0, err
	}
	if err := validateNonNegative("limits.home", limits.Home); err != nil {
		return 0, err
	}
	if err := validateNonNegative("limits.away", limits.Away); err != nil {
		return 0, err
	}
	if err := validateNonNegative("limits.draw", limits.Draw); err != nil {
		return 0, err
	}

	minLimit := math.Min(limits.Home, limits.Away)
	if limits.Draw > 0 {
		minLimit = math.Min(minLimit, limits.Draw)
	}
	return minLimit * liquidityScore / 100, nil
}
