// Package arbitrage implements the closed-form arbitrage math used to detect
// risk-free stake splits across bookmakers: implied probabilities, 2-way and
// 3-way calculations, best-odds selection, quality scoring and risk estimates.
//
// Everything in this package is pure. An Engine only holds configuration and
// may be shared between goroutines.
package arbitrage

import (
	"time"
)

// Config holds the tunables consumed by the engine.
type Config struct {
	// MinProfitPercentage is the margin an opportunity must exceed to count as
	// arbitrage (0.01 = 1%).
	MinProfitPercentage float64 `mapstructure:"min_profit_percentage"`

	// CommissionDefault is applied to bookmakers without a known commission.
	CommissionDefault float64 `mapstructure:"commission_default"`

	// SlippageEstimate is the fractional haircut applied to expected profit.
	SlippageEstimate float64 `mapstructure:"slippage_estimate"`

	// MaxLatencyMs is the oldest quote age accepted for detection.
	MaxLatencyMs int64 `mapstructure:"max_latency_ms"`

	// DefaultTotalStake is the stake split across legs when none is given.
	DefaultTotalStake float64 `mapstructure:"default_total_stake"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MinProfitPercentage: 0.01,
		CommissionDefault:   0.02,
		SlippageEstimate:    0.005,
		MaxLatencyMs:        60000,
		DefaultTotalStake:   100,
	}
}

// MaxLatency returns MaxLatencyMs as a duration.
func (c Config) MaxLatency() time.Duration {
	return time.Duration(c.MaxLatencyMs) * time.Millisecond
}

// Engine evaluates quotes for arbitrage. The zero value is not usable; build
// one with NewEngine.
type Engine struct {
	config Config
}

// NewEngine creates an engine. Zero-valued fields in cfg fall back to
// DefaultConfig, so an explicit 0 cannot be expressed for any field; callers
// loading user configuration reject zeros up front (see config.Validate).
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MinProfitPercentage == 0 {
		cfg.MinProfitPercentage = def.MinProfitPercentage
	}
	if cfg.CommissionDefault == 0 {
		cfg.CommissionDefault = def.CommissionDefault
	}
	if cfg.SlippageEstimate == 0 {
		cfg.SlippageEstimate = def.SlippageEstimate
	}
	if cfg.MaxLatencyMs == 0 {
		cfg.MaxLatencyMs = def.MaxLatencyMs
	}
	if cfg.DefaultTotalStake <= 0 {
		cfg.DefaultTotalStake = def.DefaultTotalStake
	}
	return &Engine{config: cfg}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Quote is one bookmaker's price for a single event and market. Quotes are
// read-only inputs; the engine never modifies them.
type Quote struct {
	BookmakerID  string    `json:"bookmaker_id"`
	BookmakerKey string    `json:"bookmaker_key"`
	Commission   float64   `json:"commission"`
	OddsHome     float64   `json:"odds_home"`
	OddsAway     float64   `json:"odds_away"`
	OddsDraw     float64   `json:"odds_draw,omitempty"` // 0 when the market has no draw
	CapturedAt   time.Time `json:"captured_at"`

	// SupportsBothSidesExposure marks exchanges and prediction markets where
	// backing both outcomes on the same venue is executable.
	SupportsBothSidesExposure bool `json:"supports_both_sides_exposure"`
}

// LegOdds identifies the price chosen for one outcome.
type LegOdds struct {
	Odds         float64 `json:"odds"`
	BookmakerID  string  `json:"bookmaker_id"`
	BookmakerKey string  `json:"bookmaker_key"`
}

// Calculation is the result of evaluating one set of legs.
type Calculation struct {
	TotalImpliedProb float64 `json:"total_implied_prob"`
	ArbitrageMargin  float64 `json:"arbitrage_margin"`
	ProfitPercentage float64 `json:"profit_percentage"`
	IsArbitrage      bool    `json:"is_arbitrage"`
	IsThreeWay       bool    `json:"is_three_way"`

	BestOddsHome LegOdds  `json:"best_odds_home"`
	BestOddsAway LegOdds  `json:"best_odds_away"`
	BestOddsDraw *LegOdds `json:"best_odds_draw,omitempty"`

	TotalStake float64 `json:"total_stake"`
	StakeHome  float64 `json:"stake_home"`
	StakeAway  float64 `json:"stake_away"`
	StakeDraw  float64 `json:"stake_draw,omitempty"`

	ExpectedProfit     float64 `json:"expected_profit"`
	CommissionAdjusted float64 `json:"commission_adjusted"`
	SlippageEstimate   float64 `json:"slippage_estimate"`
	AdjustedProfit     float64 `json:"adjusted_profit"`
}

// Payouts returns stake*odds for each leg in home, away[, draw] order.
func (c *Calculation) Payouts() []float64 {
	out := []float64{
		c.StakeHome * c.BestOddsHome.Odds,
		c.StakeAway * c.BestOddsAway.Odds,
	}
	if c.BestOddsDraw != nil {
		out = append(out, c.StakeDraw*c.BestOddsDraw.Odds)
	}
	return out
}
