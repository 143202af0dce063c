package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/models"
)

const (
	trendHistoryLimit  = 500
	trendDefaultPeriod = 5
	trendBucket        = time.Minute

	// Standard deviation of the cross-book implied probability sum that
	// separates the volatility tiers.
	lowVolatilityStd    = 0.005
	mediumVolatilityStd = 0.02

	// Minimum points before a volatility tier is reported.
	minVolatilityPoints = 3
)

// Trend directions of the cross-book implied probability sum.
const (
	TrendImproving = "improving" // sum falling, prices drifting towards arbitrage
	TrendWorsening = "worsening"
	TrendStable    = "stable"
)

// TrendPoint is the best price per outcome across bookmakers at one time.
type TrendPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	BestHome   float64   `json:"best_home"`
	BestAway   float64   `json:"best_away"`
	BestDraw   float64   `json:"best_draw,omitempty"`
	ImpliedSum float64   `json:"implied_sum"`
	Bookmakers int       `json:"bookmakers"`
}

// OddsTrend summarizes how the best prices of a market moved over time.
type OddsTrend struct {
	EventID    string               `json:"event_id"`
	Market     string               `json:"market"`
	Points     []TrendPoint         `json:"points"`
	Period     int                  `json:"period"`
	SMA        []float64            `json:"sma"`
	EMA        []float64            `json:"ema"`
	StdDev     float64              `json:"std_dev"`
	Volatility arbitrage.Volatility `json:"volatility,omitempty"`
	Direction  string               `json:"direction"`
}

// OddsTrendService computes moving averages over the best-price history of a
// market using cinar/indicator.
type OddsTrendService struct {
	odds   OddsHistoryStore
	logger *logrus.Logger
}

// NewOddsTrendService creates a new odds trend service.
func NewOddsTrendService(odds OddsHistoryStore, logger *logrus.Logger) *OddsTrendService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OddsTrendService{odds: odds, logger: logger}
}

// Trend loads the snapshot history of an event market and analyses it.
func (s *OddsTrendService) Trend(ctx context.Context, eventID, market string) (*OddsTrend, error) {
	if market == "" {
		market = models.MarketH2H
	}
	history, err := s.odds.HistoryForEvent(ctx, eventID, market, trendHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load odds history: %w", err)
	}
	return AnalyzeTrend(eventID, market, history), nil
}

// Volatility implements VolatilityEstimator. It returns "" when the history
// is too short to judge.
func (s *OddsTrendService) Volatility(ctx context.Context, eventID, market string) (arbitrage.Volatility, error) {
	t, err := s.Trend(ctx, eventID, market)
	if err != nil {
		return "", err
	}
	return t.Volatility, nil
}

// AnalyzeTrend builds the best-price series from chronological snapshots and
// computes its SMA, EMA and dispersion. A bookmaker's last price carries
// forward until it posts a new one.
func AnalyzeTrend(eventID, market string, history []models.QuoteSnapshot) *OddsTrend {
	out := &OddsTrend{
		EventID:   eventID,
		Market:    market,
		Points:    []TrendPoint{},
		SMA:       []float64{},
		EMA:       []float64{},
		Direction: TrendStable,
	}

	sorted := make([]models.QuoteSnapshot, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CapturedAt.Before(sorted[j].CapturedAt) })

	latest := make(map[string]models.QuoteSnapshot)
	for i, snap := range sorted {
		latest[snap.BookmakerID] = snap
		bucket := snap.CapturedAt.Truncate(trendBucket)
		if i+1 < len(sorted) && sorted[i+1].CapturedAt.Truncate(trendBucket).Equal(bucket) {
			continue
		}
		if p, ok := bestPoint(bucket, latest); ok {
			out.Points = append(out.Points, p)
		}
	}

	series := make([]float64, len(out.Points))
	for i, p := range out.Points {
		series[i] = p.ImpliedSum
	}
	if len(series) < 2 {
		return out
	}

	out.Period = min(trendDefaultPeriod, len(series))
	sma := trend.NewSmaWithPeriod[float64](out.Period)
	out.SMA = helper.ChanToSlice(sma.Compute(helper.SliceToChan(series)))
	ema := trend.NewEmaWithPeriod[float64](out.Period)
	out.EMA = helper.ChanToSlice(ema.Compute(helper.SliceToChan(series)))

	out.StdDev = stdDev(series)
	if len(series) >= minVolatilityPoints {
		out.Volatility = classifyVolatility(out.StdDev)
	}
	if len(out.SMA) > 0 && len(out.EMA) > 0 {
		out.Direction = trendDirection(out.EMA[len(out.EMA)-1], out.SMA[len(out.SMA)-1])
	}
	return out
}

func bestPoint(ts time.Time, latest map[string]models.QuoteSnapshot) (TrendPoint, bool) {
	p := TrendPoint{Timestamp: ts, Bookmakers: len(latest)}
	for _, snap := range latest {
		q := snap.ToQuote()
		p.BestHome = math.Max(p.BestHome, q.OddsHome)
		p.BestAway = math.Max(p.BestAway, q.OddsAway)
		p.BestDraw = math.Max(p.BestDraw, q.OddsDraw)
	}
	if p.BestHome <= 1 || p.BestAway <= 1 {
		return TrendPoint{}, false
	}
	p.ImpliedSum = arbitrage.ImpliedProbability(p.BestHome) + arbitrage.ImpliedProbability(p.BestAway) +
		arbitrage.ImpliedProbability(p.BestDraw)
	return p, true
}

func stdDev(series []float64) float64 {
	var mean float64
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	var sq float64
	for _, v := range series {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(series)))
}

func classifyVolatility(std float64) arbitrage.Volatility {
	switch {
	case std < lowVolatilityStd:
		return arbitrage.VolatilityLow
	case std < mediumVolatilityStd:
		return arbitrage.VolatilityMedium
	default:
		return arbitrage.VolatilityHigh
	}
}

func trendDirection(ema, sma float64) string {
	const epsilon = 1e-4
	switch {
	case ema < sma-epsilon:
		return TrendImproving
	case ema > sma+epsilon:
		return TrendWorsening
	default:
		return TrendStable
	}
}
