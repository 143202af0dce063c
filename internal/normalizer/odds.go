package normalizer

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/irfndi/oddsradar-go/internal/models"
)

// MaxReasonableOdds is the highest decimal price accepted as genuine data.
const MaxReasonableOdds = 1000

var (
	ErrZeroAmericanOdds  = errors.New("american odds cannot be zero")
	ErrInvalidFractional = errors.New("fractional odds need a positive denominator and non-negative numerator")
)

// AmericanToDecimal converts moneyline odds (+150, -200) to decimal odds.
func AmericanToDecimal(american float64) (float64, error) {
	if american == 0 || math.IsNaN(american) {
		return 0, ErrZeroAmericanOdds
	}
	if american > 0 {
		return american/100 + 1, nil
	}
	return 100/math.Abs(american) + 1, nil
}

// FractionalToDecimal converts num/den odds (5/2) to decimal odds.
func FractionalToDecimal(num, den float64) (float64, error) {
	if den <= 0 || num < 0 {
		return 0, ErrInvalidFractional
	}
	return num/den + 1, nil
}

// ValidationResult lists the problems found in a quote.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateOdds checks a normalized quote for prices the engine cannot use.
// A zero draw means the market has no draw.
func ValidateOdds(q models.NormalizedOdds) ValidationResult {
	var errs []string
	if !(q.OddsHome > 1) {
		errs = append(errs, "invalid home odds: must be greater than 1")
	}
	if !(q.OddsAway > 1) {
		errs = append(errs, "invalid away odds: must be greater than 1")
	}
	if q.OddsDraw != 0 && !(q.OddsDraw > 1) {
		errs = append(errs, "invalid draw odds: must be greater than 1")
	}
	if q.OddsHome > MaxReasonableOdds || q.OddsAway > MaxReasonableOdds {
		errs = append(errs, "odds seem unreasonably high, possible data error")
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// IsOddsFresh reports whether a quote captured at capturedAt is younger than
// maxAge at now.
func IsOddsFresh(capturedAt time.Time, maxAge time.Duration, now time.Time) bool {
	return now.Sub(capturedAt) < maxAge
}

// GroupByEventMarket buckets snapshots into comparable sets (see
// QuoteSnapshot.GroupKey). Each bucket is sorted by bookmaker id, then by
// capture time, so best-odds ties resolve the same way on every run.
func GroupByEventMarket(snapshots []models.QuoteSnapshot) map[string][]models.QuoteSnapshot {
	groups := make(map[string][]models.QuoteSnapshot)
	for _, s := range snapshots {
		key := s.GroupKey()
		groups[key] = append(groups[key], s)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].BookmakerID != g[j].BookmakerID {
				return g[i].BookmakerID < g[j].BookmakerID
			}
			return g[i].CapturedAt.Before(g[j].CapturedAt)
		})
	}
	return groups
}

// LatestByBookmaker keeps the most recent snapshot of each bookmaker in a
// group, preserving bookmaker id order.
func LatestByBookmaker(group []models.QuoteSnapshot) []models.QuoteSnapshot {
	latest := make(map[string]int)
	var out []models.QuoteSnapshot
	for _, s := range group {
		if i, ok := latest[s.BookmakerID]; ok {
			if s.CapturedAt.After(out[i].CapturedAt) {
				out[i] = s
			}
			continue
		}
		latest[s.BookmakerID] = len(out)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BookmakerID < out[j].BookmakerID })
	return out
}

// FilterByMarket returns the snapshots of one market.
func FilterByMarket(snapshots []models.QuoteSnapshot, market string) []models.QuoteSnapshot {
	var out []models.QuoteSnapshot
	for _, s := range snapshots {
		if s.MarketType == market {
			out = append(out, s)
		}
	}
	return out
}
