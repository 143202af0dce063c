package arbitrage

import (
	"math"
)

// LatencyRisk buckets how stale a quote is.
type LatencyRisk string

const (
	LatencyLow    LatencyRisk = "low"
	LatencyMedium LatencyRisk = "medium"
	LatencyHigh   LatencyRisk = "high"
)

// Rank orders risks so callers can compare them against a configured maximum.
func (r LatencyRisk) Rank() int {
	switch r {
	case LatencyLow:
		return 0
	case LatencyMedium:
		return 1
	case LatencyHigh:
		return 2
	default:
		return -1
	}
}

// Valid reports whether r is a known bucket.
func (r LatencyRisk) Valid() bool {
	return r.Rank() >= 0
}

// Grade is the letter form of a quality score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Rank returns 4 for A down to 0 for F, -1 for unknown grades.
func (g Grade) Rank() int {
	switch g {
	case GradeA:
		return 4
	case GradeB:
		return 3
	case GradeC:
		return 2
	case GradeD:
		return 1
	case GradeF:
		return 0
	default:
		return -1
	}
}

const (
	maxProfitPoints   = 40.0
	profitPointsScale = 2000.0 // 2% profit saturates the profit component
	liquidityWeight   = 25.0
	reliabilityWeight = 35.0
)

var latencyPenalty = map[LatencyRisk]float64{
	LatencyLow:    0,
	LatencyMedium: 10,
	LatencyHigh:   25,
}

// CalculateQualityScore blends profit, liquidity, latency and counterparty
// reliability into an integer score in [0, 100].
//
// Parameters:
//   - profitPercentage: fractional profit (0.02 = 2%).
//   - liquidityScore: 0-100 estimate of available depth.
//   - latencyRisk: staleness bucket of the quotes.
//   - bookmakerReliability: 0-100 average reliability of the legs' venues.
func CalculateQualityScore(profitPercentage, liquidityScore float64, latencyRisk LatencyRisk, bookmakerReliability float64) (int, error) {
	if err := validateNonNegative("profitPercentage", profitPercentage); err != nil {
		return 0, err
	}
	if err := validateNonNegative("liquidityScore", liquidityScore); err != nil {
		return 0, err
	}
	if err := validateNonNegative("bookmakerReliability", bookmakerReliability); err != nil {
		return 0, err
	}
	penalty, ok := latencyPenalty[latencyRisk]
	if !ok {
		return 0, &InputError{Field: "latencyRisk", Reason: "unknown risk " + string(latencyRisk)}
	}

	profitScore := math.Min(maxProfitPoints, profitPercentage*profitPointsScale)
	liquidityPoints := liquidityScore / 100 * liquidityWeight
	reliabilityPoints := bookmakerReliability / 100 * reliabilityWeight

	total := profitScore + liquidityPoints + reliabilityPoints - penalty
	total = math.Max(0, math.Min(100, math.Round(total)))
	return int(total), nil
}

// AssignQualityGrade maps a score to a letter. Each band includes its lower
// bound.
func AssignQualityGrade(score int) Grade {
	switch {
	case score >= 80:
		return GradeA
	case score >= 65:
		return GradeB
	case score >= 50:
		return GradeC
	case score >= 35:
		return GradeD
	default:
		return GradeF
	}
}
