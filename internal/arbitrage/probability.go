package arbitrage

// ImpliedProbability converts decimal odds to the probability they imply.
// Odds at or below 1 carry no usable probability and yield 0.
func ImpliedProbability(odds float64) float64 {
	if odds <= 1 || !isFinite(odds) {
		return 0
	}
	return 1 / odds
}

// ApplyCommission scales an implied probability for a venue that keeps
// commission on winnings: prob / (1 - commission).
func ApplyCommission(prob, commission float64) (float64, error) {
	if err := validateNonNegative("probability", prob); err != nil {
		return 0, err
	}
	if err := validateCommission("commission", commission); err != nil {
		return 0, err
	}
	return prob / (1 - commission), nil
}

// CalculateMargin returns a single book's overround: the sum of its implied
// probabilities minus 1. Pass draw=0 for two-outcome markets. A positive value
// is the bookmaker's edge, not an arbitrage signal.
func CalculateMargin(oddsHome, oddsAway, oddsDraw float64) float64 {
	total := ImpliedProbability(oddsHome) + ImpliedProbability(oddsAway)
	if oddsDraw > 0 {
		total += ImpliedProbability(oddsDraw)
	}
	return total - 1
}

// IsArbitrageOpportunity is a quick pre-filter on raw prices without
// commission or threshold: true when the implied probabilities sum below 1.
func IsArbitrageOpportunity(oddsHome, oddsAway, oddsDraw float64) bool {
	if oddsHome <= 1 || oddsAway <= 1 {
		return false
	}
	total := 1/oddsHome + 1/oddsAway
	if oddsDraw > 0 {
		if oddsDraw <= 1 {
			return false
		}
		total += 1 / oddsDraw
	}
	return total < 1
}
