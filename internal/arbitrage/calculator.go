package arbitrage

import "math"

type outcome int

const (
	outcomeHome outcome = iota
	outcomeDraw
	outcomeAway
)

// leg is one outcome priced for the calculation.
type leg struct {
	outcome    outcome
	name       string
	odds       float64
	commission float64
}

// Calculate2WayArbitrage evaluates a two-outcome market.
//
// Parameters:
//   - oddsHome, oddsAway: decimal odds, each greater than 1.
//   - commissionHome, commissionAway: venue commission in [0, 1).
//
// Returns:
//   - The calculation for the engine's default total stake. IsArbitrage is
//     false when the margin does not clear the configured threshold.
//   - An error wrapping ErrInvalidInput for unusable numbers.
func (e *Engine) Calculate2WayArbitrage(oddsHome, oddsAway, commissionHome, commissionAway float64) (*Calculation, error) {
	return e.calculate([]leg{
		{outcome: outcomeHome, name: "oddsHome", odds: oddsHome, commission: commissionHome},
		{outcome: outcomeAway, name: "oddsAway", odds: oddsAway, commission: commissionAway},
	}, e.config.DefaultTotalStake)
}

// Calculate3WayArbitrage evaluates a home/draw/away market. Argument order
// follows the conventional 1X2 layout.
func (e *Engine) Calculate3WayArbitrage(oddsHome, oddsDraw, oddsAway, commissionHome, commissionDraw, commissionAway float64) (*Calculation, error) {
	return e.calculate([]leg{
		{outcome: outcomeHome, name: "oddsHome", odds: oddsHome, commission: commissionHome},
		{outcome: outcomeDraw, name: "oddsDraw", odds: oddsDraw, commission: commissionDraw},
		{outcome: outcomeAway, name: "oddsAway", odds: oddsAway, commission: commissionAway},
	}, e.config.DefaultTotalStake)
}

// CalculateWithStake is Calculate2WayArbitrage/Calculate3WayArbitrage with an
// explicit total stake. Pass oddsDraw=0 for a two-way market.
func (e *Engine) CalculateWithStake(oddsHome, oddsAway, oddsDraw, commissionHome, commissionAway, commissionDraw, totalStake float64) (*Calculation, error) {
	if err := validateNonNegative("totalStake", totalStake); err != nil {
		return nil, err
	}
	if totalStake == 0 {
		return nil, invalid("totalStake", totalStake, "must be positive")
	}
	legs := []leg{{outcome: outcomeHome, name: "oddsHome", odds: oddsHome, commission: commissionHome}}
	if oddsDraw != 0 {
		legs = append(legs, leg{outcome: outcomeDraw, name: "oddsDraw", odds: oddsDraw, commission: commissionDraw})
	}
	legs = append(legs, leg{outcome: outcomeAway, name: "oddsAway", odds: oddsAway, commission: commissionAway})
	return e.calculate(legs, totalStake)
}

// calculate runs the shared N-leg algorithm. Legs are ordered home, draw (when
// present) and away.
func (e *Engine) calculate(legs []leg, totalStake float64) (*Calculation, error) {
	probs := make([]float64, len(legs))
	var total, commissions float64

	for i, l := range legs {
		if err := validateOdds(l.name, l.odds); err != nil {
			return nil, err
		}
		if err := validateCommission(l.name+".commission", l.commission); err != nil {
			return nil, err
		}
		p, err := ApplyCommission(ImpliedProbability(l.odds), l.commission)
		if err != nil {
			return nil, err
		}
		probs[i] = p
		total += p
		commissions += l.commission
	}

	if total <= 0 || !isFinite(total) {
		return nil, invalid("totalImpliedProb", total, "must be positive")
	}

	margin := 1 - total
	profitPct := margin / total

	stakes := splitStake(totalStake, probs, total)

	expected := totalStake * profitPct

	calc := &Calculation{
		TotalImpliedProb:   total,
		ArbitrageMargin:    margin,
		ProfitPercentage:   profitPct,
		IsArbitrage:        margin > e.config.MinProfitPercentage,
		IsThreeWay:         len(legs) == 3,
		TotalStake:         totalStake,
		ExpectedProfit:     expected,
		CommissionAdjusted: commissions,
		SlippageEstimate:   e.config.SlippageEstimate,
		AdjustedProfit:     expected * (1 - e.config.SlippageEstimate),
	}
	for i, l := range legs {
		switch l.outcome {
		case outcomeHome:
			calc.BestOddsHome = LegOdds{Odds: l.odds}
			calc.StakeHome = stakes[i]
		case outcomeDraw:
			calc.BestOddsDraw = &LegOdds{Odds: l.odds}
			calc.StakeDraw = stakes[i]
		case outcomeAway:
			calc.BestOddsAway = LegOdds{Odds: l.odds}
			calc.StakeAway = stakes[i]
		}
	}
	return calc, nil
}

// splitStake allocates totalStake proportionally to probs. Every stake but the
// last is snapped to a multiple of the spacing of floats at totalStake and
// the last takes the remainder, so all partial sums are exact and the stakes
// add up to exactly totalStake in any order.
func splitStake(totalStake float64, probs []float64, total float64) []float64 {
	unit := math.Nextafter(totalStake, math.Inf(1)) - totalStake
	stakes := make([]float64, len(probs))
	var allocated float64
	last := len(probs) - 1
	for i := 0; i < last; i++ {
		stakes[i] = math.Round(totalStake*probs[i]/total/unit) * unit
		allocated += stakes[i]
	}
	stakes[last] = totalStake - allocated
	return stakes
}
