package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/oddsradar-go/internal/models"
	"github.com/irfndi/oddsradar-go/internal/normalizer"
	"github.com/irfndi/oddsradar-go/internal/utils"
)

// StakeLeg is one bet of a stake plan.
type StakeLeg struct {
	Outcome   string          `json:"outcome"`
	Bookmaker string          `json:"bookmaker"`
	Odds      float64         `json:"odds"`
	Stake     decimal.Decimal `json:"stake"`
}

// StakePlan is the stake split sent with an alert, in cents.
type StakePlan struct {
	TotalStake     decimal.Decimal `json:"total_stake"`
	ExpectedProfit decimal.Decimal `json:"expected_profit"`
	Legs           []StakeLeg      `json:"legs"`
}

// BuildStakePlan scales the recommended stakes of o so the total does not
// exceed maxStake (0 means no cap). Legs are rounded to cents and the last leg
// takes the remainder, so the legs always add up to the total.
func BuildStakePlan(o *models.Opportunity, maxStake float64) StakePlan {
	total := decimal.NewFromFloat(o.TotalStake)
	if maxStake > 0 {
		total = decimal.Min(total, decimal.NewFromFloat(maxStake))
	}
	total = total.Round(2)

	outcomes := []string{"Home", "Away"}
	bookmakers := []string{o.BookmakerHome, o.BookmakerAway}
	odds := []float64{o.OddsHome, o.OddsAway}
	if o.IsThreeWay {
		outcomes = append(outcomes, "Draw")
		bookmakers = append(bookmakers, o.BookmakerDraw)
		odds = append(odds, o.OddsDraw)
	}
	stakes := o.Stakes()

	plan := StakePlan{TotalStake: total, Legs: make([]StakeLeg, len(stakes))}
	allocated := decimal.Zero
	for i, stake := range stakes {
		var leg decimal.Decimal
		if i == len(stakes)-1 {
			leg = total.Sub(allocated)
		} else if o.TotalStake > 0 {
			leg = decimal.NewFromFloat(stake).Mul(total).Div(decimal.NewFromFloat(o.TotalStake)).Round(2)
			allocated = allocated.Add(leg)
		}
		plan.Legs[i] = StakeLeg{Outcome: outcomes[i], Bookmaker: bookmakers[i], Odds: odds[i], Stake: leg}
	}
	plan.ExpectedProfit = total.Mul(decimal.NewFromFloat(o.ProfitPercentage)).Round(2)
	return plan
}

// AlertMessage is a rendered alert handed to a Notifier.
type AlertMessage struct {
	Title       string
	Text        string
	Opportunity *models.Opportunity
	Plan        StakePlan
	CreatedAt   time.Time
}

// FormatAlertMessage renders the Telegram-flavoured Markdown body shared by
// every channel.
func FormatAlertMessage(o *models.Opportunity, plan StakePlan, now time.Time) AlertMessage {
	title := fmt.Sprintf("Arbitrage: %s (%s)", o.Title(), utils.FormatProfitPercentage(o.ProfitPercentage))

	var b strings.Builder
	b.WriteString("🚨 *Arbitrage Opportunity*\n\n")
	fmt.Fprintf(&b, "🏟 *%s*\n", o.Title())
	if sport := o.SportKey(); sport != "" {
		fmt.Fprintf(&b, "🏷 %s\n", sport)
	}
	fmt.Fprintf(&b, "📊 Market: %s\n", normalizer.FormatMarketType(o.MarketType))
	fmt.Fprintf(&b, "💰 Profit: *%s*\n", utils.FormatProfitPercentage(o.ProfitPercentage))
	fmt.Fprintf(&b, "⭐ Quality: %s (%d/100)\n", o.QualityGrade, o.QualityScore)
	fmt.Fprintf(&b, "⏱ Latency risk: %s\n\n", o.LatencyRisk)

	b.WriteString("*Stakes*\n")
	for _, leg := range plan.Legs {
		fmt.Fprintf(&b, "• %s @ %.2f on %s: %s\n", leg.Outcome, leg.Odds, leg.Bookmaker, formatDecimalStake(leg.Stake))
	}
	fmt.Fprintf(&b, "\n💵 Total: %s, expected profit %s\n",
		formatDecimalStake(plan.TotalStake), formatDecimalStake(plan.ExpectedProfit))
	if !o.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "⌛ Expires: %s\n", o.ExpiresAt.UTC().Format("15:04:05 UTC"))
	}

	return AlertMessage{
		Title:       title,
		Text:        b.String(),
		Opportunity: o,
		Plan:        plan,
		CreatedAt:   now,
	}
}

func formatDecimalStake(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
