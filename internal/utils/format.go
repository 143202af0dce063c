package utils

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatProfitPercentage renders a fractional profit (0.0226) as "2.26%".
func FormatProfitPercentage(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

// FormatStake renders an amount as dollars rounded half away from zero to cents.
func FormatStake(v float64) string {
	return "$" + RoundMoney(v).StringFixed(2)
}

// RoundMoney rounds v to two decimal places.
func RoundMoney(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
