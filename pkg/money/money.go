// Package money converts integer cents into display amounts.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal returns cents as a two-place decimal amount.
func Decimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// String renders cents as "12.50".
func String(cents int64) string {
	return Decimal(cents).StringFixed(2)
}

// Format renders cents with a currency suffix, e.g. "12.50 EUR".
func Format(cents int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return String(cents)
	}
	return String(cents) + " " + currency
}

// Percent renders a whole-number percentage of an amount in cents, floored.
func Percent(cents int64, pct int64) int64 {
	return decimal.NewFromInt(cents).Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)).Floor().IntPart()
}
