package shared

import "github.com/shopspring/decimal"

// BalanceTolerance is the absolute epsilon used for debit/credit comparisons.
var BalanceTolerance = decimal.RequireFromString("0.01")

// WithinTolerance reports whether |a-b| <= 0.01.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(BalanceTolerance)
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
