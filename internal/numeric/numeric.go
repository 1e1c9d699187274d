// Package numeric provides decimal helpers used across the connector.
package numeric

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts a decimal string into a decimal value.
// On failure, it returns (zero, false).
func Parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// IncrementFromScale derives the minimum increment implied by a venue scale,
// i.e. 10^(-scale). A non-positive scale yields 1.
func IncrementFromScale(scale int) decimal.Decimal {
	if scale <= 0 {
		return decimal.New(1, 0)
	}
	return decimal.New(1, int32(-scale))
}

// QuantizeDown truncates value to a multiple of increment, rounding toward zero.
// A non-positive increment returns value unchanged.
func QuantizeDown(value, increment decimal.Decimal) decimal.Decimal {
	if increment.Sign() <= 0 {
		return value
	}
	steps := value.Div(increment).Truncate(0)
	return steps.Mul(increment)
}
