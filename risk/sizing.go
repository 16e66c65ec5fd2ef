package risk

import "math"

// PositionSize returns the whole number of units to trade when committing
// fraction of balance at price. Returns 0 when the fraction of balance does
// not cover a single unit; callers treat that as no trade.
func PositionSize(balance, price, fraction float64) int64 {
	if balance <= 0 || price <= 0 || fraction <= 0 {
		return 0
	}
	return int64(math.Floor(balance * fraction / price))
}

// VolatilityScaled shrinks fraction when the bar's relative range is wide.
// A range at or below refRange leaves fraction unchanged; wider ranges scale
// it down proportionally. Mirrors sizing positions inversely to volatility.
func VolatilityScaled(fraction, barRange, refRange float64) float64 {
	if barRange <= 0 || refRange <= 0 || barRange <= refRange {
		return fraction
	}
	return fraction * refRange / barRange
}
