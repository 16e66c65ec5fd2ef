package market

import (
	"context"
	"time"
)

// Bar is one OHLCV price observation for a symbol at a point in time.
type Bar struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Time   time.Time
}

// Mid returns the midpoint of the bar's range.
func (b Bar) Mid() float64 {
	return (b.High + b.Low) / 2
}

// Change returns the relative change from open to close.
func (b Bar) Change() float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open
}

// BarSource supplies the most recent known bar for a symbol. The boolean is
// false when no bar is available yet; that is a normal condition, not an
// error.
type BarSource interface {
	LatestBar(ctx context.Context, symbol string) (Bar, bool, error)
}
