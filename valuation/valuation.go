// Package valuation computes mark-to-market portfolio value and performance
// metrics from an account, its trade history, and the latest known prices.
package valuation

import "github.com/rustyeddy/papertrade/ledger"

// Metrics is the recomputed performance snapshot for one simulation.
type Metrics struct {
	// Value is cash plus open positions marked at the latest price. Positions
	// with no known price are valued at average cost.
	Value float64

	// WinRate is winning closed trades over all closed trades, 0 with no
	// closed trades yet.
	WinRate float64

	// ProfitLoss is Value minus the initial balance.
	ProfitLoss float64

	TradeCount int
}

// Recompute derives Metrics for an account. latestPrices maps symbol to the
// most recent close; held symbols absent from the map fall back to their
// average cost, a conservative mark.
func Recompute(acct ledger.Account, trades []ledger.Trade, latestPrices map[string]float64, initialBalance float64) Metrics {
	value := acct.Balance
	for sym, pos := range acct.Positions {
		price, ok := latestPrices[sym]
		if !ok {
			price = pos.AvgCost
		}
		value += float64(pos.Quantity) * price
	}

	closed, wins := 0, 0
	for _, tr := range trades {
		if tr.RealizedPL == nil {
			continue
		}
		closed++
		if *tr.RealizedPL > 0 {
			wins++
		}
	}

	winRate := 0.0
	if closed > 0 {
		winRate = float64(wins) / float64(closed)
	}

	return Metrics{
		Value:      value,
		WinRate:    winRate,
		ProfitLoss: value - initialBalance,
		TradeCount: len(trades),
	}
}
