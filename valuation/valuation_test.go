package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/papertrade/ledger"
)

func pl(v float64) *float64 { return &v }

func TestRecomputeMarkToMarket(t *testing.T) {
	t.Parallel()

	acct := ledger.Account{
		Balance: 1000,
		Positions: map[string]ledger.Position{
			"ACME":   {Quantity: 10, AvgCost: 100},
			"GLOBEX": {Quantity: 5, AvgCost: 50},
		},
	}
	prices := map[string]float64{"ACME": 120, "GLOBEX": 40}

	m := Recompute(acct, nil, prices, 2000)

	assert.InDelta(t, 1000+10*120+5*40, m.Value, 1e-9)
	assert.InDelta(t, m.Value-2000, m.ProfitLoss, 1e-9)
}

func TestRecomputeFallsBackToAvgCost(t *testing.T) {
	t.Parallel()

	acct := ledger.Account{
		Balance: 100,
		Positions: map[string]ledger.Position{
			"ACME": {Quantity: 10, AvgCost: 100},
		},
	}

	m := Recompute(acct, nil, map[string]float64{}, 1100)

	assert.InDelta(t, 100+10*100, m.Value, 1e-9)
	assert.InDelta(t, 0, m.ProfitLoss, 1e-9)
}

func TestWinRateCountsOnlyClosedTrades(t *testing.T) {
	t.Parallel()

	trades := []ledger.Trade{
		{Side: ledger.Buy},                             // open, no realized P&L
		{Side: ledger.Sell, RealizedPL: pl(50)},        // win
		{Side: ledger.Sell, RealizedPL: pl(-20)},       // loss
		{Side: ledger.Sell, RealizedPL: pl(30)},        // win
		{Side: ledger.Buy},                             // open
	}

	m := Recompute(ledger.Account{Balance: 1000}, trades, nil, 1000)

	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-9)
	assert.Equal(t, 5, m.TradeCount)
}

func TestWinRateZeroWithNoClosedTrades(t *testing.T) {
	t.Parallel()

	trades := []ledger.Trade{{Side: ledger.Buy}}

	m := Recompute(ledger.Account{Balance: 1000}, trades, nil, 1000)
	assert.Zero(t, m.WinRate)
}

func TestSingleClosedWinningTradeIsFullWinRate(t *testing.T) {
	t.Parallel()

	// Buy 10@100 then sell 10@120: realized 200, win rate 100%.
	trades := []ledger.Trade{
		{Side: ledger.Buy, Quantity: 10, Price: 100},
		{Side: ledger.Sell, Quantity: 10, Price: 120, RealizedPL: pl(200)},
	}

	m := Recompute(ledger.Account{Balance: 1200}, trades, nil, 1000)
	assert.InDelta(t, 1.0, m.WinRate, 1e-9)
	assert.InDelta(t, 200, m.ProfitLoss, 1e-9)
}
