package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/risk"
)

// Momentum buys when the bar closed sufficiently above its open and sells
// when it closed sufficiently below. Order size is a fixed fraction of the
// cash balance.
//
// Parameters:
//
//	threshold  relative open-to-close move that triggers a signal (0.01)
//	fraction   fraction of balance committed per trade (0.10)
type Momentum struct {
	threshold float64
	fraction  float64
}

func NewMomentum(params Params) *Momentum {
	return &Momentum{
		threshold: params.Float("threshold", 0.01),
		fraction:  params.Float("fraction", 0.10),
	}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Evaluate(_ context.Context, acct ledger.Account, bar market.Bar) (*ledger.Signal, error) {
	change := bar.Change()
	if math.Abs(change) <= m.threshold {
		return nil, nil
	}

	qty := risk.PositionSize(acct.Balance, bar.Close, m.fraction)
	if qty == 0 {
		return nil, nil
	}

	side := ledger.Buy
	if change < 0 {
		side = ledger.Sell
	}

	return &ledger.Signal{
		Symbol:     bar.Symbol,
		Side:       side,
		Quantity:   qty,
		Price:      bar.Close,
		Confidence: math.Min(math.Abs(change)*10, 0.9),
		Rationale:  fmt.Sprintf("momentum: %.2f%% move open to close", change*100),
	}, nil
}
