package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/risk"
)

// MeanReversion trades against deviation from the bar midpoint: sell when the
// close is above (high+low)/2 by more than the threshold, buy when below.
//
// Parameters:
//
//	threshold  relative deviation from midpoint that triggers a signal (0.02)
//	fraction   fraction of balance committed per trade (0.10)
type MeanReversion struct {
	threshold float64
	fraction  float64
}

func NewMeanReversion(params Params) *MeanReversion {
	return &MeanReversion{
		threshold: params.Float("threshold", 0.02),
		fraction:  params.Float("fraction", 0.10),
	}
}

func (m *MeanReversion) Name() string { return "mean-reversion" }

func (m *MeanReversion) Evaluate(_ context.Context, acct ledger.Account, bar market.Bar) (*ledger.Signal, error) {
	mid := bar.Mid()
	if mid == 0 {
		return nil, nil
	}

	deviation := (bar.Close - mid) / mid
	if math.Abs(deviation) <= m.threshold {
		return nil, nil
	}

	qty := risk.PositionSize(acct.Balance, bar.Close, m.fraction)
	if qty == 0 {
		return nil, nil
	}

	// Price above the mean reverts down, so sell; below the mean, buy.
	side := ledger.Sell
	if deviation < 0 {
		side = ledger.Buy
	}

	return &ledger.Signal{
		Symbol:     bar.Symbol,
		Side:       side,
		Quantity:   qty,
		Price:      bar.Close,
		Confidence: math.Min(math.Abs(deviation)*5, 0.9),
		Rationale:  fmt.Sprintf("mean reversion: %.2f%% from midpoint", deviation*100),
	}, nil
}
