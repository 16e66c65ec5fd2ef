package strategy

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/risk"
)

// ExternalSignal delegates to the prediction service and trades in the
// direction of the predicted move when both the move and the model's
// confidence clear their thresholds. A collaborator failure produces no
// signal, never an error: a dead prediction service degrades the strategy to
// "do nothing", it does not stop the run.
//
// Parameters:
//
//	min-change      minimum predicted relative change (0.005)
//	min-confidence  minimum model confidence (0.6)
//	fraction        fraction of balance committed per trade (0.10)
type ExternalSignal struct {
	minChange     float64
	minConfidence float64
	fraction      float64
	pred          Predictor
}

func NewExternalSignal(params Params, pred Predictor) *ExternalSignal {
	return &ExternalSignal{
		minChange:     params.Float("min-change", 0.005),
		minConfidence: params.Float("min-confidence", 0.6),
		fraction:      params.Float("fraction", 0.10),
		pred:          pred,
	}
}

func (e *ExternalSignal) Name() string { return "external" }

func (e *ExternalSignal) Evaluate(ctx context.Context, acct ledger.Account, bar market.Bar) (*ledger.Signal, error) {
	if bar.Close == 0 {
		return nil, nil
	}

	p, err := e.pred.Predict(ctx, bar.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", bar.Symbol).Msg("prediction unavailable, skipping tick")
		return nil, nil
	}

	change := (p.Price - bar.Close) / bar.Close
	if math.Abs(change) <= e.minChange || p.Confidence <= e.minConfidence {
		return nil, nil
	}

	qty := risk.PositionSize(acct.Balance, bar.Close, e.fraction)
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
		Confidence: p.Confidence,
		Rationale:  fmt.Sprintf("prediction: %s at %.2f confidence", p.Direction, p.Confidence),
	}, nil
}
