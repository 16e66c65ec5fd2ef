// Package strategy holds the trade-signal generators. A Strategy is a pure
// evaluation: given the account snapshot and the latest bar it may propose
// one signal, and it never mutates anything. The ledger decides whether the
// proposal is executable.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/predict"
)

// Params are the per-simulation strategy tuning knobs from the run config.
type Params map[string]float64

// Float returns the parameter for key, or def when absent.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Strategy maps (account snapshot, price bar) to at most one trade signal.
// A nil signal with nil error means "nothing to do this tick" and is the
// common case. Implementations must not retain or mutate their inputs.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, acct ledger.Account, bar market.Bar) (*ledger.Signal, error)
}

// Predictor is the slice of the prediction client the external-signal
// strategy needs.
type Predictor interface {
	Predict(ctx context.Context, symbol string) (predict.Prediction, error)
}

// ByName constructs the named strategy variant. pred may be nil for the
// variants that do not consult the prediction service; the external variant
// requires it.
func ByName(name string, params Params, pred Predictor) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "momentum":
		return NewMomentum(params), nil

	case "mean-reversion", "mean_reversion", "meanreversion":
		return NewMeanReversion(params), nil

	case "external", "ai-prediction", "ai_prediction":
		if pred == nil {
			return nil, fmt.Errorf("strategy: %q requires a prediction service", name)
		}
		return NewExternalSignal(params, pred), nil

	default:
		return nil, fmt.Errorf("strategy: unknown strategy %q (supported: momentum, mean-reversion, external)", name)
	}
}
