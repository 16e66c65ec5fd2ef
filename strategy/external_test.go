package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/predict"
)

type fakePredictor struct {
	prediction predict.Prediction
	err        error
	calls      int
}

func (f *fakePredictor) Predict(_ context.Context, symbol string) (predict.Prediction, error) {
	f.calls++
	if f.err != nil {
		return predict.Prediction{}, f.err
	}
	p := f.prediction
	p.Symbol = symbol
	return p, nil
}

func TestExternalSignalBuysOnPredictedRise(t *testing.T) {
	t.Parallel()

	pred := &fakePredictor{prediction: predict.Prediction{Price: 102, Confidence: 0.8, Direction: "up"}}
	s := NewExternalSignal(nil, pred)

	sig, err := s.Evaluate(context.Background(), account(10000), bar(100, 101, 99, 100))
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, ledger.Buy, sig.Side)
	assert.InDelta(t, 0.8, sig.Confidence, 1e-9)
	assert.Equal(t, int64(10), sig.Quantity)
}

func TestExternalSignalSellsOnPredictedDrop(t *testing.T) {
	t.Parallel()

	pred := &fakePredictor{prediction: predict.Prediction{Price: 95, Confidence: 0.7, Direction: "down"}}
	s := NewExternalSignal(nil, pred)

	sig, err := s.Evaluate(context.Background(), account(10000), bar(100, 101, 99, 100))
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, ledger.Sell, sig.Side)
}

func TestExternalSignalIgnoresSmallPredictedMove(t *testing.T) {
	t.Parallel()

	pred := &fakePredictor{prediction: predict.Prediction{Price: 100.2, Confidence: 0.9}}
	s := NewExternalSignal(nil, pred)

	sig, err := s.Evaluate(context.Background(), account(10000), bar(100, 101, 99, 100))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestExternalSignalIgnoresLowConfidence(t *testing.T) {
	t.Parallel()

	pred := &fakePredictor{prediction: predict.Prediction{Price: 105, Confidence: 0.5}}
	s := NewExternalSignal(nil, pred)

	sig, err := s.Evaluate(context.Background(), account(10000), bar(100, 101, 99, 100))
	require.NoError(t, err)
	assert.Nil(t, sig)
}

func TestExternalSignalCollaboratorFailureIsNoSignal(t *testing.T) {
	t.Parallel()

	pred := &fakePredictor{err: errors.New("service down")}
	s := NewExternalSignal(nil, pred)

	sig, err := s.Evaluate(context.Background(), account(10000), bar(100, 101, 99, 100))
	require.NoError(t, err)
	assert.Nil(t, sig)
	assert.Equal(t, 1, pred.calls)
}

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"momentum", "mean-reversion", "mean_reversion"} {
		s, err := ByName(name, nil, nil)
		require.NoError(t, err, name)
		require.NotNil(t, s)
	}

	s, err := ByName("external", nil, &fakePredictor{})
	require.NoError(t, err)
	assert.Equal(t, "external", s.Name())

	_, err = ByName("external", nil, nil)
	assert.Error(t, err)

	_, err = ByName("martingale", nil, nil)
	assert.Error(t, err)
}
