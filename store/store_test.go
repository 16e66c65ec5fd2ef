package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// backends returns every store implementation reachable without external
// services. Postgres is covered by the same interface but needs a live server.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	sq, err := NewSQLite(filepath.Join(t.TempDir(), "papertrade.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"sqlite": sq,
		"memory": NewMemory(),
	}
}

func sampleState(id string) SimulationState {
	return SimulationState{
		ID:             id,
		Symbol:         "ACME",
		Strategy:       "momentum",
		Status:         StatusCreated,
		InitialBalance: 10000,
		CurrentBalance: 10000,
		StartTime:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSimulationRoundTrip(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			in := sampleState("sim-1")
			require.NoError(t, st.CreateSimulation(ctx, in))

			got, err := st.GetSimulation(ctx, "sim-1")
			require.NoError(t, err)
			assert.Equal(t, in.ID, got.ID)
			assert.Equal(t, in.Symbol, got.Symbol)
			assert.Equal(t, in.Strategy, got.Strategy)
			assert.Equal(t, StatusCreated, got.Status)
			assert.Equal(t, in.InitialBalance, got.InitialBalance)
			assert.True(t, in.StartTime.Equal(got.StartTime), "start time %v != %v", in.StartTime, got.StartTime)
			assert.Nil(t, got.EndTime)
		})
	}
}

func TestUpdateSimulation(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			in := sampleState("sim-2")
			require.NoError(t, st.CreateSimulation(ctx, in))

			end := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
			in.Status = StatusStopped
			in.CurrentBalance = 10250
			in.TotalTrades = 4
			in.WinRate = 0.5
			in.ProfitLoss = 250
			in.EndTime = &end
			require.NoError(t, st.UpdateSimulation(ctx, in))

			got, err := st.GetSimulation(ctx, "sim-2")
			require.NoError(t, err)
			assert.Equal(t, StatusStopped, got.Status)
			assert.Equal(t, 10250.0, got.CurrentBalance)
			assert.Equal(t, 4, got.TotalTrades)
			assert.Equal(t, 0.5, got.WinRate)
			assert.Equal(t, 250.0, got.ProfitLoss)
			require.NotNil(t, got.EndTime)
			assert.True(t, end.Equal(*got.EndTime))
		})
	}
}

func TestUpdateUnknownSimulation(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := st.UpdateSimulation(context.Background(), sampleState("missing"))
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestGetUnknownSimulation(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.GetSimulation(context.Background(), "missing")
			assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
		})
	}
}

func TestListSimulationsNewestFirst(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			older := sampleState("sim-old")
			newer := sampleState("sim-new")
			newer.StartTime = older.StartTime.Add(time.Hour)
			require.NoError(t, st.CreateSimulation(ctx, older))
			require.NoError(t, st.CreateSimulation(ctx, newer))

			states, err := st.ListSimulations(ctx)
			require.NoError(t, err)
			require.Len(t, states, 2)
			assert.Equal(t, "sim-new", states[0].ID)
			assert.Equal(t, "sim-old", states[1].ID)
		})
	}
}

func TestTradesRoundTrip(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

			buy := ledger.Trade{
				ID: "t-1", SimulationID: "sim-3", Symbol: "ACME",
				Side: ledger.Buy, Quantity: 10, Price: 100, Time: base,
			}
			realized := 50.0
			sell := ledger.Trade{
				ID: "t-2", SimulationID: "sim-3", Symbol: "ACME",
				Side: ledger.Sell, Quantity: 5, Price: 110, Time: base.Add(time.Minute),
				RealizedPL: &realized,
			}
			require.NoError(t, st.AppendTrade(ctx, buy))
			require.NoError(t, st.AppendTrade(ctx, sell))

			// Another simulation's trade must not leak into the listing.
			require.NoError(t, st.AppendTrade(ctx, ledger.Trade{
				ID: "t-3", SimulationID: "sim-other", Symbol: "ACME",
				Side: ledger.Buy, Quantity: 1, Price: 100, Time: base,
			}))

			trades, err := st.ListTrades(ctx, "sim-3")
			require.NoError(t, err)
			require.Len(t, trades, 2)

			assert.Equal(t, "t-1", trades[0].ID)
			assert.Equal(t, ledger.Buy, trades[0].Side)
			assert.Nil(t, trades[0].RealizedPL)

			assert.Equal(t, "t-2", trades[1].ID)
			assert.Equal(t, ledger.Sell, trades[1].Side)
			require.NotNil(t, trades[1].RealizedPL)
			assert.Equal(t, 50.0, *trades[1].RealizedPL)
		})
	}
}

func TestLatestBar(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

			_, ok, err := st.LatestBar(ctx, "ACME")
			require.NoError(t, err)
			assert.False(t, ok, "no bars stored yet")

			require.NoError(t, st.PutBar(ctx, market.Bar{
				Symbol: "ACME", Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 500, Time: base,
			}))
			require.NoError(t, st.PutBar(ctx, market.Bar{
				Symbol: "ACME", Open: 100.5, High: 103, Low: 100, Close: 102, Volume: 700, Time: base.Add(time.Minute),
			}))

			bar, ok, err := st.LatestBar(ctx, "ACME")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 102.0, bar.Close)
			assert.True(t, base.Add(time.Minute).Equal(bar.Time))

			_, ok, err = st.LatestBar(ctx, "OTHER")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCreateDuplicateSimulation(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, st.CreateSimulation(ctx, sampleState("sim-dup")))
			assert.Error(t, st.CreateSimulation(ctx, sampleState("sim-dup")))
		})
	}
}
