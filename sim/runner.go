package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/store"
	"github.com/rustyeddy/papertrade/strategy"
	"github.com/rustyeddy/papertrade/telemetry"
	"github.com/rustyeddy/papertrade/valuation"
)

// DefaultTickInterval is the cadence of the simulation loop when the config
// does not override it.
const DefaultTickInterval = 5 * time.Second

// persistTimeout bounds every store write made inside a tick. Tick writes use
// their own context so a Stop arriving mid-tick never aborts a write that
// already began.
const persistTimeout = 10 * time.Second

// Config describes one simulation run. Immutable once the run starts.
type Config struct {
	ID             string
	Symbol         string
	Strategy       string
	Params         strategy.Params
	InitialBalance float64
	TickInterval   time.Duration
}

func (c Config) validate() error {
	if c.Symbol == "" {
		return errors.New("sim: symbol is required")
	}
	if c.Strategy == "" {
		return errors.New("sim: strategy is required")
	}
	if c.InitialBalance <= 0 {
		return fmt.Errorf("sim: initial balance must be positive, got %v", c.InitialBalance)
	}
	return nil
}

// Runner drives one simulation's tick loop: fetch bar, evaluate, apply,
// revalue, persist, publish. It exclusively owns its ledger, so ticks for one
// simulation are totally ordered without locking the account.
type Runner struct {
	cfg   Config
	strat strategy.Strategy
	led   *ledger.Ledger
	bars  market.BarSource
	st    store.Store
	pub   Publisher
	met   *telemetry.Metrics
	log   zerolog.Logger

	// tickC overrides the interval ticker; tests feed ticks through it to
	// single-step the loop deterministically.
	tickC <-chan time.Time

	done chan struct{}

	mu    sync.Mutex
	state store.SimulationState
}

func newRunner(cfg Config, strat strategy.Strategy, bars market.BarSource, st store.Store, pub Publisher, met *telemetry.Metrics, logger zerolog.Logger) *Runner {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Runner{
		cfg:   cfg,
		strat: strat,
		led:   ledger.New(cfg.ID, cfg.InitialBalance),
		bars:  bars,
		st:    st,
		pub:   pub,
		met:   met,
		log:   logger.With().Str("sim_id", cfg.ID).Str("strategy", strat.Name()).Logger(),
		done:  make(chan struct{}),
		state: store.SimulationState{
			ID:             cfg.ID,
			Symbol:         cfg.Symbol,
			Strategy:       strat.Name(),
			Status:         store.StatusCreated,
			InitialBalance: cfg.InitialBalance,
			CurrentBalance: cfg.InitialBalance,
			StartTime:      time.Now().UTC(),
		},
	}
}

// Snapshot returns the runner's current persisted-state view.
func (r *Runner) Snapshot() store.SimulationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Done is closed when the run loop has exited and the final state is flushed.
func (r *Runner) Done() <-chan struct{} { return r.done }

// run is the tick loop. It exits on ctx cancellation (stopped) or on a
// persistence failure (failed). Cancellation is observed between ticks only;
// a tick in flight always completes its ledger and valuation writes.
func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	if err := r.transition(store.StatusRunning, nil); err != nil {
		r.fail(err)
		return
	}
	r.log.Info().Str("symbol", r.cfg.Symbol).Msg("simulation running")

	tickC := r.tickC
	if tickC == nil {
		interval := r.cfg.TickInterval
		if interval <= 0 {
			interval = DefaultTickInterval
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.stop()
			return
		case <-tickC:
			if err := r.step(ctx); err != nil {
				r.fail(err)
				return
			}
		}
	}
}

// step is one tick. Strategy and ledger errors are logged and absorbed;
// only store failures propagate, and they kill this run alone.
func (r *Runner) step(ctx context.Context) error {
	started := time.Now()
	outcome := "no_data"

	bar, ok, err := r.bars.LatestBar(ctx, r.cfg.Symbol)
	if err != nil {
		r.log.Warn().Err(err).Msg("bar fetch failed, skipping tick")
		r.observeTick(started, "feed_error")
		return nil
	}
	if !ok {
		r.log.Debug().Msg("no bar available, skipping tick")
		r.observeTick(started, outcome)
		return nil
	}

	sig, err := r.strat.Evaluate(ctx, r.led.Account(), bar)
	if err != nil {
		r.log.Warn().Err(err).Msg("strategy evaluation failed")
		sig = nil
	}

	outcome = "no_signal"
	if sig != nil {
		out, err := r.execute(*sig, bar.Time)
		if err != nil {
			return err
		}
		outcome = out
	}

	if err := r.revalue(bar); err != nil {
		return err
	}

	r.observeTick(started, outcome)
	return nil
}

// execute applies one signal. Solvency rejections drop the signal and the
// run continues; only the store append is allowed to fail the run.
func (r *Runner) execute(sig ledger.Signal, at time.Time) (string, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	tr, err := r.led.Apply(sig, at)
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		r.log.Info().Int64("quantity", sig.Quantity).Float64("price", sig.Price).
			Msg("buy rejected, insufficient funds")
		if r.met != nil {
			r.met.SignalsRejected.WithLabelValues("insufficient_funds").Inc()
		}
		return "rejected", nil

	case errors.Is(err, ledger.ErrInsufficientPosition):
		r.log.Info().Int64("quantity", sig.Quantity).Str("symbol", sig.Symbol).
			Msg("sell rejected, insufficient position")
		if r.met != nil {
			r.met.SignalsRejected.WithLabelValues("insufficient_position").Inc()
		}
		return "rejected", nil

	case err != nil:
		r.log.Warn().Err(err).Msg("signal dropped")
		return "rejected", nil
	}

	pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.st.AppendTrade(pctx, tr); err != nil {
		// The trade is already applied in memory; a failed append means the
		// durable log has diverged, which is fatal for this run.
		return "", fmt.Errorf("append trade: %w", err)
	}

	if r.met != nil {
		r.met.TradesTotal.WithLabelValues(string(sig.Side)).Inc()
	}
	r.log.Info().
		Str("side", string(sig.Side)).
		Int64("quantity", sig.Quantity).
		Float64("price", sig.Price).
		Float64("confidence", sig.Confidence).
		Str("rationale", sig.Rationale).
		Msg("trade executed")
	return "trade", nil
}

// revalue recomputes metrics against the latest prices and persists the
// durable snapshot.
func (r *Runner) revalue(bar market.Bar) error {
	acct := r.led.Account()

	prices := map[string]float64{bar.Symbol: bar.Close}
	pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for sym := range acct.Positions {
		if sym == bar.Symbol {
			continue
		}
		if b, ok, err := r.bars.LatestBar(pctx, sym); err == nil && ok {
			prices[sym] = b.Close
		}
	}

	m := valuation.Recompute(acct, r.led.Trades(), prices, r.cfg.InitialBalance)

	r.mu.Lock()
	r.state.CurrentBalance = m.Value
	r.state.TotalTrades = m.TradeCount
	r.state.WinRate = m.WinRate
	r.state.ProfitLoss = m.ProfitLoss
	st := r.state
	r.mu.Unlock()

	if err := r.st.UpdateSimulation(pctx, st); err != nil {
		return fmt.Errorf("persist metrics: %w", err)
	}

	r.publish(st)
	return nil
}

func (r *Runner) stop() {
	now := time.Now().UTC()
	r.mu.Lock()
	r.state.Status = store.StatusStopped
	r.state.EndTime = &now
	st := r.state
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.st.UpdateSimulation(ctx, st); err != nil {
		r.log.Error().Err(err).Msg("final state flush failed")
	}

	r.publish(st)
	r.log.Info().Float64("profit_loss", st.ProfitLoss).Int("trades", st.TotalTrades).
		Msg("simulation stopped")
}

func (r *Runner) fail(cause error) {
	now := time.Now().UTC()
	r.mu.Lock()
	r.state.Status = store.StatusFailed
	r.state.EndTime = &now
	r.state.LastError = cause.Error()
	st := r.state
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.st.UpdateSimulation(ctx, st); err != nil {
		r.log.Error().Err(err).Msg("failed-state flush failed")
	}

	r.publish(st)
	r.log.Error().Err(cause).Msg("simulation failed")
}

func (r *Runner) transition(status store.Status, endTime *time.Time) error {
	r.mu.Lock()
	r.state.Status = status
	r.state.EndTime = endTime
	st := r.state
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.st.UpdateSimulation(ctx, st); err != nil {
		return fmt.Errorf("persist status %s: %w", status, err)
	}
	return nil
}

func (r *Runner) publish(st store.SimulationState) {
	r.pub.Publish(Event{
		SimulationID: st.ID,
		Status:       st.Status,
		Value:        st.CurrentBalance,
		WinRate:      st.WinRate,
		ProfitLoss:   st.ProfitLoss,
		TradeCount:   st.TotalTrades,
		Time:         time.Now().UTC(),
	})
}

func (r *Runner) observeTick(started time.Time, outcome string) {
	if r.met == nil {
		return
	}
	r.met.TicksTotal.WithLabelValues(r.strat.Name(), outcome).Inc()
	r.met.TickDuration.Observe(time.Since(started).Seconds())
}
