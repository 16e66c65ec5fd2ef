// Package sim is the simulation engine: per-run tick loops (Runner) and the
// process-wide table of live runs (Registry). Each runner exclusively owns
// its account and ledger; the registry's map is the only cross-simulation
// shared state and is guarded by one mutex.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/papertrade/internal/id"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/store"
	"github.com/rustyeddy/papertrade/strategy"
	"github.com/rustyeddy/papertrade/telemetry"
)

// Options wires the registry's collaborators. Publisher and Metrics are
// optional; everything else is required.
type Options struct {
	Bars      market.BarSource
	Store     store.Store
	Predictor strategy.Predictor
	Publisher Publisher
	Metrics   *telemetry.Metrics
	Logger    zerolog.Logger
}

// Registry owns the mapping from simulation id to live runner. It is the
// only component that creates or tears down runners, so concurrent Start and
// Stop calls cannot race two loops onto one account.
type Registry struct {
	bars market.BarSource
	st   store.Store
	pred strategy.Predictor
	pub  Publisher
	met  *telemetry.Metrics
	log  zerolog.Logger

	mu      sync.Mutex
	runners map[string]*Runner
	cancels map[string]context.CancelFunc
}

func NewRegistry(opts Options) *Registry {
	pub := opts.Publisher
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Registry{
		bars:    opts.Bars,
		st:      opts.Store,
		pred:    opts.Predictor,
		pub:     pub,
		met:     opts.Metrics,
		log:     opts.Logger,
		runners: make(map[string]*Runner),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start launches a simulation for cfg and returns its id. Starting an id
// that already has a live runner is a no-op returning that id; a second loop
// is never spawned against the same account. An empty cfg.ID gets a fresh
// one assigned.
func (g *Registry) Start(ctx context.Context, cfg Config) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}

	strat, err := strategy.ByName(cfg.Strategy, cfg.Params, g.pred)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if cfg.ID == "" {
		cfg.ID = id.New()
	} else if _, live := g.runners[cfg.ID]; live {
		return cfg.ID, nil
	}

	r := newRunner(cfg, strat, g.bars, g.st, g.pub, g.met, g.log)

	if err := g.st.CreateSimulation(ctx, r.Snapshot()); err != nil {
		return "", fmt.Errorf("create simulation %q: %w", cfg.ID, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g.runners[cfg.ID] = r
	g.cancels[cfg.ID] = cancel
	if g.met != nil {
		g.met.ActiveSimulations.Inc()
	}

	go r.run(runCtx)
	go g.reap(cfg.ID, r)

	g.log.Info().Str("sim_id", cfg.ID).Str("strategy", strat.Name()).
		Str("symbol", cfg.Symbol).Msg("simulation started")
	return cfg.ID, nil
}

// reap removes a runner from the live table once its loop exits, whether it
// stopped or failed.
func (g *Registry) reap(simID string, r *Runner) {
	<-r.Done()
	g.remove(simID, r)
}

// remove drops r from the live table. Idempotent: both reap and Stop call it,
// whichever observes Done first wins.
func (g *Registry) remove(simID string, r *Runner) {
	g.mu.Lock()
	if g.runners[simID] == r {
		delete(g.runners, simID)
		if cancel, ok := g.cancels[simID]; ok {
			cancel()
			delete(g.cancels, simID)
		}
		if g.met != nil {
			g.met.ActiveSimulations.Dec()
		}
	}
	g.mu.Unlock()
}

// Stop cancels the runner for simID and waits for it to flush its final
// state. Unknown or already-stopped ids return store.ErrNotFound.
func (g *Registry) Stop(ctx context.Context, simID string) error {
	g.mu.Lock()
	r, ok := g.runners[simID]
	cancel := g.cancels[simID]
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("stop simulation %q: %w", simID, store.ErrNotFound)
	}

	cancel()

	select {
	case <-r.Done():
		g.remove(simID, r)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current state of simID: the live runner's snapshot when
// one exists, otherwise the durable record of a finished run.
func (g *Registry) Status(ctx context.Context, simID string) (store.SimulationState, error) {
	g.mu.Lock()
	r, live := g.runners[simID]
	g.mu.Unlock()

	if live {
		return r.Snapshot(), nil
	}
	return g.st.GetSimulation(ctx, simID)
}

// List returns every known simulation, with live runs reflecting their
// in-memory snapshot rather than the last persisted one.
func (g *Registry) List(ctx context.Context) ([]store.SimulationState, error) {
	states, err := g.st.ListSimulations(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i, st := range states {
		if r, live := g.runners[st.ID]; live {
			states[i] = r.Snapshot()
		}
	}
	return states, nil
}

// StopAll cancels every live runner and waits for each to finish. Used on
// shutdown.
func (g *Registry) StopAll(ctx context.Context) {
	g.mu.Lock()
	runners := make([]*Runner, 0, len(g.runners))
	for simID, r := range g.runners {
		runners = append(runners, r)
		g.cancels[simID]()
	}
	g.mu.Unlock()

	for _, r := range runners {
		select {
		case <-r.Done():
		case <-ctx.Done():
			return
		}
	}
}
