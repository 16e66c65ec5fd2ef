package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// Memory keeps everything in maps behind one mutex. Used by tests and the
// one-shot run command, where nothing needs to survive the process.
type Memory struct {
	mu     sync.Mutex
	sims   map[string]SimulationState
	trades map[string][]ledger.Trade
	bars   map[string]market.Bar
}

func NewMemory() *Memory {
	return &Memory{
		sims:   make(map[string]SimulationState),
		trades: make(map[string][]ledger.Trade),
		bars:   make(map[string]market.Bar),
	}
}

func (m *Memory) CreateSimulation(_ context.Context, st SimulationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sims[st.ID]; ok {
		return fmt.Errorf("simulation %q already exists", st.ID)
	}
	m.sims[st.ID] = st
	return nil
}

func (m *Memory) UpdateSimulation(_ context.Context, st SimulationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sims[st.ID]; !ok {
		return fmt.Errorf("update simulation %q: %w", st.ID, ErrNotFound)
	}
	m.sims[st.ID] = st
	return nil
}

func (m *Memory) GetSimulation(_ context.Context, id string) (SimulationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sims[id]
	if !ok {
		return SimulationState{}, fmt.Errorf("simulation %q: %w", id, ErrNotFound)
	}
	return st, nil
}

func (m *Memory) ListSimulations(_ context.Context) ([]SimulationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SimulationState, 0, len(m.sims))
	for _, st := range m.sims {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

func (m *Memory) AppendTrade(_ context.Context, tr ledger.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[tr.SimulationID] = append(m.trades[tr.SimulationID], tr)
	return nil
}

func (m *Memory) ListTrades(_ context.Context, simulationID string) ([]ledger.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trades := m.trades[simulationID]
	out := make([]ledger.Trade, len(trades))
	copy(out, trades)
	return out, nil
}

func (m *Memory) PutBar(_ context.Context, b market.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[b.Symbol] = b
	return nil
}

func (m *Memory) LatestBar(_ context.Context, symbol string) (market.Bar, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bars[symbol]
	return b, ok, nil
}

func (m *Memory) Close() error { return nil }
