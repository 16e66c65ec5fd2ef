// Package store is the durable record of simulation runs: state snapshots,
// the append-only trade log, and the latest market bars. Implementations
// return errors rather than corrupting state on failure; the simulation core
// treats any store error as fatal for the run that hit it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// ErrNotFound is returned when a simulation id is unknown.
var ErrNotFound = errors.New("store: not found")

// Status is the lifecycle state of a simulation run. Stopped and failed are
// terminal.
type Status string

const (
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusFailed  Status = "failed"
)

// SimulationState is the durable snapshot of one run, rewritten after every
// tick and unconditionally on stop so a crashed runner leaves the last known
// good values behind.
type SimulationState struct {
	ID             string
	Symbol         string
	Strategy       string
	Status         Status
	InitialBalance float64
	CurrentBalance float64
	TotalTrades    int
	WinRate        float64
	ProfitLoss     float64
	StartTime      time.Time
	EndTime        *time.Time
	LastError      string
}

// Store is the persistence boundary for the simulation core.
type Store interface {
	CreateSimulation(ctx context.Context, s SimulationState) error
	UpdateSimulation(ctx context.Context, s SimulationState) error
	GetSimulation(ctx context.Context, id string) (SimulationState, error)
	ListSimulations(ctx context.Context) ([]SimulationState, error)

	AppendTrade(ctx context.Context, tr ledger.Trade) error
	ListTrades(ctx context.Context, simulationID string) ([]ledger.Trade, error)

	PutBar(ctx context.Context, b market.Bar) error
	LatestBar(ctx context.Context, symbol string) (market.Bar, bool, error)

	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
)
