package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// Postgres backs the store with PostgreSQL for deployments where several
// service instances share one database. Every query carries a timeout.
type Postgres struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewPostgres(dsn string, timeout time.Duration) (*Postgres, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Postgres{db: db, timeout: timeout}, nil
}

type pgSimulation struct {
	ID             string       `db:"id"`
	Symbol         string       `db:"symbol"`
	Strategy       string       `db:"strategy"`
	Status         string       `db:"status"`
	InitialBalance float64      `db:"initial_balance"`
	CurrentBalance float64      `db:"current_balance"`
	TotalTrades    int          `db:"total_trades"`
	WinRate        float64      `db:"win_rate"`
	ProfitLoss     float64      `db:"profit_loss"`
	StartTime      time.Time    `db:"start_time"`
	EndTime        sql.NullTime `db:"end_time"`
	LastError      string       `db:"last_error"`
}

func (r pgSimulation) state() SimulationState {
	st := SimulationState{
		ID:             r.ID,
		Symbol:         r.Symbol,
		Strategy:       r.Strategy,
		Status:         Status(r.Status),
		InitialBalance: r.InitialBalance,
		CurrentBalance: r.CurrentBalance,
		TotalTrades:    r.TotalTrades,
		WinRate:        r.WinRate,
		ProfitLoss:     r.ProfitLoss,
		StartTime:      r.StartTime,
		LastError:      r.LastError,
	}
	if r.EndTime.Valid {
		t := r.EndTime.Time
		st.EndTime = &t
	}
	return st
}

func (p *Postgres) CreateSimulation(ctx context.Context, st SimulationState) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO simulations
		(id, symbol, strategy, status, initial_balance, current_balance,
		 total_trades, win_rate, profit_loss, start_time, end_time, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		st.ID, st.Symbol, st.Strategy, st.Status, st.InitialBalance, st.CurrentBalance,
		st.TotalTrades, st.WinRate, st.ProfitLoss, st.StartTime, st.EndTime, st.LastError,
	)
	if err != nil {
		return fmt.Errorf("create simulation %q: %w", st.ID, err)
	}
	return nil
}

func (p *Postgres) UpdateSimulation(ctx context.Context, st SimulationState) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.db.ExecContext(ctx, `
		UPDATE simulations
		SET status = $1, current_balance = $2, total_trades = $3, win_rate = $4,
		    profit_loss = $5, end_time = $6, last_error = $7
		WHERE id = $8`,
		st.Status, st.CurrentBalance, st.TotalTrades, st.WinRate,
		st.ProfitLoss, st.EndTime, st.LastError, st.ID,
	)
	if err != nil {
		return fmt.Errorf("update simulation %q: %w", st.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update simulation %q: %w", st.ID, ErrNotFound)
	}
	return nil
}

func (p *Postgres) GetSimulation(ctx context.Context, id string) (SimulationState, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var row pgSimulation
	err := p.db.GetContext(ctx, &row,
		`SELECT * FROM simulations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return SimulationState{}, fmt.Errorf("simulation %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return SimulationState{}, err
	}
	return row.state(), nil
}

func (p *Postgres) ListSimulations(ctx context.Context) ([]SimulationState, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var rows []pgSimulation
	if err := p.db.SelectContext(ctx, &rows,
		`SELECT * FROM simulations ORDER BY start_time DESC`); err != nil {
		return nil, err
	}

	out := make([]SimulationState, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.state())
	}
	return out, nil
}

func (p *Postgres) AppendTrade(ctx context.Context, tr ledger.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var realized sql.NullFloat64
	if tr.RealizedPL != nil {
		realized = sql.NullFloat64{Float64: *tr.RealizedPL, Valid: true}
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, simulation_id, symbol, side, quantity, price, time, realized_pl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tr.ID, tr.SimulationID, tr.Symbol, tr.Side, tr.Quantity, tr.Price, tr.Time, realized,
	)
	if err != nil {
		return fmt.Errorf("append trade %q: %w", tr.ID, err)
	}
	return nil
}

func (p *Postgres) ListTrades(ctx context.Context, simulationID string) ([]ledger.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rows, err := p.db.QueryxContext(ctx, `
		SELECT trade_id, simulation_id, symbol, side, quantity, price, time, realized_pl
		FROM trades
		WHERE simulation_id = $1
		ORDER BY time ASC`, simulationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Trade
	for rows.Next() {
		var tr ledger.Trade
		var realized sql.NullFloat64
		if err := rows.Scan(
			&tr.ID, &tr.SimulationID, &tr.Symbol, &tr.Side,
			&tr.Quantity, &tr.Price, &tr.Time, &realized,
		); err != nil {
			return nil, err
		}
		if realized.Valid {
			v := realized.Float64
			tr.RealizedPL = &v
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (p *Postgres) PutBar(ctx context.Context, b market.Bar) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bars (symbol, open, high, low, close, volume, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume, b.Time,
	)
	return err
}

func (p *Postgres) LatestBar(ctx context.Context, symbol string) (market.Bar, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var b market.Bar
	row := p.db.QueryRowxContext(ctx, `
		SELECT symbol, open, high, low, close, volume, time
		FROM bars
		WHERE symbol = $1
		ORDER BY time DESC
		LIMIT 1`, symbol)

	err := row.Scan(&b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Time)
	if err == sql.ErrNoRows {
		return market.Bar{}, false, nil
	}
	if err != nil {
		return market.Bar{}, false, err
	}
	return b, true, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
