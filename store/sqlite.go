package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
)

// SQLite is the file-backed store for single-host deployments and tests.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) CreateSimulation(ctx context.Context, st SimulationState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulations
		(id, symbol, strategy, status, initial_balance, current_balance,
		 total_trades, win_rate, profit_loss, start_time, end_time, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Symbol, st.Strategy, st.Status, st.InitialBalance, st.CurrentBalance,
		st.TotalTrades, st.WinRate, st.ProfitLoss, st.StartTime, st.EndTime, st.LastError,
	)
	return err
}

func (s *SQLite) UpdateSimulation(ctx context.Context, st SimulationState) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE simulations
		SET status = ?, current_balance = ?, total_trades = ?, win_rate = ?,
		    profit_loss = ?, end_time = ?, last_error = ?
		WHERE id = ?`,
		st.Status, st.CurrentBalance, st.TotalTrades, st.WinRate,
		st.ProfitLoss, st.EndTime, st.LastError, st.ID,
	)
	if err != nil {
		return err
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

const simulationColumns = `id, symbol, strategy, status, initial_balance, current_balance,
	total_trades, win_rate, profit_loss, start_time, end_time, last_error`

func (s *SQLite) GetSimulation(ctx context.Context, id string) (SimulationState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+simulationColumns+` FROM simulations WHERE id = ?`, id)

	st, err := scanSimulation(row)
	if err == sql.ErrNoRows {
		return SimulationState{}, fmt.Errorf("simulation %q: %w", id, ErrNotFound)
	}
	return st, err
}

func (s *SQLite) ListSimulations(ctx context.Context) ([]SimulationState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+simulationColumns+` FROM simulations ORDER BY start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SimulationState
	for rows.Next() {
		st, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLite) AppendTrade(ctx context.Context, tr ledger.Trade) error {
	var realized sql.NullFloat64
	if tr.RealizedPL != nil {
		realized = sql.NullFloat64{Float64: *tr.RealizedPL, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
		(trade_id, simulation_id, symbol, side, quantity, price, time, realized_pl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.SimulationID, tr.Symbol, tr.Side, tr.Quantity, tr.Price, tr.Time, realized,
	)
	return err
}

func (s *SQLite) ListTrades(ctx context.Context, simulationID string) ([]ledger.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, simulation_id, symbol, side, quantity, price, time, realized_pl
		FROM trades
		WHERE simulation_id = ?
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

func (s *SQLite) PutBar(ctx context.Context, b market.Bar) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bars (symbol, open, high, low, close, volume, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume, b.Time,
	)
	return err
}

func (s *SQLite) LatestBar(ctx context.Context, symbol string) (market.Bar, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, open, high, low, close, volume, time
		FROM bars
		WHERE symbol = ?
		ORDER BY time DESC
		LIMIT 1`, symbol)

	var b market.Bar
	err := row.Scan(&b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Time)
	if err == sql.ErrNoRows {
		return market.Bar{}, false, nil
	}
	if err != nil {
		return market.Bar{}, false, err
	}
	return b, true, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSimulation(row rowScanner) (SimulationState, error) {
	var st SimulationState
	var endTime sql.NullTime
	err := row.Scan(
		&st.ID, &st.Symbol, &st.Strategy, &st.Status,
		&st.InitialBalance, &st.CurrentBalance,
		&st.TotalTrades, &st.WinRate, &st.ProfitLoss,
		&st.StartTime, &endTime, &st.LastError,
	)
	if err != nil {
		return SimulationState{}, err
	}
	if endTime.Valid {
		t := endTime.Time
		st.EndTime = &t
	}
	return st, nil
}
