package store

// sqliteSchema is applied on open; every statement is idempotent.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS simulations (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	strategy TEXT NOT NULL,
	status TEXT NOT NULL,
	initial_balance REAL NOT NULL,
	current_balance REAL NOT NULL,
	total_trades INTEGER NOT NULL DEFAULT 0,
	win_rate REAL NOT NULL DEFAULT 0,
	profit_loss REAL NOT NULL DEFAULT 0,
	start_time DATETIME NOT NULL,
	end_time DATETIME,
	last_error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	simulation_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	time DATETIME NOT NULL,
	realized_pl REAL
);

CREATE INDEX IF NOT EXISTS idx_trades_simulation ON trades(simulation_id, time);

CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	time DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bars_symbol_time ON bars(symbol, time);
`

// postgresSchema mirrors the SQLite layout with Postgres types.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS simulations (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	strategy TEXT NOT NULL,
	status TEXT NOT NULL,
	initial_balance DOUBLE PRECISION NOT NULL,
	current_balance DOUBLE PRECISION NOT NULL,
	total_trades INTEGER NOT NULL DEFAULT 0,
	win_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
	profit_loss DOUBLE PRECISION NOT NULL DEFAULT 0,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ,
	last_error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	simulation_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity BIGINT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	realized_pl DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_trades_simulation ON trades(simulation_id, time);

CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	open DOUBLE PRECISION NOT NULL,
	high DOUBLE PRECISION NOT NULL,
	low DOUBLE PRECISION NOT NULL,
	close DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	time TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bars_symbol_time ON bars(symbol, time);
`
