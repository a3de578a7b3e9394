package journal

// SQLiteSchema creates the journal tables in an embedded sqlite database.
// Decimal columns are TEXT so values round-trip without float rounding.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	order_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	symbol TEXT NOT NULL,
	price TEXT NOT NULL,
	quantity TEXT NOT NULL,
	stop_loss TEXT,
	take_profit TEXT,
	max_active INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	position_id INTEGER NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	position_id INTEGER NOT NULL,
	side TEXT NOT NULL,
	symbol TEXT NOT NULL,
	open_price TEXT NOT NULL,
	quantity TEXT NOT NULL,
	stop_loss TEXT,
	take_profit TEXT,
	open_time DATETIME NOT NULL,
	close_price TEXT NOT NULL,
	close_time DATETIME NOT NULL,
	profit_loss TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	balance TEXT NOT NULL,
	equity TEXT NOT NULL,
	margin_used TEXT NOT NULL,
	free_margin TEXT NOT NULL,
	margin_level TEXT
);

CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id);
CREATE INDEX IF NOT EXISTS idx_positions_run ON positions(run_id);
CREATE INDEX IF NOT EXISTS idx_positions_close ON positions(close_time);
CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`

// PostgresSchema is the same layout for a postgres server.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS orders (
	seq BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	order_id BIGINT NOT NULL,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	symbol TEXT NOT NULL,
	price NUMERIC NOT NULL,
	quantity NUMERIC NOT NULL,
	stop_loss NUMERIC,
	take_profit NUMERIC,
	max_active BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	position_id BIGINT NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	seq BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	position_id BIGINT NOT NULL,
	side TEXT NOT NULL,
	symbol TEXT NOT NULL,
	open_price NUMERIC NOT NULL,
	quantity NUMERIC NOT NULL,
	stop_loss NUMERIC,
	take_profit NUMERIC,
	open_time TIMESTAMPTZ NOT NULL,
	close_price NUMERIC NOT NULL,
	close_time TIMESTAMPTZ NOT NULL,
	profit_loss NUMERIC NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	seq BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	time TIMESTAMPTZ NOT NULL,
	balance NUMERIC NOT NULL,
	equity NUMERIC NOT NULL,
	margin_used NUMERIC NOT NULL,
	free_margin NUMERIC NOT NULL,
	margin_level NUMERIC
);

CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id);
CREATE INDEX IF NOT EXISTS idx_positions_run ON positions(run_id);
CREATE INDEX IF NOT EXISTS idx_positions_close ON positions(close_time);
CREATE INDEX IF NOT EXISTS idx_equity_run_time ON equity(run_id, time);
`
