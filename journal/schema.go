package journal

const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	record_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	status TEXT NOT NULL,
	fill_price REAL NOT NULL,
	placed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_run ON orders(run_id);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	session_date TEXT NOT NULL,
	universe_size INTEGER NOT NULL,
	scored_count INTEGER NOT NULL,
	target_count INTEGER NOT NULL,
	bought INTEGER NOT NULL,
	sold INTEGER NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	notes TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_date);
`
