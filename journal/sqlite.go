package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal persists records to a local SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path.
func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(record_id, run_id, order_id, symbol, side, type, quantity, status, fill_price, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RecordID, o.RunID, o.OrderID, o.Symbol, o.Side, o.Type,
		o.Quantity, o.Status, o.FillPrice, o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("record order %s: %w", o.OrderID, err)
	}
	return nil
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, session_date, universe_size, scored_count, target_count, bought, sold, started_at, finished_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.SessionDate, r.UniverseSize, r.ScoredCount, r.TargetCount,
		r.Bought, r.Sold, r.StartedAt, r.FinishedAt, r.Notes,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

// ListRuns returns run summaries for a session date, newest first.
func (j *SQLiteJournal) ListRuns(sessionDate string) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, session_date, universe_size, scored_count, target_count,
		       bought, sold, started_at, finished_at, notes
		FROM runs WHERE session_date = ? ORDER BY started_at DESC`, sessionDate)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.SessionDate, &r.UniverseSize, &r.ScoredCount,
			&r.TargetCount, &r.Bought, &r.Sold, &r.StartedAt, &r.FinishedAt, &r.Notes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOrders returns the orders recorded for a rebalance run.
func (j *SQLiteJournal) ListOrders(runID string) ([]OrderRecord, error) {
	rows, err := j.db.Query(`
		SELECT record_id, run_id, order_id, symbol, side, type, quantity, status, fill_price, placed_at
		FROM orders WHERE run_id = ? ORDER BY placed_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var o OrderRecord
		if err := rows.Scan(&o.RecordID, &o.RunID, &o.OrderID, &o.Symbol, &o.Side,
			&o.Type, &o.Quantity, &o.Status, &o.FillPrice, &o.PlacedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
