// Package journal records placed orders and rebalance runs for later
// review. The journal is write-mostly observability: the scheduler never
// reads it back to make decisions.
package journal

import "time"

// OrderRecord is one order placement and its eventual outcome.
type OrderRecord struct {
	RecordID  string // ULID, primary key
	RunID     string // owning rebalance run, empty for manual CLI orders
	OrderID   string // broker's order id
	Symbol    string
	Side      string
	Type      string
	Quantity  int
	Status    string
	FillPrice float64
	PlacedAt  time.Time
}

// RunRecord summarizes one rebalance run.
type RunRecord struct {
	RunID        string // ULID, primary key
	SessionDate  string // YYYY-MM-DD in exchange time
	UniverseSize int
	ScoredCount  int
	TargetCount  int
	Bought       int
	Sold         int
	StartedAt    time.Time
	FinishedAt   time.Time
	Notes        string
}

// Recorder is the write surface used by the trader and scheduler.
type Recorder interface {
	RecordOrder(OrderRecord) error
	RecordRun(RunRecord) error
	Close() error
}
