package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndListRuns(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)

	early := RunRecord{
		RunID:        "run-1",
		SessionDate:  "2026-06-10",
		UniverseSize: 4000,
		ScoredCount:  3800,
		TargetCount:  25,
		Bought:       3,
		Sold:         2,
		StartedAt:    time.Date(2026, time.June, 10, 16, 0, 0, 0, time.UTC),
		FinishedAt:   time.Date(2026, time.June, 10, 16, 5, 0, 0, time.UTC),
	}
	late := early
	late.RunID = "run-2"
	late.StartedAt = early.StartedAt.Add(time.Hour)

	require.NoError(t, j.RecordRun(early))
	require.NoError(t, j.RecordRun(late))

	runs, err := j.ListRuns("2026-06-10")
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID, "newest run first")
	assert.Equal(t, "run-1", runs[1].RunID)
	assert.Equal(t, 25, runs[1].TargetCount)

	empty, err := j.ListRuns("2026-06-11")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordAndListOrders(t *testing.T) {
	t.Parallel()

	j := openTestJournal(t)

	placed := time.Date(2026, time.June, 10, 16, 1, 0, 0, time.UTC)
	require.NoError(t, j.RecordOrder(OrderRecord{
		RecordID:  "rec-1",
		RunID:     "run-1",
		OrderID:   "839637",
		Symbol:    "XYZ",
		Side:      "buy",
		Type:      "market",
		Quantity:  105,
		Status:    "filled",
		FillPrice: 38.02,
		PlacedAt:  placed,
	}))
	require.NoError(t, j.RecordOrder(OrderRecord{
		RecordID: "rec-2",
		RunID:    "run-1",
		OrderID:  "839638",
		Symbol:   "XYZ",
		Side:     "sell",
		Type:     "stop",
		Quantity: 105,
		Status:   "open",
		PlacedAt: placed.Add(time.Second),
	}))
	require.NoError(t, j.RecordOrder(OrderRecord{
		RecordID: "rec-3",
		RunID:    "run-9",
		OrderID:  "900000",
		Symbol:   "ABC",
		Side:     "buy",
		Type:     "market",
		Quantity: 1,
		Status:   "filled",
		PlacedAt: placed,
	}))

	orders, err := j.ListOrders("run-1")
	require.NoError(t, err)

	require.Len(t, orders, 2)
	assert.Equal(t, "839637", orders[0].OrderID, "ordered by placement time")
	assert.Equal(t, "839638", orders[1].OrderID)
	assert.InDelta(t, 38.02, orders[0].FillPrice, 0.001)
	assert.Equal(t, "stop", orders[1].Type)
}
