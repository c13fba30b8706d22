package rebalance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbc399/command-line-trader/journal"
	"github.com/tbc399/command-line-trader/market"
	"github.com/tbc399/command-line-trader/momentum"
)

// schedData serves a one-symbol universe with a clean uptrend.
type schedData struct {
	mu        sync.Mutex
	listCalls int
	listErr   error
	now       func() time.Time
}

func (d *schedData) ListTickers(ctx context.Context) ([]market.Ticker, error) {
	d.mu.Lock()
	d.listCalls++
	d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	return []market.Ticker{
		{Symbol: "AAA", Exchange: "NYSE", AssetType: "Stock", EndDate: d.now()},
	}, nil
}

func (d *schedData) DailyPrices(ctx context.Context) ([]market.DailyPrice, error) {
	return []market.DailyPrice{{Symbol: "AAA", Close: 10, Volume: 1000}}, nil
}

func (d *schedData) IntradayBars(ctx context.Context, symbol string, interval time.Duration, start time.Time) ([]market.PriceBar, error) {
	bars := make([]market.PriceBar, 20)
	for i := range bars {
		bars[i] = market.PriceBar{Close: 10 + float64(i)}
	}
	return bars, nil
}

func (d *schedData) tickerListings() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listCalls
}

// sessionCalendar treats weekdays as sessions with regular NYSE hours.
type sessionCalendar struct{}

func (sessionCalendar) IsSession(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (sessionCalendar) SessionFirstMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, t.Location())
}

func (sessionCalendar) SessionLastMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, t.Location())
}

func (c sessionCalendar) PreviousSession(t time.Time) time.Time {
	day := t
	for {
		day = day.AddDate(0, 0, -1)
		if c.IsSession(day) {
			return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
		}
	}
}

// countingNotifier records outcomes delivered by the scheduler.
type countingNotifier struct {
	mu       sync.Mutex
	runs     []journal.RunRecord
	failures []error
}

func (n *countingNotifier) RebalanceComplete(run journal.RunRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runs = append(n.runs, run)
	return nil
}

func (n *countingNotifier) RebalanceFailed(sessionDate string, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, err)
	return nil
}

// clock is a settable fake time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestScheduler(b *fakeBroker, data *schedData, clk *clock, notifier Notifier) *Scheduler {
	noSleep := func(context.Context, time.Duration) {}
	cal := sessionCalendar{}
	universe := &momentum.UniverseBuilder{
		Data:       data,
		Calendar:   cal,
		Broker:     b,
		Allocation: 0.02,
	}
	return &Scheduler{
		Broker:   b,
		Fetcher:  &momentum.Fetcher{Data: data, Interval: 15 * time.Minute},
		Universe: universe,
		Calendar: cal,
		Trader:   &Trader{Broker: b, sleep: noSleep},
		Notifier: notifier,
		Config: Config{
			Allocation:    0.02,
			PortfolioSize: 5,
			Lookback:      20,
		},
		Now: clk.now,
	}
}

// Drives the scheduler through a full session day at its real tick cadence
// (simulated). The universe must refresh exactly once in the pre-open window
// and the rebalance must fire exactly once, at noon, no matter how many
// ticks land after it.
func TestScheduler_OncePerSessionDay(t *testing.T) {
	t.Parallel()

	clk := &clock{}
	data := &schedData{now: clk.now}
	b := newFakeBroker()
	b.quotes["AAA"] = 10
	notifier := &countingNotifier{}
	s := newTestScheduler(b, data, clk, notifier)

	// A Wednesday, from before the pre-open window until after the close.
	day := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	for at := day.Add(9 * time.Hour); at.Before(day.Add(17 * time.Hour)); at = at.Add(time.Minute) {
		clk.set(at)
		s.Tick(context.Background())
	}

	assert.Equal(t, 1, data.tickerListings(), "universe refreshed more than once")
	require.Len(t, notifier.runs, 1, "rebalance fired more than once")
	assert.Empty(t, notifier.failures)

	run := notifier.runs[0]
	assert.Equal(t, "2026-06-10", run.SessionDate)
	assert.Equal(t, 1, run.TargetCount)
	assert.Equal(t, 1, run.Bought)
	assert.Equal(t, 0, run.Sold)

	// The single buy it reported really happened, exactly once.
	require.Len(t, b.buys, 1)
	assert.Equal(t, "AAA", b.buys[0].symbol)
	assert.Equal(t, StateAfterClose, s.State())
}

func TestScheduler_StateTransitions(t *testing.T) {
	t.Parallel()

	clk := &clock{}
	data := &schedData{now: clk.now}
	b := newFakeBroker()
	b.quotes["AAA"] = 10
	s := newTestScheduler(b, data, clk, nil)

	day := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want State
	}{
		{"weekend", time.Date(2026, time.June, 13, 10, 0, 0, 0, time.UTC), StateAwaitingSession},
		{"before window", day.Add(9 * time.Hour), StateAwaitingSession},
		{"pre-open window", day.Add(9*time.Hour + 25*time.Minute), StatePreOpen},
		{"mid session", day.Add(10 * time.Hour), StateSessionOpen},
		{"after close", day.Add(16*time.Hour + 30*time.Minute), StateAfterClose},
	}

	for _, tt := range tests {
		clk.set(tt.at)
		s.Tick(context.Background())
		assert.Equal(t, tt.want, s.State(), tt.name)
	}
}

// A failing universe refresh is reported, survived, and retried on the next
// tick while the pre-open window lasts.
func TestScheduler_RefreshFailureRetries(t *testing.T) {
	t.Parallel()

	clk := &clock{}
	data := &schedData{now: clk.now, listErr: assert.AnError}
	b := newFakeBroker()
	notifier := &countingNotifier{}
	s := newTestScheduler(b, data, clk, notifier)

	at := time.Date(2026, time.June, 10, 9, 25, 0, 0, time.UTC)
	clk.set(at)
	s.Tick(context.Background())
	clk.set(at.Add(5 * time.Second))
	s.Tick(context.Background())

	assert.Equal(t, 2, data.tickerListings())
	assert.Len(t, notifier.failures, 2)

	// Once the provider recovers the refresh succeeds and stops retrying.
	data.listErr = nil
	clk.set(at.Add(10 * time.Second))
	s.Tick(context.Background())
	clk.set(at.Add(15 * time.Second))
	s.Tick(context.Background())

	assert.Equal(t, 3, data.tickerListings())
}
