package momentum

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbc399/command-line-trader/market"
)

// fakeData scripts IntradayBars responses per symbol.
type fakeData struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(symbol string, call int) ([]market.PriceBar, error)
}

func newFakeData(fn func(symbol string, call int) ([]market.PriceBar, error)) *fakeData {
	return &fakeData{calls: make(map[string]int), fn: fn}
}

func (f *fakeData) ListTickers(ctx context.Context) ([]market.Ticker, error) {
	return nil, nil
}

func (f *fakeData) DailyPrices(ctx context.Context) ([]market.DailyPrice, error) {
	return nil, nil
}

func (f *fakeData) IntradayBars(ctx context.Context, symbol string, interval time.Duration, start time.Time) ([]market.PriceBar, error) {
	f.mu.Lock()
	f.calls[symbol]++
	call := f.calls[symbol]
	f.mu.Unlock()
	return f.fn(symbol, call)
}

func (f *fakeData) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func noSleep(context.Context, time.Duration) {}

var errTimeout = errors.New("read timeout")

func TestFetchOne_RateLimitSkipsImmediately(t *testing.T) {
	t.Parallel()

	data := newFakeData(func(symbol string, call int) ([]market.PriceBar, error) {
		return nil, market.ErrRateLimited
	})
	f := &Fetcher{Data: data, Interval: 15 * time.Minute, sleep: noSleep}

	bars := f.FetchOne(context.Background(), "ABC", time.Now())

	assert.Empty(t, bars)
	// A rate limit must not consume retry attempts.
	assert.Equal(t, 1, data.callCount("ABC"))
}

func TestFetchOne_RetriesThenGivesUp(t *testing.T) {
	t.Parallel()

	data := newFakeData(func(symbol string, call int) ([]market.PriceBar, error) {
		return nil, errTimeout
	})
	f := &Fetcher{Data: data, Interval: 15 * time.Minute, sleep: noSleep}

	bars := f.FetchOne(context.Background(), "ABC", time.Now())

	assert.Empty(t, bars)
	assert.Equal(t, DefaultRetries, data.callCount("ABC"))
}

func TestFetchOne_RecoversWithinBudget(t *testing.T) {
	t.Parallel()

	want := []market.PriceBar{{Close: 10, Volume: 1}}
	data := newFakeData(func(symbol string, call int) ([]market.PriceBar, error) {
		if call < 3 {
			return nil, errTimeout
		}
		return want, nil
	})
	f := &Fetcher{Data: data, Interval: 15 * time.Minute, sleep: noSleep}

	bars := f.FetchOne(context.Background(), "ABC", time.Now())

	assert.Equal(t, want, bars)
	assert.Equal(t, 3, data.callCount("ABC"))
}

func TestFetchAll_FailureIsolatedPerSymbol(t *testing.T) {
	t.Parallel()

	data := newFakeData(func(symbol string, call int) ([]market.PriceBar, error) {
		if symbol == "BAD" {
			return nil, errTimeout
		}
		return []market.PriceBar{{Close: 42}}, nil
	})
	f := &Fetcher{Data: data, Interval: 15 * time.Minute, sleep: noSleep}

	series := f.FetchAll(context.Background(), []string{"AAA", "BAD", "CCC"}, time.Now())

	require.Len(t, series, 3)
	assert.Equal(t, "AAA", series[0].Symbol)
	assert.NotEmpty(t, series[0].Bars)
	assert.Equal(t, "BAD", series[1].Symbol)
	assert.Empty(t, series[1].Bars)
	assert.Equal(t, "CCC", series[2].Symbol)
	assert.NotEmpty(t, series[2].Bars)
}

func TestFetchAll_ChunkPauses(t *testing.T) {
	t.Parallel()

	data := newFakeData(func(symbol string, call int) ([]market.PriceBar, error) {
		return []market.PriceBar{{Close: 1}}, nil
	})

	var mu sync.Mutex
	var pauses []time.Duration
	f := &Fetcher{
		Data:      data,
		Interval:  15 * time.Minute,
		ChunkSize: 2,
		sleep: func(ctx context.Context, d time.Duration) {
			mu.Lock()
			pauses = append(pauses, d)
			mu.Unlock()
		},
	}

	series := f.FetchAll(context.Background(), []string{"A", "B", "C", "D", "E"}, time.Now())

	require.Len(t, series, 5)
	// Three chunks (2+2+1) means two inter-chunk pauses, none after the last.
	assert.Equal(t, []time.Duration{DefaultChunkPause, DefaultChunkPause}, pauses)
}

func TestFetchAll_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	data := newFakeData(func(symbol string, call int) ([]market.PriceBar, error) {
		return []market.PriceBar{{Close: 1}}, nil
	})
	f := &Fetcher{Data: data, Interval: 15 * time.Minute, sleep: noSleep}

	symbols := []string{"ZZZ", "MMM", "AAA"}
	series := f.FetchAll(context.Background(), symbols, time.Now())

	got := make([]string, len(series))
	for i, s := range series {
		got[i] = s.Symbol
	}
	assert.Equal(t, symbols, got)
}
