package momentum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbc399/command-line-trader/broker"
	"github.com/tbc399/command-line-trader/market"
)

// listData scripts ListTickers/DailyPrices for universe tests.
type listData struct {
	tickers    []market.Ticker
	tickersErr error
	daily      []market.DailyPrice
	dailyErr   error
}

func (d *listData) ListTickers(ctx context.Context) ([]market.Ticker, error) {
	return d.tickers, d.tickersErr
}

func (d *listData) DailyPrices(ctx context.Context) ([]market.DailyPrice, error) {
	return d.daily, d.dailyErr
}

func (d *listData) IntradayBars(ctx context.Context, symbol string, interval time.Duration, start time.Time) ([]market.PriceBar, error) {
	return nil, nil
}

// weekdayCalendar treats every weekday as a session with regular NYSE hours.
type weekdayCalendar struct{}

func (weekdayCalendar) IsSession(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (c weekdayCalendar) SessionFirstMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, t.Location())
}

func (c weekdayCalendar) SessionLastMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, t.Location())
}

func (c weekdayCalendar) PreviousSession(t time.Time) time.Time {
	day := t
	for {
		day = day.AddDate(0, 0, -1)
		if c.IsSession(day) {
			return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
		}
	}
}

// balanceBroker is a broker.Broker stub with a fixed account balance.
type balanceBroker struct {
	broker.Broker

	balance broker.AccountBalance
	err     error
}

func (b *balanceBroker) AccountBalance(ctx context.Context) (broker.AccountBalance, error) {
	return b.balance, b.err
}

func TestUniverseBuild_Filters(t *testing.T) {
	t.Parallel()

	// A Wednesday, so the previous session is Tuesday the 9th.
	today := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	tuesday := time.Date(2026, time.June, 9, 0, 0, 0, 0, time.UTC)
	stale := time.Date(2026, time.June, 5, 0, 0, 0, 0, time.UTC)

	data := &listData{
		tickers: []market.Ticker{
			{Symbol: "GOOD", Exchange: "NYSE", AssetType: "Stock", EndDate: today},
			{Symbol: "prev", Exchange: "NASDAQ", AssetType: "Stock", EndDate: tuesday},
			{Symbol: "ETFX", Exchange: "NYSE", AssetType: "ETF", EndDate: today},
			{Symbol: "OTCX", Exchange: "OTC", AssetType: "Stock", EndDate: today},
			{Symbol: "STALE", Exchange: "NYSE", AssetType: "Stock", EndDate: stale},
			{Symbol: "DELISTED", Exchange: "NYSE", AssetType: "Stock"},
			{Symbol: "BRK-A", Exchange: "NYSE", AssetType: "Stock", EndDate: today},
			{Symbol: "RICH", Exchange: "AMEX", AssetType: "Stock", EndDate: today},
		},
		daily: []market.DailyPrice{
			{Symbol: "GOOD", Close: 50, Volume: 1000},
			{Symbol: "PREV", Close: 30, Volume: 2000},
			{Symbol: "ETFX", Close: 10, Volume: 9000},
			{Symbol: "OTCX", Close: 10, Volume: 9000},
			{Symbol: "STALE", Close: 10, Volume: 9000},
			{Symbol: "RICH", Close: 5000, Volume: 9000},
		},
	}
	b := &balanceBroker{balance: broker.AccountBalance{TotalEquity: 100000, OpenPL: 0}}

	u := &UniverseBuilder{
		Data:       data,
		Calendar:   weekdayCalendar{},
		Broker:     b,
		Allocation: 0.02, // affordable <= $2000
	}

	symbols, err := u.Build(context.Background(), today)

	require.NoError(t, err)
	// PREV first on volume, RICH priced out, the rest filtered on listing.
	assert.Equal(t, []string{"PREV", "GOOD"}, symbols)
}

func TestUniverseBuild_VolumeCapAndTieBreak(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)

	data := &listData{
		tickers: []market.Ticker{
			{Symbol: "AAA", Exchange: "NYSE", AssetType: "Stock", EndDate: today},
			{Symbol: "BBB", Exchange: "NYSE", AssetType: "Stock", EndDate: today},
			{Symbol: "CCC", Exchange: "NYSE", AssetType: "Stock", EndDate: today},
		},
		daily: []market.DailyPrice{
			{Symbol: "CCC", Close: 10, Volume: 500},
			{Symbol: "AAA", Close: 10, Volume: 500},
			{Symbol: "BBB", Close: 10, Volume: 900},
		},
	}
	b := &balanceBroker{balance: broker.AccountBalance{TotalEquity: 100000}}

	u := &UniverseBuilder{
		Data:       data,
		Calendar:   weekdayCalendar{},
		Broker:     b,
		Allocation: 0.02,
		Size:       2,
	}

	symbols, err := u.Build(context.Background(), today)

	require.NoError(t, err)
	// Highest volume first; equal volume breaks on symbol, and the cap drops
	// the remainder.
	assert.Equal(t, []string{"BBB", "AAA"}, symbols)
}

func TestUniverseBuild_ErrorsAreFatal(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC)
	boom := errors.New("provider down")

	tests := []struct {
		name string
		data *listData
		bErr error
	}{
		{name: "listing fails", data: &listData{tickersErr: boom}},
		{name: "daily prices fail", data: &listData{dailyErr: boom}},
		{name: "balance fails", data: &listData{}, bErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u := &UniverseBuilder{
				Data:       tt.data,
				Calendar:   weekdayCalendar{},
				Broker:     &balanceBroker{err: tt.bErr},
				Allocation: 0.02,
			}

			_, err := u.Build(context.Background(), today)
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
		})
	}
}
