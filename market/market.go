// Package market defines the market data surface the strategy consumes:
// price bars, exchange listings, daily summaries, and the trading calendar.
package market

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned by a Data implementation when the provider
// signals that the request quota has been exhausted. Callers treat it as an
// immediate skip rather than a retryable failure.
var ErrRateLimited = errors.New("market data provider rate limited")

// PriceBar is a single aggregated price observation. Bars in a series are
// ordered by time ascending.
type PriceBar struct {
	Time   time.Time
	Close  float64
	Volume int64
}

// Ticker is one entry from the provider's full exchange listing.
type Ticker struct {
	Symbol    string
	Exchange  string
	AssetType string
	EndDate   time.Time // last date the provider has data for; zero if unlisted
}

// DailyPrice is the previous close and volume for one symbol.
type DailyPrice struct {
	Symbol string
	Close  float64
	Volume int64
}

// Data is the market data provider the strategy depends on.
type Data interface {
	// ListTickers returns the full exchange listing.
	ListTickers(ctx context.Context) ([]Ticker, error)

	// DailyPrices returns the latest end-of-day close and volume for every
	// supported symbol.
	DailyPrices(ctx context.Context) ([]DailyPrice, error)

	// IntradayBars returns intraday bars for symbol resampled to interval,
	// starting at start. A rate-limited response is reported as
	// ErrRateLimited.
	IntradayBars(ctx context.Context, symbol string, interval time.Duration, start time.Time) ([]PriceBar, error)
}
