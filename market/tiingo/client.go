// Package tiingo implements market.Data against the Tiingo REST API.
package tiingo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tbc399/command-line-trader/market"
)

// DefaultBaseURL is Tiingo's public API host.
const DefaultBaseURL = "https://api.tiingo.com"

// Client is a Tiingo REST API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Tiingo client authenticated with token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return market.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("tiingo %s (status %d): %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type apiTicker struct {
	Ticker    string `json:"ticker"`
	Exchange  string `json:"exchange"`
	AssetType string `json:"assetType"`
	EndDate   string `json:"endDate"`
}

// ListTickers returns Tiingo's full supported-ticker listing.
func (c *Client) ListTickers(ctx context.Context) ([]market.Ticker, error) {
	var listing []apiTicker
	if err := c.get(ctx, "/tiingo/utilities/supported_tickers", nil, &listing); err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}

	tickers := make([]market.Ticker, 0, len(listing))
	for _, t := range listing {
		var end time.Time
		if t.EndDate != "" {
			parsed, err := time.Parse("2006-01-02", t.EndDate)
			if err != nil {
				continue
			}
			end = parsed
		}
		tickers = append(tickers, market.Ticker{
			Symbol:    t.Ticker,
			Exchange:  t.Exchange,
			AssetType: t.AssetType,
			EndDate:   end,
		})
	}
	return tickers, nil
}

type apiDaily struct {
	Ticker string  `json:"ticker"`
	Last   float64 `json:"last"`
	Volume int64   `json:"volume"`
}

// DailyPrices returns the latest end-of-day price and volume for every
// symbol on the IEX feed.
func (c *Client) DailyPrices(ctx context.Context) ([]market.DailyPrice, error) {
	var rows []apiDaily
	if err := c.get(ctx, "/iex", nil, &rows); err != nil {
		return nil, fmt.Errorf("daily prices: %w", err)
	}

	prices := make([]market.DailyPrice, 0, len(rows))
	for _, row := range rows {
		prices = append(prices, market.DailyPrice{
			Symbol: row.Ticker,
			Close:  row.Last,
			Volume: row.Volume,
		})
	}
	return prices, nil
}

type apiBar struct {
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// IntradayBars returns intraday bars for symbol resampled to interval,
// starting at start. An HTTP 429 from the provider surfaces as
// market.ErrRateLimited.
func (c *Client) IntradayBars(ctx context.Context, symbol string, interval time.Duration, start time.Time) ([]market.PriceBar, error) {
	params := url.Values{}
	params.Set("resampleFreq", resampleFreq(interval))
	params.Set("columns", "date,close,volume")
	params.Set("startDate", start.Format("2006-01-02"))

	var rows []apiBar
	if err := c.get(ctx, "/iex/"+url.PathEscape(symbol)+"/prices", params, &rows); err != nil {
		if errors.Is(err, market.ErrRateLimited) {
			return nil, err
		}
		return nil, fmt.Errorf("intraday bars for %s: %w", symbol, err)
	}

	bars := make([]market.PriceBar, 0, len(rows))
	for _, row := range rows {
		t, err := time.Parse(time.RFC3339, row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse bar time %q: %w", row.Date, err)
		}
		bars = append(bars, market.PriceBar{
			Time:   t,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	return bars, nil
}

// resampleFreq converts a Go duration into Tiingo's resample frequency
// string, e.g. 5*time.Minute -> "5min".
func resampleFreq(interval time.Duration) string {
	if interval >= time.Hour && interval%time.Hour == 0 {
		return fmt.Sprintf("%dhour", int(interval/time.Hour))
	}
	minutes := int(interval / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%dmin", minutes)
}
