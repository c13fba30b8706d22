// Package tradier implements broker.Broker against the Tradier brokerage
// REST API.
package tradier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tbc399/command-line-trader/broker"
)

const apiVersion = "v1"

func init() {
	broker.Register("tradier", func(cfg broker.Config) (broker.Broker, error) {
		return NewClient(cfg)
	})
}

// Client is a Tradier REST API client bound to one account.
type Client struct {
	account    string
	env        string // "api" for production, "sandbox" for paper trading
	baseURL    string // overrides the tradier.com host, for tests
	headers    http.Header
	httpClient *http.Client
}

// NewClient creates a Tradier client for the account in cfg.
func NewClient(cfg broker.Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("tradier broker requires an access token")
	}
	if cfg.AccountNumber == "" {
		return nil, fmt.Errorf("tradier broker requires an account number")
	}

	env := cfg.Env
	if env == "" {
		env = "api"
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Authorization", "Bearer "+cfg.AccessToken)

	return &Client{
		account: cfg.AccountNumber,
		env:     env,
		headers: headers,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) formURL(endpoint string) string {
	base := c.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.tradier.com/%s", c.env, apiVersion)
	}
	path := strings.ReplaceAll(strings.Trim(endpoint, "/"), "[[account]]", c.account)
	return base + "/" + path
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	u := c.formURL(endpoint)

	var body io.Reader
	if method == http.MethodPost && params != nil {
		body = strings.NewReader(params.Encode())
	} else if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = c.headers.Clone()
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("tradier %s %s (status %d): %s",
			method, endpoint, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) placeOrder(ctx context.Context, symbol string, quantity int, side string, orderType broker.OrderType, stopPrice float64) (string, error) {
	params := url.Values{}
	params.Set("class", "equity")
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("quantity", fmt.Sprintf("%d", quantity))
	params.Set("type", string(orderType))
	params.Set("duration", "gtc")
	if orderType == broker.TypeStop {
		params.Set("stop", fmt.Sprintf("%.2f", stopPrice))
	}

	var resp struct {
		Order struct {
			ID json.Number `json:"id"`
		} `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/accounts/[[account]]/orders", params, &resp); err != nil {
		return "", fmt.Errorf("place %s %s order for %s: %w", orderType, side, symbol, err)
	}
	return resp.Order.ID.String(), nil
}

// PlaceMarketBuy submits a market buy order.
func (c *Client) PlaceMarketBuy(ctx context.Context, symbol string, quantity int) (string, error) {
	return c.placeOrder(ctx, symbol, quantity, "buy", broker.TypeMarket, 0)
}

// PlaceMarketSell submits a market sell order.
func (c *Client) PlaceMarketSell(ctx context.Context, symbol string, quantity int) (string, error) {
	return c.placeOrder(ctx, symbol, quantity, "sell", broker.TypeMarket, 0)
}

// PlaceStopLoss submits a stop sell order at stopPrice.
func (c *Client) PlaceStopLoss(ctx context.Context, symbol string, quantity int, stopPrice float64) (string, error) {
	return c.placeOrder(ctx, symbol, quantity, "sell", broker.TypeStop, stopPrice)
}

// AccountBalance returns the account's balance snapshot.
func (c *Client) AccountBalance(ctx context.Context) (broker.AccountBalance, error) {
	var resp struct {
		Balances struct {
			TotalCash       float64 `json:"total_cash"`
			TotalEquity     float64 `json:"total_equity"`
			OpenPL          float64 `json:"open_pl"`
			LongMarketValue float64 `json:"long_market_value"`
			Cash            struct {
				CashAvailable float64 `json:"cash_available"`
			} `json:"cash"`
		} `json:"balances"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/[[account]]/balances", nil, &resp); err != nil {
		return broker.AccountBalance{}, fmt.Errorf("account balance: %w", err)
	}

	return broker.AccountBalance{
		TotalCash:   resp.Balances.TotalCash,
		TotalEquity: resp.Balances.TotalEquity,
		OpenPL:      resp.Balances.OpenPL,
		LongValue:   resp.Balances.LongMarketValue,
		SettledCash: resp.Balances.Cash.CashAvailable,
	}, nil
}

type apiPosition struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	CostBasis    float64 `json:"cost_basis"`
	DateAcquired string  `json:"date_acquired"`
}

func (p apiPosition) position() (broker.Position, error) {
	opened, err := time.Parse("2006-01-02T15:04:05.000Z", p.DateAcquired)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse date_acquired %q: %w", p.DateAcquired, err)
	}
	return broker.Position{
		Name:       p.Symbol,
		Size:       int(p.Quantity),
		CostBasis:  p.CostBasis,
		TimeOpened: opened,
	}, nil
}

// Positions returns all open positions. An account with no positions
// returns an empty slice.
func (c *Client) Positions(ctx context.Context) ([]broker.Position, error) {
	// Tradier collapses a single element to a bare object rather than a
	// one-element array.
	var resp struct {
		Positions json.RawMessage `json:"positions"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/[[account]]/positions", nil, &resp); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	if isNull(resp.Positions) {
		return []broker.Position{}, nil
	}

	var wrapper struct {
		Position json.RawMessage `json:"position"`
	}
	if err := json.Unmarshal(resp.Positions, &wrapper); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	rows, err := oneOrMany[apiPosition](wrapper.Position)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	positions := make([]broker.Position, 0, len(rows))
	for _, row := range rows {
		pos, err := row.position()
		if err != nil {
			return nil, fmt.Errorf("positions: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

type apiQuote struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
}

// GetQuote returns the latest quote for a single symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (broker.Quote, error) {
	quotes, err := c.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return broker.Quote{}, err
	}
	if len(quotes) == 0 {
		return broker.Quote{}, fmt.Errorf("no quote returned for %s", symbol)
	}
	return quotes[0], nil
}

// GetQuotes returns the latest quotes for the given symbols.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) ([]broker.Quote, error) {
	if len(symbols) == 0 {
		return []broker.Quote{}, nil
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("greeks", "false")

	var resp struct {
		Quotes struct {
			Quote json.RawMessage `json:"quote"`
		} `json:"quotes"`
	}
	if err := c.do(ctx, http.MethodGet, "/markets/quotes", params, &resp); err != nil {
		return nil, fmt.Errorf("quotes for %s: %w", strings.Join(symbols, ","), err)
	}

	rows, err := oneOrMany[apiQuote](resp.Quotes.Quote)
	if err != nil {
		return nil, fmt.Errorf("quotes: %w", err)
	}

	quotes := make([]broker.Quote, 0, len(rows))
	for _, row := range rows {
		quotes = append(quotes, broker.Quote{Name: row.Symbol, Price: row.Last})
	}
	return quotes, nil
}

type apiOrder struct {
	ID           json.Number `json:"id"`
	Symbol       string      `json:"symbol"`
	Side         string      `json:"side"`
	Type         string      `json:"type"`
	Status       string      `json:"status"`
	ExecQuantity float64     `json:"exec_quantity"`
	AvgFillPrice float64     `json:"avg_fill_price"`
}

func (o apiOrder) order() broker.Order {
	return broker.Order{
		ID:               o.ID.String(),
		Name:             o.Symbol,
		Side:             broker.OrderSide(o.Side),
		Type:             broker.OrderType(o.Type),
		Status:           broker.OrderStatus(o.Status),
		ExecutedQuantity: int(o.ExecQuantity),
		AvgFillPrice:     o.AvgFillPrice,
	}
}

// OrderStatus returns the current state of one order.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (broker.Order, error) {
	var resp struct {
		Order apiOrder `json:"order"`
	}
	endpoint := "/accounts/[[account]]/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return broker.Order{}, fmt.Errorf("order status for %s: %w", orderID, err)
	}

	order := resp.Order.order()
	order.ID = orderID
	return order, nil
}

// Orders returns all orders on the account.
func (c *Client) Orders(ctx context.Context) ([]broker.Order, error) {
	var resp struct {
		Orders json.RawMessage `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/[[account]]/orders", nil, &resp); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	if isNull(resp.Orders) {
		return []broker.Order{}, nil
	}

	var wrapper struct {
		Order json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(resp.Orders, &wrapper); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	rows, err := oneOrMany[apiOrder](wrapper.Order)
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	orders := make([]broker.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, row.order())
	}
	return orders, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	endpoint := "/accounts/[[account]]/orders/" + url.PathEscape(orderID)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}

type apiClosedPosition struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	Cost      float64 `json:"cost"`
	Proceeds  float64 `json:"proceeds"`
	OpenDate  string  `json:"open_date"`
	CloseDate string  `json:"close_date"`
}

// ClosedPositions returns realized positions from the gain/loss report
// closed on or after since.
func (c *Client) ClosedPositions(ctx context.Context, since time.Time) ([]broker.ClosedPosition, error) {
	params := url.Values{}
	if !since.IsZero() {
		params.Set("start", since.Format("2006-01-02"))
	}

	var resp struct {
		GainLoss struct {
			ClosedPosition json.RawMessage `json:"closed_position"`
		} `json:"gainloss"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/[[account]]/gainloss", params, &resp); err != nil {
		return nil, fmt.Errorf("gainloss: %w", err)
	}

	if isNull(resp.GainLoss.ClosedPosition) {
		return []broker.ClosedPosition{}, nil
	}

	rows, err := oneOrMany[apiClosedPosition](resp.GainLoss.ClosedPosition)
	if err != nil {
		return nil, fmt.Errorf("gainloss: %w", err)
	}

	closed := make([]broker.ClosedPosition, 0, len(rows))
	for _, row := range rows {
		opened, err := time.Parse("2006-01-02", row.OpenDate)
		if err != nil {
			return nil, fmt.Errorf("parse open_date %q: %w", row.OpenDate, err)
		}
		ended, err := time.Parse("2006-01-02", row.CloseDate)
		if err != nil {
			return nil, fmt.Errorf("parse close_date %q: %w", row.CloseDate, err)
		}
		closed = append(closed, broker.ClosedPosition{
			Position: broker.Position{
				Name:       row.Symbol,
				Size:       int(row.Quantity),
				CostBasis:  row.Cost,
				TimeOpened: opened,
			},
			Proceeds:   row.Proceeds,
			TimeClosed: ended,
		})
	}
	return closed, nil
}

// AccountHistory returns non-trade account events: transfers, dividends,
// fees, and the like.
func (c *Client) AccountHistory(ctx context.Context) ([]broker.AccountEvent, error) {
	params := url.Values{}
	params.Set("limit", "10000")
	params.Set("type", strings.Join([]string{
		"ach", "wire", "dividend", "fee", "tax",
		"journal", "check", "transfer", "adjustment", "interest",
	}, ","))

	var resp struct {
		History struct {
			Event json.RawMessage `json:"event"`
		} `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/[[account]]/history", params, &resp); err != nil {
		return nil, fmt.Errorf("account history: %w", err)
	}

	if isNull(resp.History.Event) {
		return []broker.AccountEvent{}, nil
	}

	type apiEvent struct {
		Type   string  `json:"type"`
		Amount float64 `json:"amount"`
		Date   string  `json:"date"`
	}
	rows, err := oneOrMany[apiEvent](resp.History.Event)
	if err != nil {
		return nil, fmt.Errorf("account history: %w", err)
	}

	events := make([]broker.AccountEvent, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(time.RFC3339, row.Date)
		if err != nil {
			return nil, fmt.Errorf("parse event date %q: %w", row.Date, err)
		}
		events = append(events, broker.AccountEvent{
			Type:   row.Type,
			Amount: row.Amount,
			Date:   date,
		})
	}
	return events, nil
}

// isNull reports whether raw is absent or an explicit null. Tradier encodes
// empty collections as `"null"` (a string) in some endpoints.
func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null" || trimmed == `"null"`
}

// oneOrMany decodes a value Tradier may encode as either a single object or
// an array of objects.
func oneOrMany[T any](raw json.RawMessage) ([]T, error) {
	if isNull(raw) {
		return []T{}, nil
	}

	var many []T
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("decode element: %w", err)
	}
	return []T{one}, nil
}
