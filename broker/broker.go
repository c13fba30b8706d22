// Package broker defines the brokerage surface the strategy and CLI operate
// against, and the account/order types shared by its implementations.
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Broker is the full capability surface required by the CLI and the
// rebalance loop. Implementations are selected by name at configuration
// time; see New.
type Broker interface {
	// Positions returns all currently held positions.
	Positions(ctx context.Context) ([]Position, error)

	// AccountBalance returns the current account balances.
	AccountBalance(ctx context.Context) (AccountBalance, error)

	// GetQuote returns the latest quote for one symbol.
	GetQuote(ctx context.Context, symbol string) (Quote, error)

	// GetQuotes returns the latest quotes for a set of symbols.
	GetQuotes(ctx context.Context, symbols []string) ([]Quote, error)

	// PlaceMarketBuy submits a market buy and returns the broker's order id.
	PlaceMarketBuy(ctx context.Context, symbol string, quantity int) (string, error)

	// PlaceMarketSell submits a market sell and returns the broker's order id.
	PlaceMarketSell(ctx context.Context, symbol string, quantity int) (string, error)

	// PlaceStopLoss submits a stop sell order at stopPrice.
	PlaceStopLoss(ctx context.Context, symbol string, quantity int, stopPrice float64) (string, error)

	// OrderStatus returns the current state of one order.
	OrderStatus(ctx context.Context, orderID string) (Order, error)

	// Orders returns all orders known to the broker for the account.
	Orders(ctx context.Context) ([]Order, error)

	// CancelOrder cancels an open order.
	CancelOrder(ctx context.Context, orderID string) error

	// ClosedPositions returns realized positions closed since the given
	// date.
	ClosedPositions(ctx context.Context, since time.Time) ([]ClosedPosition, error)

	// AccountHistory returns non-trade account events (transfers,
	// dividends, fees, ...).
	AccountHistory(ctx context.Context) ([]AccountEvent, error)
}

// Position is a currently held, long-only equity position. The broker is
// authoritative; the strategy treats positions as read-only input.
type Position struct {
	Name       string
	Size       int
	CostBasis  float64
	TimeOpened time.Time
}

// ClosedPosition is a realized position from the broker's gain/loss report.
type ClosedPosition struct {
	Position
	Proceeds   float64
	TimeClosed time.Time
}

// AccountEvent is a non-trade cash movement on the account.
type AccountEvent struct {
	Type   string
	Amount float64
	Date   time.Time
}

// Quote is the latest trade price for a symbol.
type Quote struct {
	Name  string
	Price float64
}

// AccountBalance is a snapshot of account-level balances.
type AccountBalance struct {
	TotalCash   float64
	TotalEquity float64
	OpenPL      float64
	LongValue   float64
	SettledCash float64
}

// Base is the account value used for allocation sizing: equity less
// unrealized gains.
func (b AccountBalance) Base() float64 {
	return b.TotalEquity - b.OpenPL
}

// Config carries the account settings needed to construct a Broker.
type Config struct {
	Name          string // broker implementation, e.g. "tradier"
	AccountNumber string
	AccessToken   string
	Env           string // implementation-specific environment, e.g. "api" or "sandbox"
}

// Factory builds a Broker from account configuration. Registered by each
// implementation's package to avoid an import cycle with this one.
type Factory func(cfg Config) (Broker, error)

var factories = make(map[string]Factory)

// Register makes a broker implementation available under name.
func Register(name string, f Factory) {
	factories[strings.ToLower(name)] = f
}

// New constructs the broker named in cfg. The set of valid names is closed:
// it is exactly the set of registered implementations.
func New(cfg Config) (Broker, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(cfg.Name))]
	if !ok {
		return nil, fmt.Errorf("unknown broker %q", cfg.Name)
	}
	return f(cfg)
}
