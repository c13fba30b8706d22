package rebalance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/tbc399/command-line-trader/broker"
	"github.com/tbc399/command-line-trader/internal/logger"
	"github.com/tbc399/command-line-trader/journal"
	"github.com/tbc399/command-line-trader/pkg/id"
)

// DefaultPollInterval is how often pending orders are re-queried.
const DefaultPollInterval = 500 * time.Millisecond

var (
	// ErrAlreadyHeld is returned when entering a symbol with an open position.
	ErrAlreadyHeld = errors.New("position already open")

	// ErrNoQuote is returned when the broker has no usable price for the
	// symbol, e.g. a halted or pre-market name quoting at zero.
	ErrNoQuote = errors.New("no usable quote price")

	// ErrQuoteTooLarge is returned when one share costs more than the
	// allocation permits.
	ErrQuoteTooLarge = errors.New("quote price exceeds allocation size")

	// ErrNotHeld is returned when exiting a symbol with no open position.
	ErrNotHeld = errors.New("position not held")

	// ErrDeclined is returned when the preview confirmation is refused.
	ErrDeclined = errors.New("entry declined")

	// ErrFillTimeout is returned when the optional fill-wait bound elapses
	// before every pending order resolves.
	ErrFillTimeout = errors.New("timed out waiting for order fills")
)

// EnterPreview is shown before an interactive entry is confirmed.
type EnterPreview struct {
	Symbol           string
	Quantity         int
	Price            float64
	ActualAllocation float64 // percent of account base
	StopPrice        float64 // zero when no stop was requested
}

// EnterRequest describes one position entry.
type EnterRequest struct {
	Symbol     string
	Allocation float64 // fraction of account base, e.g. 0.04
	StopLoss   float64 // stop distance in percent below fill, zero for none
	RunID      string  // owning rebalance run for journaling, may be empty

	// Confirm, when set, is called with the computed preview before any
	// order is placed; returning false aborts with ErrDeclined.
	Confirm func(EnterPreview) bool
}

// Trader owns the order lifecycle: placement, the poll loop to a terminal
// status, and stop-loss attachment.
type Trader struct {
	Broker       broker.Broker
	Journal      journal.Recorder // optional
	PollInterval time.Duration    // DefaultPollInterval if zero

	// FillWait bounds the poll loop. Zero preserves the strategy's original
	// behavior of waiting indefinitely for every order to resolve.
	FillWait time.Duration

	sleep func(context.Context, time.Duration)
}

func (t *Trader) pollInterval() time.Duration {
	if t.PollInterval > 0 {
		return t.PollInterval
	}
	return DefaultPollInterval
}

func (t *Trader) pause(ctx context.Context, d time.Duration) error {
	if t.sleep != nil {
		t.sleep(ctx, d)
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (t *Trader) record(rec journal.OrderRecord) {
	if t.Journal == nil {
		return
	}
	if err := t.Journal.RecordOrder(rec); err != nil {
		logger.Warn("journal order %s: %v", rec.OrderID, err)
	}
}

// Enter opens a new long position sized to the requested allocation. It
// returns the filled buy order on success.
func (t *Trader) Enter(ctx context.Context, req EnterRequest) (broker.Order, error) {
	symbol := strings.ToUpper(req.Symbol)

	balance, err := t.Broker.AccountBalance(ctx)
	if err != nil {
		return broker.Order{}, fmt.Errorf("account balance: %w", err)
	}
	quote, err := t.Broker.GetQuote(ctx, symbol)
	if err != nil {
		return broker.Order{}, fmt.Errorf("quote for %s: %w", symbol, err)
	}
	positions, err := t.Broker.Positions(ctx)
	if err != nil {
		return broker.Order{}, fmt.Errorf("positions: %w", err)
	}

	for _, pos := range positions {
		if strings.EqualFold(pos.Name, symbol) {
			return broker.Order{}, fmt.Errorf("%w: %s", ErrAlreadyHeld, symbol)
		}
	}

	if quote.Price <= 0 {
		return broker.Order{}, fmt.Errorf("%w: %s quoted at %.2f", ErrNoQuote, symbol, quote.Price)
	}

	base := balance.Base()
	allocationSize := req.Allocation * base
	if quote.Price >= allocationSize {
		return broker.Order{}, fmt.Errorf("%w: %s at %.2f against %.2f",
			ErrQuoteTooLarge, symbol, quote.Price, allocationSize)
	}

	quantity := int(allocationSize / quote.Price)
	actualAllocation := (float64(quantity) * quote.Price / base) * 100

	var stopPrice float64
	if req.StopLoss > 0 {
		stopPrice = quote.Price * ((100 - req.StopLoss) / 100)
		if stopPrice >= quote.Price {
			return broker.Order{}, fmt.Errorf("stop price %.2f must be below quote %.2f", stopPrice, quote.Price)
		}
	}

	// TODO: validate that enough settled cash exists before buying
	if req.Confirm != nil {
		ok := req.Confirm(EnterPreview{
			Symbol:           symbol,
			Quantity:         quantity,
			Price:            quote.Price,
			ActualAllocation: actualAllocation,
			StopPrice:        stopPrice,
		})
		if !ok {
			return broker.Order{}, ErrDeclined
		}
	}

	orderID, err := t.Broker.PlaceMarketBuy(ctx, symbol, quantity)
	if err != nil {
		return broker.Order{}, fmt.Errorf("market buy %s: %w", symbol, err)
	}

	var filled broker.Order
	err = t.WaitForOrders(ctx, []string{orderID}, func(order broker.Order) {
		filled = order
	})
	if err != nil {
		return broker.Order{}, err
	}

	t.record(journal.OrderRecord{
		RecordID:  id.New(),
		RunID:     req.RunID,
		OrderID:   orderID,
		Symbol:    symbol,
		Side:      string(broker.SideBuy),
		Type:      string(broker.TypeMarket),
		Quantity:  quantity,
		Status:    string(filled.Status),
		FillPrice: filled.AvgFillPrice,
		PlacedAt:  time.Now().UTC(),
	})

	if filled.Status.Disposition() != broker.Filled {
		return filled, fmt.Errorf("market buy for %s ended %s", symbol, filled.Status)
	}

	if req.StopLoss > 0 {
		// Size the stop to what actually executed, at a distance from the
		// real fill price rather than the quote.
		stop := filled.AvgFillPrice * ((100 - req.StopLoss) / 100)
		stopID, err := t.Broker.PlaceStopLoss(ctx, symbol, filled.ExecutedQuantity, round2(stop))
		if err != nil {
			return filled, fmt.Errorf("stop loss for %s: %w", symbol, err)
		}
		t.record(journal.OrderRecord{
			RecordID:  id.New(),
			RunID:     req.RunID,
			OrderID:   stopID,
			Symbol:    symbol,
			Side:      string(broker.SideSell),
			Type:      string(broker.TypeStop),
			Quantity:  filled.ExecutedQuantity,
			Status:    string(broker.StatusOpen),
			FillPrice: round2(stop),
			PlacedAt:  time.Now().UTC(),
		})
	}

	return filled, nil
}

// Exit closes the full position in symbol. Any open orders for the symbol
// are canceled first so a resting stop cannot race the market sell.
func (t *Trader) Exit(ctx context.Context, symbol, runID string) (string, error) {
	symbol = strings.ToUpper(symbol)

	positions, err := t.Broker.Positions(ctx)
	if err != nil {
		return "", fmt.Errorf("positions: %w", err)
	}

	var held *broker.Position
	for i := range positions {
		if strings.EqualFold(positions[i].Name, symbol) {
			held = &positions[i]
			break
		}
	}
	if held == nil {
		return "", fmt.Errorf("%w: %s", ErrNotHeld, symbol)
	}

	orders, err := t.Broker.Orders(ctx)
	if err != nil {
		return "", fmt.Errorf("orders: %w", err)
	}
	for _, order := range orders {
		if !strings.EqualFold(order.Name, symbol) || order.Status.Terminal() {
			continue
		}
		if err := t.Broker.CancelOrder(ctx, order.ID); err != nil {
			return "", fmt.Errorf("cancel order %s: %w", order.ID, err)
		}
	}

	orderID, err := t.Broker.PlaceMarketSell(ctx, symbol, held.Size)
	if err != nil {
		return "", fmt.Errorf("market sell %s: %w", symbol, err)
	}

	t.record(journal.OrderRecord{
		RecordID: id.New(),
		RunID:    runID,
		OrderID:  orderID,
		Symbol:   symbol,
		Side:     string(broker.SideSell),
		Type:     string(broker.TypeMarket),
		Quantity: held.Size,
		Status:   string(broker.StatusOpen),
		PlacedAt: time.Now().UTC(),
	})

	return orderID, nil
}

// WaitForOrders polls every pending order until each reaches a terminal
// status, invoking resolved exactly once per order as it resolves. Statuses
// for all pending ids are queried concurrently each poll. The loop ends
// when the pending set is empty; with FillWait set, a deadline overrun
// cancels the stragglers and returns ErrFillTimeout.
func (t *Trader) WaitForOrders(ctx context.Context, orderIDs []string, resolved func(broker.Order)) error {
	pending := make(map[string]bool, len(orderIDs))
	for _, oid := range orderIDs {
		pending[oid] = true
	}

	var deadline time.Time
	if t.FillWait > 0 {
		deadline = time.Now().Add(t.FillWait)
	}

	for len(pending) > 0 {
		if err := t.pause(ctx, t.pollInterval()); err != nil {
			return err
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			for oid := range pending {
				if err := t.Broker.CancelOrder(ctx, oid); err != nil {
					logger.Error("cancel unresolved order %s: %v", oid, err)
				}
			}
			return fmt.Errorf("%w after %s (%d unresolved)", ErrFillTimeout, t.FillWait, len(pending))
		}

		orders, err := t.pollStatuses(ctx, pending)
		if err != nil {
			return err
		}

		for _, order := range orders {
			if order.Status.Terminal() {
				delete(pending, order.ID)
				resolved(order)
			}
		}
	}
	return nil
}

func (t *Trader) pollStatuses(ctx context.Context, pending map[string]bool) ([]broker.Order, error) {
	ids := make([]string, 0, len(pending))
	for oid := range pending {
		ids = append(ids, oid)
	}

	orders := make([]broker.Order, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, oid := range ids {
		wg.Add(1)
		go func(i int, oid string) {
			defer wg.Done()
			orders[i], errs[i] = t.Broker.OrderStatus(ctx, oid)
		}(i, oid)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("order status for %s: %w", ids[i], err)
		}
	}
	return orders, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
