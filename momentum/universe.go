package momentum

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tbc399/command-line-trader/broker"
	"github.com/tbc399/command-line-trader/market"
)

// DefaultUniverseSize bounds the scored universe to keep the downstream
// fetch cost proportional to the provider's rate limits.
const DefaultUniverseSize = 4000

var allowedExchanges = map[string]bool{
	"NYSE":   true,
	"NASDAQ": true,
	"AMEX":   true,
}

// UniverseBuilder selects the candidate symbols worth scoring: actively
// listed common stocks the account could actually afford a position in,
// ranked by liquidity.
type UniverseBuilder struct {
	Data       market.Data
	Calendar   market.Calendar
	Broker     broker.Broker
	Allocation float64 // fraction of account base per position
	Size       int     // max universe size, DefaultUniverseSize if zero
}

// Build returns the candidate universe for today. Unlike per-symbol price
// fetches, a provider or broker failure here is fatal: there is no safe
// default universe to rebalance against.
func (u *UniverseBuilder) Build(ctx context.Context, today time.Time) ([]string, error) {
	tickers, err := u.Data.ListTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}

	prevSession := dateOnly(u.Calendar.PreviousSession(today))
	todayDate := dateOnly(today)

	listed := make(map[string]bool)
	for _, t := range tickers {
		if !allowedExchanges[t.Exchange] {
			continue
		}
		if !strings.EqualFold(t.AssetType, "stock") {
			continue
		}
		if t.EndDate.IsZero() {
			continue
		}
		end := dateOnly(t.EndDate)
		if !end.Equal(todayDate) && !end.Equal(prevSession) {
			continue
		}
		if !alphanumeric(t.Symbol) {
			continue
		}
		listed[strings.ToUpper(t.Symbol)] = true
	}

	balance, err := u.Broker.AccountBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("account balance: %w", err)
	}
	affordable := balance.Base() * u.Allocation

	daily, err := u.Data.DailyPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("daily prices: %w", err)
	}

	candidates := make([]market.DailyPrice, 0, len(listed))
	for _, d := range daily {
		symbol := strings.ToUpper(d.Symbol)
		if !listed[symbol] {
			continue
		}
		if d.Close > affordable {
			continue
		}
		d.Symbol = symbol
		candidates = append(candidates, d)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Volume != candidates[j].Volume {
			return candidates[i].Volume > candidates[j].Volume
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})

	size := u.Size
	if size <= 0 {
		size = DefaultUniverseSize
	}
	if len(candidates) > size {
		candidates = candidates[:size]
	}

	symbols := make([]string, len(candidates))
	for i, c := range candidates {
		symbols[i] = c.Symbol
	}
	return symbols, nil
}

// alphanumeric excludes exotic share classes and units, whose tickers carry
// punctuation.
func alphanumeric(symbol string) bool {
	if symbol == "" {
		return false
	}
	for _, r := range symbol {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
