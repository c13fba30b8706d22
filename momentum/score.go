// Package momentum implements the momentum strategy core: universe
// selection, batched price retrieval, and trend-quality scoring.
package momentum

import (
	"math"
	"sort"

	"github.com/tbc399/command-line-trader/market"
)

const (
	// DefaultLookback is the number of trailing intraday bars scored,
	// roughly four trading days of 15 minute bars.
	DefaultLookback = 130

	// DefaultQualityThreshold is the minimum correlation between bar index
	// and close price for a symbol to be considered a clean trend.
	DefaultQualityThreshold = 0.93

	// DefaultPortfolioSize is how many top-ranked names form the target
	// portfolio.
	DefaultPortfolioSize = 25
)

// Score is the fitted trend for one symbol over the lookback window.
type Score struct {
	Symbol      string
	Slope       float64
	Correlation float64
}

// Compute fits close price against bar index (1..n) over the last lookback
// bars of the series. The second return value is false when the series is
// too short or the correlation is undefined (constant price); such symbols
// are discarded, never errored.
func Compute(symbol string, bars []market.PriceBar, lookback int) (Score, bool) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	if len(bars) < 2 {
		return Score{}, false
	}

	n := float64(len(bars))
	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i, bar := range bars {
		x := float64(i + 1)
		y := bar.Close
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}

	covXY := n*sumXY - sumX*sumY
	varX := n*sumXX - sumX*sumX
	varY := n*sumYY - sumY*sumY

	// A constant price series has zero variance and no defined correlation.
	if varX == 0 || varY == 0 {
		return Score{}, false
	}

	r := covXY / math.Sqrt(varX*varY)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Score{}, false
	}

	return Score{
		Symbol:      symbol,
		Slope:       covXY / varX,
		Correlation: r,
	}, true
}

// Rank filters scores to those whose correlation meets threshold and
// returns the top n symbols by slope descending. Ties break on symbol
// ascending so the ranking is deterministic.
func Rank(scores []Score, threshold float64, n int) []string {
	retained := make([]Score, 0, len(scores))
	for _, s := range scores {
		if s.Correlation >= threshold {
			retained = append(retained, s)
		}
	}

	sort.Slice(retained, func(i, j int) bool {
		if retained[i].Slope != retained[j].Slope {
			return retained[i].Slope > retained[j].Slope
		}
		return retained[i].Symbol < retained[j].Symbol
	})

	if n > 0 && len(retained) > n {
		retained = retained[:n]
	}

	symbols := make([]string, len(retained))
	for i, s := range retained {
		symbols[i] = s.Symbol
	}
	return symbols
}
