// Package rebalance drives the portfolio toward the ranked target set: it
// diffs targets against holdings, executes the resulting orders through
// their lifecycle, and schedules the whole loop around the trading session.
package rebalance

import (
	"sort"
	"strings"
)

// Diff compares the ranked target set against currently held names and
// returns what to buy and what to sell. Both are plain set differences: a
// held name missing from the target set is exited in full, and a target
// name not held is entered fresh. The two outputs are always disjoint.
// Results are sorted for deterministic execution order.
func Diff(target, held []string) (buy, sell []string) {
	targetSet := make(map[string]bool, len(target))
	for _, name := range target {
		targetSet[strings.ToUpper(name)] = true
	}
	heldSet := make(map[string]bool, len(held))
	for _, name := range held {
		heldSet[strings.ToUpper(name)] = true
	}

	buy = make([]string, 0)
	for name := range targetSet {
		if !heldSet[name] {
			buy = append(buy, name)
		}
	}
	sell = make([]string, 0)
	for name := range heldSet {
		if !targetSet[name] {
			sell = append(sell, name)
		}
	}

	sort.Strings(buy)
	sort.Strings(sell)
	return buy, sell
}
