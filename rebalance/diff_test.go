package rebalance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target []string
		held   []string
		buy    []string
		sell   []string
	}{
		{
			name:   "partial overlap",
			target: []string{"B", "C"},
			held:   []string{"A", "B"},
			buy:    []string{"C"},
			sell:   []string{"A"},
		},
		{
			name:   "identical sets",
			target: []string{"A", "B"},
			held:   []string{"B", "A"},
			buy:    []string{},
			sell:   []string{},
		},
		{
			name:   "empty holdings",
			target: []string{"B", "A"},
			held:   nil,
			buy:    []string{"A", "B"},
			sell:   []string{},
		},
		{
			name:   "empty target",
			target: nil,
			held:   []string{"A", "B"},
			buy:    []string{},
			sell:   []string{"A", "B"},
		},
		{
			name:   "case insensitive",
			target: []string{"aapl", "MSFT"},
			held:   []string{"AAPL"},
			buy:    []string{"MSFT"},
			sell:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buy, sell := Diff(tt.target, tt.held)
			assert.Equal(t, tt.buy, buy)
			assert.Equal(t, tt.sell, sell)

			// The two outputs can never share a name.
			for _, b := range buy {
				assert.NotContains(t, sell, b)
			}
		})
	}
}
