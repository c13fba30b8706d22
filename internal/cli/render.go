package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

func red(text string) string {
	return "\033[91m" + text + "\033[0m"
}

func green(text string) string {
	return "\033[32m" + text + "\033[0m"
}

// colorPL renders a percentage green for gains and red for losses.
func colorPL(pl float64) string {
	s := fmt.Sprintf("%.2f", pl)
	if pl >= 0 {
		return green(s)
	}
	return red(s)
}

func percentChange(start, end float64) float64 {
	return ((end - start) / start) * 100
}

// renderTable writes a simple aligned table with a header row.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	separators := make([]string, len(headers))
	for i, h := range headers {
		separators[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(separators, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
