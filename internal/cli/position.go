package cli

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbc399/command-line-trader/broker"
	"github.com/tbc399/command-line-trader/journal"
	"github.com/tbc399/command-line-trader/rebalance"
)

func newPositionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Manage positions",
	}
	cmd.AddCommand(
		newPositionListCmd(a),
		newPositionEnterCmd(a),
		newPositionExitCmd(a),
		newPositionHistoryCmd(a),
	)
	return cmd
}

func newPositionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.activeBroker()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			positions, err := b.Positions(ctx)
			if err != nil {
				return err
			}
			if len(positions) == 0 {
				fmt.Println("no open positions")
				return nil
			}

			balance, err := b.AccountBalance(ctx)
			if err != nil {
				return err
			}

			names := make([]string, len(positions))
			for i, pos := range positions {
				names[i] = pos.Name
			}
			quotes, err := b.GetQuotes(ctx, names)
			if err != nil {
				return err
			}

			prices := make(map[string]float64, len(quotes))
			for _, q := range quotes {
				prices[strings.ToUpper(q.Name)] = q.Price
			}

			sort.Slice(positions, func(i, j int) bool {
				return positions[i].Name < positions[j].Name
			})

			today := time.Now().UTC()
			rows := make([][]string, 0, len(positions))
			for _, pos := range positions {
				value := prices[strings.ToUpper(pos.Name)] * float64(pos.Size)
				rows = append(rows, []string{
					pos.Name,
					fmt.Sprintf("%d", pos.Size),
					colorPL(percentChange(pos.CostBasis, value)),
					fmt.Sprintf("%.2f", (value/balance.TotalEquity)*100),
					fmt.Sprintf("%d", int(today.Sub(pos.TimeOpened).Hours()/24)),
				})
			}

			fmt.Println()
			renderTable(os.Stdout, []string{
				fmt.Sprintf("Name (%d)", len(rows)),
				"Quantity",
				"Gain/Loss (%)",
				"Concentration (%)",
				"Days Held",
			}, rows)
			fmt.Println()
			return nil
		},
	}
}

func newPositionEnterCmd(a *app) *cobra.Command {
	var (
		allocation int
		stopLoss   int
		preview    bool
	)

	cmd := &cobra.Command{
		Use:   "enter NAME",
		Short: "Enter a new long position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToUpper(args[0])
			if allocation < 1 || allocation > 100 {
				return fmt.Errorf("allocation must be between 1 and 100")
			}
			if stopLoss < 0 || stopLoss > 50 {
				return fmt.Errorf("stop loss must be between 0 and 50")
			}

			b, err := a.activeBroker()
			if err != nil {
				return err
			}
			trader, cleanup := a.newTrader(b)
			defer cleanup()

			req := rebalance.EnterRequest{
				Symbol:     name,
				Allocation: float64(allocation) / 100,
				StopLoss:   float64(stopLoss),
			}
			if preview {
				req.Confirm = confirmEntry
			}

			fmt.Println("placing market order")
			order, err := trader.Enter(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Printf("market order filled: %d shares of %s @ %.2f\n",
				order.ExecutedQuantity, name, order.AvgFillPrice)
			return nil
		},
	}

	cmd.Flags().IntVarP(&allocation, "allocation", "a", 2, "Percent of account base to allocate")
	cmd.Flags().IntVarP(&stopLoss, "stop-loss", "s", 0, "Stop loss percent below fill (0 for none)")
	cmd.Flags().BoolVarP(&preview, "preview", "p", true, "Preview and confirm before placing")
	return cmd
}

func confirmEntry(p rebalance.EnterPreview) bool {
	fmt.Printf("Enter new long position for %s @ %d shares for a %.2f%% allocation\n",
		p.Symbol, p.Quantity, p.ActualAllocation)
	if p.StopPrice > 0 {
		fmt.Printf("Stop loss @ %.2f\n", p.StopPrice)
	}
	fmt.Print("Continue? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func newPositionExitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exit NAME",
		Short: "Exit a held position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToUpper(args[0])

			b, err := a.activeBroker()
			if err != nil {
				return err
			}
			trader, cleanup := a.newTrader(b)
			defer cleanup()

			orderID, err := trader.Exit(cmd.Context(), name, "")
			if err != nil {
				return err
			}
			fmt.Printf("placed market sell for %s (order %s)\n", name, orderID)
			return nil
		},
	}
}

func newPositionHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show positions closed this year",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.activeBroker()
			if err != nil {
				return err
			}

			since := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
			closed, err := b.ClosedPositions(cmd.Context(), since)
			if err != nil {
				return err
			}
			if len(closed) == 0 {
				fmt.Println("no closed positions this year")
				return nil
			}

			rows := make([][]string, 0, len(closed))
			for _, pos := range closed {
				rows = append(rows, []string{
					pos.Name,
					fmt.Sprintf("%d", pos.Size),
					colorPL(percentChange(pos.CostBasis, pos.Proceeds)),
					fmt.Sprintf("%d", int(pos.TimeClosed.Sub(pos.TimeOpened).Hours()/24)),
				})
			}

			fmt.Println()
			renderTable(os.Stdout, []string{
				fmt.Sprintf("Name (%d)", len(rows)),
				"Quantity",
				"Gain/Loss (%)",
				"Days Held",
			}, rows)
			fmt.Println()
			return nil
		},
	}
}

// newTrader builds a Trader journaled to the configured SQLite database.
// The journal is best-effort: a failure to open it degrades to an
// unjournaled trader.
func (a *app) newTrader(b broker.Broker) (*rebalance.Trader, func()) {
	trader := &rebalance.Trader{
		Broker:   b,
		FillWait: a.cfg.Strategy.FillWait,
	}

	j, err := journal.NewSQLite(a.cfg.Journal.DBPath)
	if err != nil {
		return trader, func() {}
	}
	trader.Journal = j
	return trader, func() { j.Close() }
}
