package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbc399/command-line-trader/journal"
)

func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the order and rebalance journal",
	}

	runs := &cobra.Command{
		Use:   "runs [YYYY-MM-DD]",
		Short: "Show rebalance runs for a session day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().Format("2006-01-02")
			if len(args) == 1 {
				if _, err := time.Parse("2006-01-02", args[0]); err != nil {
					return fmt.Errorf("invalid date %q: %w", args[0], err)
				}
				day = args[0]
			}

			j, err := journal.NewSQLite(a.cfg.Journal.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			records, err := j.ListRuns(day)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Printf("no runs on %s\n", day)
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.RunID,
					fmt.Sprintf("%d", r.UniverseSize),
					fmt.Sprintf("%d", r.ScoredCount),
					fmt.Sprintf("%d", r.TargetCount),
					fmt.Sprintf("%d", r.Sold),
					fmt.Sprintf("%d", r.Bought),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
				})
			}
			renderTable(os.Stdout, []string{
				"Run", "Universe", "Scored", "Target", "Sold", "Bought", "Took",
			}, rows)
			return nil
		},
	}

	orders := &cobra.Command{
		Use:   "orders RUN_ID",
		Short: "Show the orders placed by a rebalance run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(a.cfg.Journal.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			records, err := j.ListOrders(args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Printf("no orders for run %s\n", args[0])
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, o := range records {
				rows = append(rows, []string{
					o.Symbol,
					o.Side,
					o.Type,
					fmt.Sprintf("%d", o.Quantity),
					o.Status,
					fmt.Sprintf("%.2f", o.FillPrice),
					o.PlacedAt.Format(time.RFC3339),
				})
			}
			renderTable(os.Stdout, []string{
				"Symbol", "Side", "Type", "Quantity", "Status", "Fill", "Placed",
			}, rows)
			return nil
		},
	}

	cmd.AddCommand(runs, orders)
	return cmd
}
