package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbc399/command-line-trader/broker"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account balances and returns",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.activeBroker()
			if err != nil {
				return err
			}

			balance, err := b.AccountBalance(cmd.Context())
			if err != nil {
				return err
			}

			openPLPercent := (balance.OpenPL / balance.Base()) * 100

			fmt.Println()
			renderTable(os.Stdout, []string{
				"Total Equity",
				"Long Value",
				"Settled Cash",
				"Open P/L (%)",
			}, [][]string{{
				fmt.Sprintf("%.2f", balance.TotalEquity),
				fmt.Sprintf("%.2f", balance.LongValue),
				fmt.Sprintf("%.2f", balance.SettledCash),
				colorPL(openPLPercent),
			}})
			fmt.Println()
			return nil
		},
	}

	cmd.AddCommand(newAccountReturnsCmd(a))
	return cmd
}

func newAccountReturnsCmd(a *app) *cobra.Command {
	var daily bool

	cmd := &cobra.Command{
		Use:   "returns",
		Short: "Show realized returns for the year",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.activeBroker()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			balance, err := b.AccountBalance(ctx)
			if err != nil {
				return err
			}

			since := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
			closed, err := b.ClosedPositions(ctx, since)
			if err != nil {
				return err
			}
			events, err := b.AccountHistory(ctx)
			if err != nil {
				return err
			}

			var pnl float64
			for _, pos := range closed {
				pnl += pos.Proceeds - pos.CostBasis
			}

			// The starting value is today's base less everything realized
			// since the start of the window.
			initial := balance.Base() - pnl
			stream := broker.NewReturnStream(initial, closed, events)

			if daily {
				rows := make([][]string, 0)
				for _, day := range stream.Returns() {
					rows = append(rows, []string{
						day.Day.Format("2006-01-02"),
						colorPL(day.Return),
					})
				}
				if len(rows) == 0 {
					fmt.Println("no realized returns this year")
					return nil
				}
				fmt.Println()
				renderTable(os.Stdout, []string{"Date", "Return (%)"}, rows)
				fmt.Println()
				return nil
			}

			fmt.Println()
			renderTable(os.Stdout, []string{
				"Return Percentage",
				"Return Value",
			}, [][]string{{
				colorPL(stream.TotalReturn()),
				fmt.Sprintf("%.2f", pnl),
			}})
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&daily, "daily", "d", false, "Show the cumulative return after each day")
	return cmd
}
