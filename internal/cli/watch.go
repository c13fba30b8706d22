package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbc399/command-line-trader/config"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Maintain the watchlist for the active context",
	}

	var notes string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a symbol to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.activeContext()
			if err != nil {
				return err
			}
			if !ctx.Watch(args[0], notes) {
				fmt.Printf("%s is already being watched\n", args[0])
				return nil
			}
			return config.SaveContext(ctx)
		},
	}
	add.Flags().StringVarP(&notes, "notes", "n", "", "Notes for the watched symbol")

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a symbol from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.activeContext()
			if err != nil {
				return err
			}
			ctx.Unwatch(args[0])
			return config.SaveContext(ctx)
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Clear the watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.activeContext()
			if err != nil {
				return err
			}
			ctx.Watchlist = nil
			return config.SaveContext(ctx)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := a.activeContext()
			if err != nil {
				return err
			}
			for _, item := range ctx.Watchlist {
				fmt.Printf("%s: %s\n", item.Name, item.Notes)
			}
			return nil
		},
	}

	cmd.AddCommand(add, remove, clear, list)
	return cmd
}
