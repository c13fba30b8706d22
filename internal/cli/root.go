// Package cli wires up the clt command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tbc399/command-line-trader/broker"
	_ "github.com/tbc399/command-line-trader/broker/tradier" // register broker implementations
	"github.com/tbc399/command-line-trader/config"
	"github.com/tbc399/command-line-trader/internal/logger"
)

// app is the state shared by all subcommands, populated before any command
// runs.
type app struct {
	cfg *config.Config
}

// activeContext loads the context currently selected in the config.
func (a *app) activeContext() (*config.Context, error) {
	if a.cfg.Context == "" {
		return nil, fmt.Errorf("no active context; create one with 'clt context new'")
	}
	return config.LoadContext(a.cfg.Context)
}

// activeBroker builds the broker for the active context.
func (a *app) activeBroker() (broker.Broker, error) {
	ctx, err := a.activeContext()
	if err != nil {
		return nil, err
	}
	return ctx.Broker()
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "clt",
		Short:         "Command line trading with a momentum rebalance loop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var logLevel string
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a.cfg = cfg

		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		logger.Init(logLevel)
		return nil
	}

	cmd.AddCommand(
		newPositionCmd(a),
		newAccountCmd(a),
		newWatchCmd(a),
		newContextCmd(a),
		newRunCmd(a),
		newJournalCmd(a),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("clt (dev)")
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
