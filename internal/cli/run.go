package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbc399/command-line-trader/internal/logger"
	"github.com/tbc399/command-line-trader/journal"
	"github.com/tbc399/command-line-trader/market"
	"github.com/tbc399/command-line-trader/market/tiingo"
	"github.com/tbc399/command-line-trader/momentum"
	"github.com/tbc399/command-line-trader/notify"
	"github.com/tbc399/command-line-trader/rebalance"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the momentum rebalance loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.activeBroker()
			if err != nil {
				return err
			}

			token := a.cfg.Strategy.TiingoToken
			if token == "" {
				token = os.Getenv("TIINGO_API_KEY")
			}
			if token == "" {
				return fmt.Errorf("no Tiingo token configured (strategy.tiingo_token or TIINGO_API_KEY)")
			}
			data := tiingo.NewClient(token)

			cal := market.NYSE()
			strat := a.cfg.Strategy

			j, err := journal.NewSQLite(a.cfg.Journal.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			var notifier rebalance.Notifier
			if a.cfg.Telegram.Enabled {
				tg, err := notify.NewTelegram(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID)
				if err != nil {
					return err
				}
				notifier = tg
			}

			scheduler := &rebalance.Scheduler{
				Broker: b,
				Fetcher: &momentum.Fetcher{
					Data:       data,
					Interval:   strat.BarInterval,
					ChunkSize:  strat.ChunkSize,
					ChunkPause: strat.ChunkPause,
				},
				Universe: &momentum.UniverseBuilder{
					Data:       data,
					Calendar:   cal,
					Broker:     b,
					Allocation: strat.Allocation,
					Size:       strat.UniverseSize,
				},
				Calendar: cal,
				Trader: &rebalance.Trader{
					Broker:   b,
					Journal:  j,
					FillWait: strat.FillWait,
				},
				Journal:  j,
				Notifier: notifier,
				Location: cal.Location(),
				Config: rebalance.Config{
					Allocation:       strat.Allocation,
					PortfolioSize:    strat.PortfolioSize,
					Lookback:         strat.Lookback,
					QualityThreshold: strat.QualityThreshold,
					RebalanceHour:    strat.RebalanceHour,
				},
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("starting rebalance loop for context %q", a.cfg.Context)
			err = scheduler.Run(ctx)
			if ctx.Err() != nil {
				logger.Info("shutting down")
				return nil
			}
			return err
		},
	}
}
