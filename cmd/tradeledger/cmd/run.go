package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeledger/backtest"
	"github.com/rustyeddy/tradeledger/ledger"
	"github.com/rustyeddy/tradeledger/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a quote feed through the ledger",
	Long: `Run a strategy against the configured quote feed and print a summary.

Every quote updates the ledger (pending orders, stop loss and take profit,
account marks) before the strategy sees it. Records go to the configured
journal under a new run id.

Examples:
  tradeledger run -c ledger.yaml
  tradeledger run -c ledger.yaml --feed-path quotes.csv --strategy open-once`,
	RunE: runRun,
}

var (
	runFeedPath string
	runStrategy string
	runKeepOpen bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFeedPath, "feed-path", "", "CSV quote file (sets feed.type=csv)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "strategy name override")
	runCmd.Flags().BoolVar(&runKeepOpen, "keep-open", false, "leave positions open at the end of the feed")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFeedPath != "" {
		cfg.Feed.Type = "csv"
		cfg.Feed.Path = runFeedPath
	}
	if runStrategy != "" {
		cfg.Strategy.Name = runStrategy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	j, err := cfg.Journal.Open("")
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	l, err := ledger.New(cfg.Account.Ledger(), j,
		ledger.WithLogger(log.Named("ledger")),
		ledger.WithCommission(cfg.Account.CommissionPerOrder),
	)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Params())
	if err != nil {
		return err
	}

	feed, err := cfg.Feed.Open(ctx, log.Named("feed"))
	if err != nil {
		return fmt.Errorf("open feed: %w", err)
	}

	log.Info("run started",
		zap.String("run_id", j.RunID()),
		zap.String("journal", cfg.Journal.Type),
		zap.String("feed", cfg.Feed.Type),
		zap.String("strategy", cfg.Strategy.Name),
	)

	r := &backtest.Runner{
		Ledger:   l,
		Feed:     feed,
		Strategy: strat,
		Options: backtest.RunnerOptions{
			CloseEnd:    cfg.Replay.CloseEnd && !runKeepOpen,
			CloseReason: cfg.Replay.CloseReason,
		},
		Risk: cfg.Risk,
		Log:  log.Named("runner"),
	}
	res, err := r.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		log.Info("run interrupted", zap.Int("quotes", res.Quotes))
	case err != nil:
		return fmt.Errorf("run: %w", err)
	}

	backtest.PrintResult(cmd.OutOrStdout(), res)
	return nil
}
