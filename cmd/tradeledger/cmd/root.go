package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeledger/config"
	"github.com/rustyeddy/tradeledger/internal/logging"
)

var (
	cfgFile  string
	envFile  string
	logLevel string

	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tradeledger",
	Short: "An order, position and account ledger for a single trading account",
	Long: `tradeledger keeps the books for one trading account.

It provides tools for:
  - Replaying quotes from CSV or a websocket stream through the ledger
  - Pending orders with limit prices, timeouts and linked modify/close
  - Stop loss and take profit handling with partial closes
  - Margin, drawdown and daily loss tracking
  - Journals in memory, CSV, SQLite, PostgreSQL or Pebble

Settings come from a YAML or JSON config file, then LEDGER_* environment
variables (a .env file is loaded first when present).`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = log.Sync() },
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before LEDGER_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func setup(cmd *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFromFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}
	if err := cfg.ApplyEnv(); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Log.File != "" {
		log, err = logging.NewWithFile(cfg.Log.Level, cfg.Log.File)
	} else {
		log, err = logging.New(cfg.Log.Level, cfg.Log.Development)
	}
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	return nil
}
