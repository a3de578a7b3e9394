package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradeledger/journal"
	"github.com/rustyeddy/tradeledger/ledger"
	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/risk"
	"github.com/rustyeddy/tradeledger/strategies"
)

// Config represents the complete ledger run configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Feed     FeedConfig     `json:"feed" yaml:"feed"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk     risk.Policy    `json:"risk" yaml:"risk"`
	Replay   ReplayConfig   `json:"replay" yaml:"replay"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID                 string          `json:"id" yaml:"id"`
	Currency           string          `json:"currency" yaml:"currency"`
	Balance            decimal.Decimal `json:"balance" yaml:"balance"`
	Leverage           decimal.Decimal `json:"leverage" yaml:"leverage"`
	CommissionPerOrder decimal.Decimal `json:"commission_per_order" yaml:"commission_per_order"`
	Limits             ledger.Limits   `json:"limits" yaml:"limits"`
}

// JournalConfig selects where ledger records are persisted. Path is the
// database file for sqlite, the directory for csv and pebble.
type JournalConfig struct {
	Type string `json:"type" yaml:"type"` // memory, csv, sqlite, postgres or pebble
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	DSN  string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// FeedConfig selects the quote source. From and To are RFC3339 times or
// YYYY-MM-DD dates and bound csv replays to [From, To).
type FeedConfig struct {
	Type    string   `json:"type" yaml:"type"` // csv or websocket
	Path    string   `json:"path,omitempty" yaml:"path,omitempty"`
	URL     string   `json:"url,omitempty" yaml:"url,omitempty"`
	Symbols []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	From    string   `json:"from,omitempty" yaml:"from,omitempty"`
	To      string   `json:"to,omitempty" yaml:"to,omitempty"`
}

// StrategyConfig contains strategy parameters
type StrategyConfig struct {
	Name           string          `json:"name" yaml:"name"`
	Symbol         string          `json:"symbol" yaml:"symbol"`
	Side           string          `json:"side" yaml:"side"`
	Quantity       decimal.Decimal `json:"quantity" yaml:"quantity"`
	StopDistance   decimal.Decimal `json:"stop_distance" yaml:"stop_distance"`
	TargetDistance decimal.Decimal `json:"target_distance" yaml:"target_distance"`
	RiskPercent    decimal.Decimal `json:"risk_percent" yaml:"risk_percent"`
	QuantityStep   decimal.Decimal `json:"quantity_step" yaml:"quantity_step"`
}

// ReplayConfig controls the end of a run.
type ReplayConfig struct {
	CloseEnd    bool   `json:"close_end" yaml:"close_end"`
	CloseReason string `json:"close_reason,omitempty" yaml:"close_reason,omitempty"`
}

// LogConfig contains logger parameters
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance.IsNegative() {
		return fmt.Errorf("account.balance must not be negative")
	}
	if c.Account.Leverage.IsNegative() {
		return fmt.Errorf("account.leverage must not be negative")
	}
	if c.Account.CommissionPerOrder.IsNegative() {
		return fmt.Errorf("account.commission_per_order must not be negative")
	}

	switch c.Journal.Type {
	case "", "memory":
	case "csv", "sqlite", "pebble":
		if c.Journal.Path == "" {
			return fmt.Errorf("journal.path required for %s journal", c.Journal.Type)
		}
	case "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn required for postgres journal")
		}
	default:
		return fmt.Errorf("journal.type must be one of memory, csv, sqlite, postgres, pebble")
	}

	switch c.Feed.Type {
	case "":
	case "csv":
		if c.Feed.Path == "" {
			return fmt.Errorf("feed.path required for csv feed")
		}
	case "websocket":
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url required for websocket feed")
		}
	default:
		return fmt.Errorf("feed.type must be 'csv' or 'websocket'")
	}
	if _, _, err := c.Feed.Range(); err != nil {
		return err
	}

	if c.Risk.MaxRiskPct.IsNegative() || c.Risk.MinRR.IsNegative() || c.Risk.MaxMarginPct.IsNegative() || c.Risk.MaxOpenPositions < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	if _, err := strategies.ByName(c.Strategy.Name, c.Strategy.Params()); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  decimal.NewFromInt(100000),
			Leverage: decimal.NewFromInt(1),
		},
		Journal: JournalConfig{
			Type: "memory",
		},
		Strategy: StrategyConfig{
			Name:           "noop",
			Symbol:         "EUR_USD",
			Side:           "buy",
			Quantity:       decimal.NewFromInt(10000),
			StopDistance:   decimal.RequireFromString("0.0020"),
			TargetDistance: decimal.RequireFromString("0.0040"),
		},
		Replay: ReplayConfig{
			CloseEnd:    true,
			CloseReason: "EndOfReplay",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyEnv overrides fields from LEDGER_* environment variables.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	dec := func(key string, dst *decimal.Decimal) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("LEDGER_ACCOUNT_ID", &c.Account.ID)
	str("LEDGER_CURRENCY", &c.Account.Currency)
	if err := dec("LEDGER_BALANCE", &c.Account.Balance); err != nil {
		return err
	}
	if err := dec("LEDGER_LEVERAGE", &c.Account.Leverage); err != nil {
		return err
	}
	if err := dec("LEDGER_COMMISSION", &c.Account.CommissionPerOrder); err != nil {
		return err
	}
	str("LEDGER_JOURNAL_TYPE", &c.Journal.Type)
	str("LEDGER_JOURNAL_PATH", &c.Journal.Path)
	str("LEDGER_JOURNAL_DSN", &c.Journal.DSN)
	str("LEDGER_FEED_TYPE", &c.Feed.Type)
	str("LEDGER_FEED_PATH", &c.Feed.Path)
	str("LEDGER_FEED_URL", &c.Feed.URL)
	if v, ok := os.LookupEnv("LEDGER_SYMBOLS"); ok && v != "" {
		c.Feed.Symbols = splitList(v)
	}
	str("LEDGER_STRATEGY", &c.Strategy.Name)
	str("LEDGER_LOG_LEVEL", &c.Log.Level)
	if v, ok := os.LookupEnv("LEDGER_LOG_DEVELOPMENT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LEDGER_LOG_DEVELOPMENT: %w", err)
		}
		c.Log.Development = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Ledger converts the account section for ledger.New.
func (a AccountConfig) Ledger() ledger.AccountConfig {
	return ledger.AccountConfig{
		ID:       a.ID,
		Currency: a.Currency,
		Balance:  a.Balance,
		Leverage: a.Leverage,
		Limits:   a.Limits,
	}
}

// Params converts the strategy section for strategies.ByName.
func (s StrategyConfig) Params() strategies.Params {
	return strategies.Params{
		Symbol:         s.Symbol,
		Side:           s.Side,
		Quantity:       s.Quantity,
		StopDistance:   s.StopDistance,
		TargetDistance: s.TargetDistance,
		RiskPercent:    s.RiskPercent,
		QuantityStep:   s.QuantityStep,
	}
}

// Open builds the configured journal. An empty runID starts a new run.
func (j JournalConfig) Open(runID string) (journal.Journal, error) {
	switch j.Type {
	case "", "memory":
		return journal.NewMemory(), nil
	case "csv":
		return journal.NewCSV(j.Path, runID)
	case "sqlite":
		return journal.NewSQLite(j.Path, runID)
	case "postgres":
		return journal.NewPostgres(j.DSN, runID)
	case "pebble":
		return journal.NewPebble(j.Path, runID)
	default:
		return nil, fmt.Errorf("unknown journal type %q", j.Type)
	}
}

// Range parses From and To. Zero times mean unbounded.
func (f FeedConfig) Range() (from, to time.Time, err error) {
	if from, err = parseBound(f.From); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("feed.from: %w", err)
	}
	if to, err = parseBound(f.To); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("feed.to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("feed.to must be after feed.from")
	}
	return from, to, nil
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}

// Open builds the configured quote feed.
func (f FeedConfig) Open(ctx context.Context, log *zap.Logger) (market.Feed, error) {
	switch f.Type {
	case "csv":
		from, to, err := f.Range()
		if err != nil {
			return nil, err
		}
		return market.NewCSVFeed(f.Path, from, to)
	case "websocket":
		return market.DialWS(ctx, f.URL, f.Symbols, log)
	case "":
		return nil, fmt.Errorf("feed.type is required")
	default:
		return nil, fmt.Errorf("unknown feed type %q", f.Type)
	}
}
