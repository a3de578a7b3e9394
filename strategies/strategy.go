// Package strategies holds the simple drivers used to exercise a ledger
// from a quote feed.
package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/ledger"
	"github.com/rustyeddy/tradeledger/market"
)

// View is the read-only part of a ledger a strategy may look at.
type View interface {
	ActivePositions() []ledger.Position
	Account() ledger.Account
}

// Strategy is called once per quote, after the ledger has processed it,
// and returns the signals to apply at that quote's price.
type Strategy interface {
	OnQuote(ctx context.Context, q market.Quote, v View) ([]ledger.Signal, error)
}

// Params configures the built-in strategies.
type Params struct {
	Symbol         string          `json:"symbol" yaml:"symbol"`
	Side           string          `json:"side" yaml:"side"`
	Quantity       decimal.Decimal `json:"quantity" yaml:"quantity"`
	StopDistance   decimal.Decimal `json:"stop_distance" yaml:"stop_distance"`
	TargetDistance decimal.Decimal `json:"target_distance" yaml:"target_distance"`
	// RiskPercent, when set with a stop distance, sizes the position so
	// a stop out loses that fraction of equity. Quantity is then ignored.
	RiskPercent  decimal.Decimal `json:"risk_percent" yaml:"risk_percent"`
	QuantityStep decimal.Decimal `json:"quantity_step" yaml:"quantity_step"`
}

// Factory builds a strategy from params.
type Factory func(Params) (Strategy, error)

var registry = map[string]Factory{
	"noop":      func(Params) (Strategy, error) { return Noop{}, nil },
	"open-once": func(p Params) (Strategy, error) { return NewOpenOnce(p) },
}

// Register adds or replaces a named strategy.
func Register(name string, f Factory) {
	registry[strings.ToLower(name)] = f
}

// Names lists the registered strategies.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ByName builds the strategy registered under name.
func ByName(name string, p Params) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "none" {
		key = "noop"
	}
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(p)
}
