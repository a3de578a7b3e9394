package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeledger/ledger"
	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/risk"
	"github.com/rustyeddy/tradeledger/strategies"
)

// RunnerOptions controls how the replay runner behaves.
type RunnerOptions struct {
	// If true, close all open positions at the end of the feed.
	// Close reason will be CloseReason (or "EndOfReplay" if empty).
	CloseEnd    bool
	CloseReason string
}

// Runner drives a ledger forward using a feed and strategy.
type Runner struct {
	Ledger   *ledger.Ledger
	Feed     market.Feed
	Strategy strategies.Strategy
	Options  RunnerOptions
	// Risk screens buy and sell signals before they reach the ledger.
	Risk risk.Policy
	Log  *zap.Logger

	blocked int
}

// Run executes the replay loop:
//  1. read next quote
//  2. ledger.OnQuote(quote)
//  3. strategy.OnQuote(ctx, quote, ledger) and apply its signals
//
// Quotes the ledger rejects are logged and skipped. When ctx is cancelled
// the summary so far is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Ledger == nil {
		return Result{}, fmt.Errorf("backtest: Ledger is required")
	}
	if r.Feed == nil {
		return Result{}, fmt.Errorf("backtest: Feed is required")
	}
	if r.Strategy == nil {
		return Result{}, fmt.Errorf("backtest: Strategy is required")
	}
	defer r.Feed.Close()

	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	var start, end time.Time
	quotes := 0
	r.blocked = 0

	for {
		if err := ctx.Err(); err != nil {
			return r.summary(quotes, start, end), err
		}
		q, ok, err := r.Feed.Next()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.summary(quotes, start, end), ctxErr
			}
			return Result{}, err
		}
		if !ok {
			break
		}
		quotes++

		if start.IsZero() || q.Time.Before(start) {
			start = q.Time
		}
		if end.IsZero() || q.Time.After(end) {
			end = q.Time
		}

		if err := r.Ledger.OnQuote(q); err != nil {
			if !errors.Is(err, ledger.ErrMissingPrice) && !errors.Is(err, ledger.ErrValidation) {
				return Result{}, err
			}
			log.Warn("quote skipped", zap.String("symbol", q.Symbol), zap.Time("time", q.Time), zap.Error(err))
			continue
		}

		sigs, err := r.Strategy.OnQuote(ctx, q, r.Ledger)
		if err != nil {
			return Result{}, err
		}
		for _, sig := range sigs {
			if dec, ok := r.screen(sig, q.Last()); !ok {
				r.blocked++
				log.Warn("signal blocked", zap.String("symbol", q.Symbol), zap.String("reason", dec.Reason()))
				continue
			}
			if _, err := r.Ledger.Apply(sig, q.Last(), q.Time); err != nil {
				log.Warn("signal rejected", zap.String("signal", fmt.Sprintf("%T", sig)), zap.Error(err))
			}
		}
	}

	if r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = "EndOfReplay"
		}
		if err := r.Ledger.CloseAll(reason); err != nil {
			log.Warn("close at end failed", zap.Error(err))
		}
		if err := r.Ledger.Update(r.Ledger.Prices().Snapshot()); err != nil {
			log.Warn("final update failed", zap.Error(err))
		}
	}

	return r.summary(quotes, start, end), nil
}

func (r *Runner) summary(quotes int, start, end time.Time) Result {
	acct := r.Ledger.Account()
	return Result{
		RunID:          r.Ledger.Journal().RunID(),
		Balance:        acct.Balance,
		Equity:         acct.Equity,
		Statistics:     r.Ledger.Statistics(),
		Quotes:         quotes,
		Start:          start,
		End:            end,
		AutoOperations: len(r.Ledger.AutoOperations()),
		Blocked:        r.blocked,
	}
}

// screen runs the risk policy over an opening signal. Close signals and
// an empty policy always pass.
func (r *Runner) screen(sig ledger.Signal, price decimal.Decimal) (risk.Decision, bool) {
	if !r.Risk.Enabled() {
		return risk.Decision{Allowed: true}, true
	}
	var in risk.Intent
	switch s := sig.(type) {
	case ledger.BuySignal:
		in = risk.Intent{Symbol: s.Symbol, Quantity: s.Quantity, Entry: price, StopLoss: s.StopLoss, TakeProfit: s.TakeProfit}
		if s.Price != nil {
			in.Entry = *s.Price
		}
	case ledger.SellSignal:
		in = risk.Intent{Symbol: s.Symbol, Quantity: s.Quantity, Entry: price, StopLoss: s.StopLoss, TakeProfit: s.TakeProfit}
		if s.Price != nil {
			in.Entry = *s.Price
		}
	default:
		return risk.Decision{Allowed: true}, true
	}
	dec := risk.Evaluate(r.Risk, in, r.Ledger.Account(), len(r.Ledger.ActivePositions()))
	return dec, dec.Allowed
}
