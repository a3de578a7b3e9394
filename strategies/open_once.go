package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/ledger"
	"github.com/rustyeddy/tradeledger/market"
	"github.com/rustyeddy/tradeledger/risk"
)

// OpenOnce opens a single position on the first quote for its symbol and
// then leaves it to the stop loss and take profit. With RiskPercent set the
// quantity comes from account equity and the stop distance.
type OpenOnce struct {
	Symbol         string
	Sell           bool
	Quantity       decimal.Decimal
	StopDistance   decimal.Decimal
	TargetDistance decimal.Decimal
	RiskPercent    decimal.Decimal
	QuantityStep   decimal.Decimal

	opened bool
}

func NewOpenOnce(p Params) (*OpenOnce, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("open-once: symbol is required")
	}
	sized := p.RiskPercent.IsPositive()
	if sized && !p.StopDistance.IsPositive() {
		return nil, fmt.Errorf("open-once: risk_percent needs a stop distance")
	}
	if !sized && !p.Quantity.IsPositive() {
		return nil, fmt.Errorf("open-once: quantity must be positive, got %s", p.Quantity)
	}
	if p.StopDistance.IsNegative() || p.TargetDistance.IsNegative() {
		return nil, fmt.Errorf("open-once: distances must not be negative")
	}
	s := &OpenOnce{
		Symbol:         p.Symbol,
		Quantity:       p.Quantity,
		StopDistance:   p.StopDistance,
		TargetDistance: p.TargetDistance,
		RiskPercent:    p.RiskPercent,
		QuantityStep:   p.QuantityStep,
	}
	switch strings.ToLower(p.Side) {
	case "", "buy", "long":
	case "sell", "short":
		s.Sell = true
	default:
		return nil, fmt.Errorf("open-once: unknown side %q", p.Side)
	}
	return s, nil
}

func (s *OpenOnce) OnQuote(_ context.Context, q market.Quote, v View) ([]ledger.Signal, error) {
	if s.opened || q.Symbol != s.Symbol {
		return nil, nil
	}
	s.opened = true

	px := q.Last()
	var sl, tp *decimal.Decimal
	if s.StopDistance.IsPositive() {
		v := px.Sub(s.StopDistance)
		if s.Sell {
			v = px.Add(s.StopDistance)
		}
		sl = &v
	}
	if s.TargetDistance.IsPositive() {
		v := px.Add(s.TargetDistance)
		if s.Sell {
			v = px.Sub(s.TargetDistance)
		}
		tp = &v
	}

	qty := s.Quantity
	if s.RiskPercent.IsPositive() {
		if v == nil {
			return nil, fmt.Errorf("open-once: risk sizing needs the account")
		}
		res, err := risk.Calculate(risk.Inputs{
			Equity:     v.Account().Equity,
			RiskPct:    s.RiskPercent,
			EntryPrice: px,
			StopPrice:  *sl,
			Step:       s.QuantityStep,
		})
		if err != nil {
			return nil, fmt.Errorf("open-once: %w", err)
		}
		if !res.Quantity.IsPositive() {
			return nil, nil
		}
		qty = res.Quantity
	}

	if s.Sell {
		sig, err := ledger.NewSellSignal(s.Symbol, qty, sl, tp)
		if err != nil {
			return nil, err
		}
		return []ledger.Signal{sig}, nil
	}
	sig, err := ledger.NewBuySignal(s.Symbol, qty, sl, tp)
	if err != nil {
		return nil, err
	}
	return []ledger.Signal{sig}, nil
}
