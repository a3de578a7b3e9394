// Package risk sizes positions and screens new ones against a policy.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Inputs for risk-based sizing. RiskPct is a fraction (0.005 is half a
// percent). Step is the quantity increment; zero means whole units.
type Inputs struct {
	Equity     decimal.Decimal
	RiskPct    decimal.Decimal
	EntryPrice decimal.Decimal
	StopPrice  decimal.Decimal
	Step       decimal.Decimal
}

type Result struct {
	Quantity     decimal.Decimal
	StopDistance decimal.Decimal
	RiskAmount   decimal.Decimal
}

// Calculate returns the largest quantity, rounded down to Step, whose loss
// at the stop is no more than Equity*RiskPct.
func Calculate(in Inputs) (Result, error) {
	if !in.Equity.IsPositive() {
		return Result{}, fmt.Errorf("equity must be positive, got %s", in.Equity)
	}
	if !in.RiskPct.IsPositive() || in.RiskPct.GreaterThan(decimal.NewFromInt(1)) {
		return Result{}, fmt.Errorf("risk percent must be in (0, 1], got %s", in.RiskPct)
	}
	dist := in.EntryPrice.Sub(in.StopPrice).Abs()
	if dist.IsZero() {
		return Result{}, fmt.Errorf("entry and stop must differ")
	}

	riskAmt := in.Equity.Mul(in.RiskPct)
	qty := riskAmt.DivRound(dist, 16)
	step := in.Step
	if !step.IsPositive() {
		step = decimal.NewFromInt(1)
	}
	qty = qty.Div(step).Floor().Mul(step)

	return Result{
		Quantity:     qty,
		StopDistance: dist,
		RiskAmount:   riskAmt,
	}, nil
}

// PlannedRisk is the loss if the stop is hit.
func PlannedRisk(qty, entry, stop decimal.Decimal) decimal.Decimal {
	return qty.Mul(entry.Sub(stop).Abs())
}

// RR is reward over risk; zero when the stop sits at the entry.
func RR(entry, stop, takeProfit decimal.Decimal) decimal.Decimal {
	risk := entry.Sub(stop).Abs()
	if risk.IsZero() {
		return decimal.Zero
	}
	return takeProfit.Sub(entry).Abs().DivRound(risk, 8)
}
