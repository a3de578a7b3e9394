package risk

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradeledger/ledger"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    decimal.Decimal
	PlannedRiskPct decimal.Decimal
	PlannedRR      decimal.Decimal
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation codes, or is empty when allowed.
func (d Decision) Reason() string {
	codes := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		codes[i] = v.Code
	}
	return strings.Join(codes, ",")
}

var hundred = decimal.NewFromInt(100)

// Evaluate screens intent against p given the account and the number of
// positions already open.
func Evaluate(p Policy, intent Intent, acct ledger.Account, open int) Decision {
	d := Decision{Allowed: true}

	if !intent.Quantity.IsPositive() || !intent.Entry.IsPositive() {
		d.add("NO_QUANTITY_OR_ENTRY", "quantity and entry must be positive")
		return d
	}

	if p.HaltOnBreach && (acct.StopOut || acct.DailyLossBreached || acct.DrawdownBreached) {
		d.add("ACCOUNT_HALTED", "account has a stop out or loss limit breach")
	}

	if intent.StopLoss == nil {
		if p.RequireStop {
			d.add("NO_STOP", "a stop loss is required")
		}
	} else {
		d.PlannedRisk = PlannedRisk(intent.Quantity, intent.Entry, *intent.StopLoss)
		if acct.Equity.IsPositive() {
			d.PlannedRiskPct = d.PlannedRisk.DivRound(acct.Equity, 8)
		}
		if p.MaxRiskPct.IsPositive() {
			if !acct.Equity.IsPositive() || d.PlannedRiskPct.GreaterThan(p.MaxRiskPct) {
				d.add("RISK_TOO_HIGH", fmt.Sprintf("planned risk %s%% exceeds max %s%%",
					d.PlannedRiskPct.Mul(hundred).StringFixed(2), p.MaxRiskPct.Mul(hundred).StringFixed(2)))
			}
		}
		if intent.TakeProfit != nil {
			d.PlannedRR = RR(intent.Entry, *intent.StopLoss, *intent.TakeProfit)
			if p.MinRR.IsPositive() && d.PlannedRR.LessThan(p.MinRR) {
				d.add("RR_TOO_LOW", fmt.Sprintf("RR %s below minimum %s", d.PlannedRR.StringFixed(2), p.MinRR.StringFixed(2)))
			}
		}
	}

	if p.MaxOpenPositions > 0 && open >= p.MaxOpenPositions {
		d.add("TOO_MANY_OPEN_POSITIONS", fmt.Sprintf("open positions %d >= max %d", open, p.MaxOpenPositions))
	}

	if p.MaxMarginPct.IsPositive() && acct.Equity.IsPositive() {
		used := acct.MarginUsed.DivRound(acct.Equity, 8)
		if used.GreaterThan(p.MaxMarginPct) {
			d.add("MARGIN_TOO_HIGH", fmt.Sprintf("margin used %s%% exceeds max %s%%",
				used.Mul(hundred).StringFixed(2), p.MaxMarginPct.Mul(hundred).StringFixed(2)))
		}
	}

	return d
}
