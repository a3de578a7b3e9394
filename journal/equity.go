package journal

import "github.com/shopspring/decimal"

// MaxDrawdown is the largest fall of equity from a running peak across
// snapshots in the order given.
func MaxDrawdown(snaps []EquitySnapshot) decimal.Decimal {
	var peak, worst decimal.Decimal
	for i, s := range snaps {
		if i == 0 || s.Equity.GreaterThan(peak) {
			peak = s.Equity
		}
		if dd := peak.Sub(s.Equity); dd.GreaterThan(worst) {
			worst = dd
		}
	}
	return worst
}
