package risk

import "github.com/shopspring/decimal"

// Policy limits new positions. Zero values disable a check.
type Policy struct {
	// Largest loss at the stop, as a fraction of equity.
	MaxRiskPct decimal.Decimal `json:"max_risk_pct" yaml:"max_risk_pct"`
	// Require a stop loss on every new position.
	RequireStop bool `json:"require_stop" yaml:"require_stop"`
	// Smallest reward/risk when both stop and target are set.
	MinRR decimal.Decimal `json:"min_rr" yaml:"min_rr"`

	MaxOpenPositions int `json:"max_open_positions" yaml:"max_open_positions"`
	// Margin used over equity, as a fraction.
	MaxMarginPct decimal.Decimal `json:"max_margin_pct" yaml:"max_margin_pct"`
	// Refuse new positions once the account has flagged a breach.
	HaltOnBreach bool `json:"halt_on_breach" yaml:"halt_on_breach"`
}

// Enabled reports whether any check is switched on.
func (p Policy) Enabled() bool {
	return p.MaxRiskPct.IsPositive() || p.RequireStop || p.MinRR.IsPositive() ||
		p.MaxOpenPositions > 0 || p.MaxMarginPct.IsPositive() || p.HaltOnBreach
}

// Intent is a position about to be opened.
type Intent struct {
	Symbol     string
	Quantity   decimal.Decimal
	Entry      decimal.Decimal
	StopLoss   *decimal.Decimal
	TakeProfit *decimal.Decimal
}
